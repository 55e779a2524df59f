package events

import (
	"context"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/types"
)

// Event is the envelope published for every order lifecycle change.
type Event struct {
	ID         types.ID       `json:"id"`
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    types.ID       `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data"`
}

// NewEvent creates an event envelope.
func NewEvent(name string, data map[string]any) Event {
	return Event{
		ID:         types.NewID(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// WithActor attaches the acting user.
func (e Event) WithActor(actorID types.ID) Event {
	e.ActorID = actorID
	return e
}

// Publisher publishes events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event Event) error
	Close() error
	Health() error
}
