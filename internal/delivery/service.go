package delivery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
)

// Quote is a priced delivery for one address, computed fresh each time.
type Quote struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Fee             float64 `json:"fee"`
	UsedFallback    bool    `json:"used_fallback"`
}

// Service resolves a distance and prices it. The order module calls it
// twice per order: once when quoting and once when confirming payment, and
// the second computation is authoritative.
type Service struct {
	resolver        *Resolver
	outageFlatQuote bool
	logger          *slog.Logger
}

// NewService creates the quoting service.
func NewService(resolver *Resolver, cfg config.DeliveryConfig, logger *slog.Logger) *Service {
	return &Service{
		resolver:        resolver,
		outageFlatQuote: cfg.OutageFlatQuote,
		logger:          logger,
	}
}

// Flat quote issued during a total mapping outage when enabled by config.
const (
	outageFlatDistanceKm  = 5.0
	outageFlatDurationMin = 20
)

// Quote resolves the address and prices the distance.
func (s *Service) Quote(ctx context.Context, addressText string) (Quote, error) {
	outcome := "priced"

	result, err := s.resolver.Resolve(ctx, addressText)
	if err != nil {
		switch {
		case errors.Is(err, ErrAddressNotFound):
			metrics.RecordDeliveryQuote("address_not_found")
			return Quote{}, err
		case errors.Is(err, ErrAllProvidersUnavailable) && s.outageFlatQuote:
			// Every provider is down. Rather than blocking checkout,
			// issue a flat short-distance quote, clearly flagged.
			s.logger.Warn("mapping providers down, issuing flat quote",
				"distance_km", outageFlatDistanceKm)
			outcome = "outage_flat"
			result = DistanceResult{
				DistanceKm:      outageFlatDistanceKm,
				DurationMinutes: outageFlatDurationMin,
				Resolved:        true,
				UsedFallback:    true,
			}
		default:
			metrics.RecordDeliveryQuote("unavailable")
			return Quote{}, err
		}
	}

	if !result.Resolved || result.DistanceKm <= 0 {
		// A resolver that reports success with a non-positive distance
		// is broken; log it and fail rather than guess.
		s.logger.Error("resolved distance is non-positive",
			"distance_km", result.DistanceKm, "resolved", result.Resolved)
		metrics.RecordDeliveryQuote("defect")
		return Quote{}, ErrComputationDefect
	}

	fee, err := FeeForDistance(result.DistanceKm)
	if err != nil {
		metrics.RecordDeliveryQuote("out_of_range")
		return Quote{}, err
	}

	metrics.RecordDeliveryQuote(outcome)
	return Quote{
		DistanceKm:      result.DistanceKm,
		DurationMinutes: result.DurationMinutes,
		Fee:             fee,
		UsedFallback:    result.UsedFallback,
	}, nil
}
