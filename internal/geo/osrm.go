package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
)

// OSRMClient requests driving routes from an OSRM server.
type OSRMClient struct {
	baseURL string
	http    *http.Client
}

// NewOSRMClient creates a routing client from config.
func NewOSRMClient(cfg config.GeoConfig, httpClient *http.Client) *OSRMClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OSRMClient{baseURL: cfg.OSRMURL, http: httpClient}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// Route returns the driving leg between origin and dest. OSRM expects
// coordinates as lng,lat pairs.
func (c *OSRMClient) Route(ctx context.Context, origin, dest Coordinate) (Leg, error) {
	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, origin.Lng, origin.Lat, dest.Lng, dest.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Leg{}, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordProviderRequest("osrm", time.Since(start))
	if err != nil {
		return Leg{}, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Leg{}, fmt.Errorf("routing status %d: %s", resp.StatusCode, string(b))
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Leg{}, fmt.Errorf("routing response: %w", err)
	}

	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return Leg{}, fmt.Errorf("routing returned no route (code %q)", parsed.Code)
	}

	return Leg{
		DistanceMeters:  parsed.Routes[0].Distance,
		DurationSeconds: parsed.Routes[0].Duration,
	}, nil
}
