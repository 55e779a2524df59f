package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
	"golang.org/x/time/rate"
)

// NominatimClient geocodes free-text queries against a Nominatim server.
// A shared token bucket spaces requests so consecutive geocodes within one
// resolution (store, then delivery address) respect the provider's
// one-request-per-second policy.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewNominatimClient creates a geocoding client from config.
func NewNominatimClient(cfg config.GeoConfig, httpClient *http.Client) *NominatimClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	rps := cfg.GeocodeRatePerSecond
	if rps <= 0 {
		rps = 1
	}
	return &NominatimClient{
		baseURL:   cfg.NominatimURL,
		userAgent: cfg.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves query to its best single match. Returns ErrNoMatch when
// the provider understood the query but found nothing; any other error is a
// transport or provider failure.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Coordinate{}, fmt.Errorf("geocoding rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Coordinate{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordProviderRequest("nominatim", time.Since(start))
	if err != nil {
		metrics.RecordGeocodeRequest("error")
		return Coordinate{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordGeocodeRequest("error")
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Coordinate{}, fmt.Errorf("geocoding status %d: %s", resp.StatusCode, string(b))
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.RecordGeocodeRequest("error")
		return Coordinate{}, fmt.Errorf("geocoding response: %w", err)
	}

	if len(results) == 0 {
		metrics.RecordGeocodeRequest("no_match")
		return Coordinate{}, ErrNoMatch
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		metrics.RecordGeocodeRequest("no_match")
		return Coordinate{}, ErrNoMatch
	}

	metrics.RecordGeocodeRequest("ok")
	return Coordinate{Lat: lat, Lng: lng}, nil
}
