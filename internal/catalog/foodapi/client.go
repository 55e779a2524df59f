// Package foodapi wraps the Open Food Facts HTTP API used to import
// product data into the catalog.
package foodapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/krishbavarva/freshcart/internal/shared/config"
	"github.com/krishbavarva/freshcart/internal/shared/metrics"
)

// ErrNotFound is returned when the food database has no entry for a barcode.
var ErrNotFound = errors.New("foodapi: product not found")

// FoodProduct is the subset of an Open Food Facts entry the catalog cares about.
type FoodProduct struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Client talks to an Open Food Facts compatible server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a food database client from config.
func NewClient(cfg config.FoodAPIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: cfg.BaseURL, http: httpClient}
}

type offProduct struct {
	Code        string `json:"code"`
	ProductName string `json:"product_name"`
	GenericName string `json:"generic_name"`
	Categories  string `json:"categories"`
	ImageURL    string `json:"image_url"`
}

type offProductResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}

// GetByBarcode fetches a single product by its barcode. Returns ErrNotFound
// when the database has no entry for it.
func (c *Client) GetByBarcode(ctx context.Context, barcode string) (*FoodProduct, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))

	var parsed offProductResponse
	if err := c.get(ctx, u, &parsed); err != nil {
		return nil, err
	}

	if parsed.Status != 1 || parsed.Product.Code == "" {
		return nil, ErrNotFound
	}

	return toFoodProduct(parsed.Product), nil
}

// Search queries the food database by free-text term.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]FoodProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&json=1&page_size=%d",
		c.baseURL, url.QueryEscape(term), limit)

	var parsed offSearchResponse
	if err := c.get(ctx, u, &parsed); err != nil {
		return nil, err
	}

	products := make([]FoodProduct, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		if p.Code == "" || p.ProductName == "" {
			continue
		}
		products = append(products, *toFoodProduct(p))
	}

	return products, nil
}

// Health checks that the food database answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("food database status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RecordProviderRequest("foodapi", time.Since(start))
	if err != nil {
		return fmt.Errorf("food database request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("food database status %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("food database response: %w", err)
	}
	return nil
}

func toFoodProduct(p offProduct) *FoodProduct {
	return &FoodProduct{
		Barcode:     p.Code,
		Name:        p.ProductName,
		Description: p.GenericName,
		Category:    firstCategory(p.Categories),
		ImageURL:    p.ImageURL,
	}
}

// firstCategory keeps only the first entry of the comma separated
// categories field.
func firstCategory(categories string) string {
	first, _, _ := strings.Cut(categories, ",")
	return strings.TrimSpace(first)
}
