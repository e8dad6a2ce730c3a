// ABOUTME: Client for the external geocoding provider, shielding the API key from callers.
// ABOUTME: Autocomplete, place details, reverse geocoding, and photo fetching.

package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/auphere/auphere-gateway/internal/config"
	"github.com/goccy/go-json"
)

// ErrNotConfigured indicates the geocoding provider has no API key
// configured. The feature is disabled rather than broken.
var ErrNotConfigured = errors.New("geocoding provider not configured")

// ProviderResponse is a decoded geocoding provider reply. Status is the
// provider's application-level status field ("OK", "ZERO_RESULTS", ...);
// Body is the raw JSON for passthrough.
type ProviderResponse struct {
	Status string
	Body   []byte
}

// Photo is a fetched place photo.
type Photo struct {
	ContentType string
	Data        []byte
}

// GeocodingClient proxies requests to the geocoding provider. The API
// key is attached server-side and never appears in logs or responses.
type GeocodingClient struct {
	c      *client
	apiKey string
}

// NewGeocodingClient builds a geocoding client from configuration. A
// missing API key yields a client whose calls all report
// ErrNotConfigured.
func NewGeocodingClient(cfg config.GeocodingConfig, logger *slog.Logger) *GeocodingClient {
	return &GeocodingClient{
		c:      newClient("geocoding", cfg.BaseURL, cfg.Timeout, logger),
		apiKey: cfg.APIKey,
	}
}

// Configured reports whether the provider credential is present.
func (g *GeocodingClient) Configured() bool {
	return g.apiKey != ""
}

// Autocomplete proxies a place autocomplete query.
func (g *GeocodingClient) Autocomplete(ctx context.Context, input, types, components string) (*ProviderResponse, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("input", input)
	if types != "" {
		params.Set("types", types)
	}
	if components != "" {
		params.Set("components", components)
	}
	params.Set("key", g.apiKey)

	return g.fetch(ctx, "/place/autocomplete/json", params)
}

// PlaceDetails proxies a place details lookup with the given field mask.
func (g *GeocodingClient) PlaceDetails(ctx context.Context, placeID, fields string) (*ProviderResponse, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", fields)
	params.Set("key", g.apiKey)

	return g.fetch(ctx, "/place/details/json", params)
}

// ReverseGeocode resolves coordinates to addresses.
func (g *GeocodingClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*ProviderResponse, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%v,%v", lat, lng))
	params.Set("key", g.apiKey)

	return g.fetch(ctx, "/geocode/json", params)
}

// Photo fetches a place photo by reference, following the provider's
// redirect to the image bytes.
func (g *GeocodingClient) Photo(ctx context.Context, photoReference string, maxWidth int) (*Photo, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("photoreference", photoReference)
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("key", g.apiKey)

	resp, err := g.c.do(ctx, http.MethodGet, "/place/photo", params, nil)
	if err != nil {
		return nil, err
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return &Photo{ContentType: contentType, Data: resp.Body}, nil
}

func (g *GeocodingClient) fetch(ctx context.Context, path string, params url.Values) (*ProviderResponse, error) {
	resp, err := g.c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	return &ProviderResponse{Status: envelope.Status, Body: resp.Body}, nil
}
