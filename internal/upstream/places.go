// ABOUTME: Client for the places search service: search, detail by id, clusters.
// ABOUTME: Forwards the opaque place identifier without interpreting its format.

package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/auphere/auphere-gateway/internal/config"
)

// PlacesClient talks to the places search service.
type PlacesClient struct {
	c *client
}

// NewPlacesClient builds a places client from configuration. When an
// admin token is configured it is attached to every request as
// X-Admin-Token.
func NewPlacesClient(cfg config.PlacesConfig, logger *slog.Logger) *PlacesClient {
	c := newClient("places", cfg.BaseURL, cfg.Timeout, logger)
	if cfg.AdminToken != "" {
		c.header.Set("X-Admin-Token", cfg.AdminToken)
	}
	return &PlacesClient{c: c}
}

// Search proxies a search against the places service with the already
// translated query parameters and returns the raw response body.
func (p *PlacesClient) Search(ctx context.Context, params url.Values) ([]byte, error) {
	resp, err := p.c.do(ctx, http.MethodGet, "/places/search", params, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Detail fetches a single place by its identifier. The id is opaque:
// it may be an internal or an external provider identifier, and only
// non-emptiness is checked before forwarding.
func (p *PlacesClient) Detail(ctx context.Context, placeID string) ([]byte, error) {
	if placeID == "" {
		return nil, fmt.Errorf("place id must not be empty")
	}
	resp, err := p.c.do(ctx, http.MethodGet, "/places/"+url.PathEscape(placeID), nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Clusters proxies a geospatial cluster query and returns the raw
// response body. Clustering itself is entirely the upstream's concern.
func (p *PlacesClient) Clusters(ctx context.Context, params url.Values) ([]byte, error) {
	resp, err := p.c.do(ctx, http.MethodGet, "/places/clusters", params, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
