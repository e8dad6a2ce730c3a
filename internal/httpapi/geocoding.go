// ABOUTME: Geocoding proxy endpoints. The provider credential stays
// ABOUTME: server-side; successful JSON responses are cached, photos are not.

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auphere/auphere-gateway/internal/metrics"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

func (a *API) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := q.Get("input")
	if input == "" {
		a.writeDetail(w, http.StatusBadRequest, "input is required")
		return
	}
	types := q.Get("types")
	if types == "" {
		types = "(cities)"
	}
	components := q.Get("components")
	if components == "" {
		components = "country:es"
	}

	key := fmt.Sprintf("autocomplete:%s:%s:%s", input, types, components)
	if body, ok := a.cached(key); ok {
		a.writeRaw(w, http.StatusOK, "application/json", body)
		return
	}

	resp, err := a.geocoding.Autocomplete(r.Context(), input, types, components)
	if err != nil {
		a.geocodingError(w, err, "Failed to fetch autocomplete results")
		return
	}
	if resp.Status != "OK" {
		a.logger.Warn("autocomplete provider status", "status", resp.Status)
		a.writeJSON(w, http.StatusOK, map[string]any{"predictions": []any{}, "status": resp.Status})
		return
	}

	a.storeCached(key, resp.Body)
	a.writeRaw(w, http.StatusOK, "application/json", resp.Body)
}

func (a *API) handleGeocodingPlaceDetails(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "place_id")
	if placeID == "" {
		a.writeDetail(w, http.StatusBadRequest, "place_id is required")
		return
	}
	fields := r.URL.Query().Get("fields")
	if fields == "" {
		fields = "name,geometry,formatted_address,photos"
	}

	key := fmt.Sprintf("details:%s:%s", placeID, fields)
	if body, ok := a.cached(key); ok {
		a.writeRaw(w, http.StatusOK, "application/json", body)
		return
	}

	resp, err := a.geocoding.PlaceDetails(r.Context(), placeID, fields)
	if err != nil {
		a.geocodingError(w, err, "Failed to fetch place details")
		return
	}
	if resp.Status != "OK" {
		a.logger.Warn("place details provider status", "status", resp.Status)
		a.writeDetail(w, http.StatusNotFound, "Place not found")
		return
	}

	a.storeCached(key, resp.Body)
	a.writeRaw(w, http.StatusOK, "application/json", resp.Body)
}

func (a *API) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := floatParam(q, "lat")
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	lng, err := floatParam(q, "lng")
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if lat == nil || lng == nil {
		a.writeDetail(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	key := fmt.Sprintf("reverse:%s,%s", formatFloat(*lat), formatFloat(*lng))
	if body, ok := a.cached(key); ok {
		a.writeRaw(w, http.StatusOK, "application/json", body)
		return
	}

	resp, err := a.geocoding.ReverseGeocode(r.Context(), *lat, *lng)
	if err != nil {
		a.geocodingError(w, err, "Failed to reverse geocode")
		return
	}
	if resp.Status != "OK" {
		a.logger.Warn("reverse geocode provider status", "status", resp.Status)
		a.writeJSON(w, http.StatusOK, map[string]any{"results": []any{}, "status": resp.Status})
		return
	}

	a.storeCached(key, resp.Body)
	a.writeRaw(w, http.StatusOK, "application/json", resp.Body)
}

// handlePhotoProxy streams photo bytes through uncached: bodies are large
// and the browser cache header makes a second fetch unlikely anyway.
func (a *API) handlePhotoProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("photo_reference")
	if ref == "" {
		a.writeDetail(w, http.StatusBadRequest, "photo_reference is required")
		return
	}
	maxWidth, err := intParam(q, "maxwidth", 800)
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	photo, err := a.geocoding.Photo(r.Context(), ref, maxWidth)
	if err != nil {
		a.geocodingError(w, err, "Failed to fetch photo")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	a.writeRaw(w, http.StatusOK, photo.ContentType, photo.Data)
}

// cached looks up a geocoding response body, recording hit/miss metrics.
func (a *API) cached(key string) ([]byte, bool) {
	if a.cache == nil {
		return nil, false
	}
	body, ok := a.cache.Get(key)
	metrics.RecordGeocodingCache(ok)
	return body, ok
}

func (a *API) storeCached(key string, body []byte) {
	if a.cache != nil {
		a.cache.Set(key, body)
	}
}

// geocodingError maps provider failures: a missing credential is a
// distinct 503, everything else (transport or provider HTTP error)
// surfaces as 502 with the per-endpoint detail.
func (a *API) geocodingError(w http.ResponseWriter, err error, detail string) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, upstream.ErrNotConfigured) {
		a.writeDetail(w, http.StatusServiceUnavailable, "Google Places API not configured")
		return
	}
	a.logger.Error("geocoding provider error", "err", err)
	a.writeDetail(w, http.StatusBadGateway, detail)
}
