// ABOUTME: Place search, detail, and cluster handlers proxying the places service.
// ABOUTME: Translates the public contract into the upstream's native query parameters.

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/auphere/auphere-gateway/internal/normalize"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

// PlaceSearchRequest is the POST /places/search body. The q and limit
// fields are aliases older clients still send for query and per_page.
// Optional numerics are pointers so an explicit zero still hits the
// validation bounds instead of reading as absent.
type PlaceSearchRequest struct {
	Query      string   `json:"query"`
	Q          string   `json:"q"`
	City       string   `json:"city"`
	MinRating  *float64 `json:"min_rating" validate:"omitempty,gte=0,lte=5"`
	Categories []string `json:"categories"`
	Vibes      []string `json:"vibes"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Radius     *int     `json:"radius" validate:"omitempty,gte=100,lte=50000"`
	Page       *int     `json:"page" validate:"omitempty,gte=1"`
	PerPage    *int     `json:"per_page" validate:"omitempty,gte=1,lte=100"`
	Limit      *int     `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (a *API) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q, "page", 1)
	if err == nil && page < 1 {
		err = errors.New("page must be >= 1")
	}
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit", 20)
	if err == nil && (limit < 1 || limit > 100) {
		err = errors.New("limit must be between 1 and 100")
	}
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	lat, err := floatParam(q, "lat")
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := floatParam(q, "lon")
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	city := q.Get("city")
	query := q.Get("q")
	switch {
	case city != "":
		params.Set("city", city)
	case query == "" && a.cfg.Upstreams.Places.DefaultCity != "":
		params.Set("city", a.cfg.Upstreams.Places.DefaultCity)
	}
	if query != "" {
		params.Set("q", query)
	}
	if lat != nil {
		params.Set("lat", formatFloat(*lat))
	}
	if lon != nil {
		params.Set("lon", formatFloat(*lon))
	}
	for _, key := range []string{"radius_km", "min_rating", "type"} {
		if v := q.Get(key); v != "" {
			params.Set(key, v)
		}
	}

	a.search(r.Context(), w, params, normalize.SearchPage{Page: page, PerPage: limit, Lat: lat, Lon: lon})
}

func (a *API) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req PlaceSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := a.validate.Struct(&req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid search request: %v", err))
		return
	}

	if req.Query == "" {
		req.Query = req.Q
	}
	if req.PerPage == nil {
		req.PerPage = req.Limit
	}
	if req.Page == nil {
		req.Page = intPtr(1)
	}
	if req.PerPage == nil {
		req.PerPage = intPtr(20)
	}
	if req.Radius == nil {
		req.Radius = intPtr(5000)
	}

	page := normalize.SearchPage{
		Page:    *req.Page,
		PerPage: *req.PerPage,
		Lat:     req.Latitude,
		Lon:     req.Longitude,
	}
	a.search(r.Context(), w, a.searchParams(&req), page)
}

// search runs the upstream query and normalizes the envelope.
func (a *API) search(ctx context.Context, w http.ResponseWriter, params url.Values, page normalize.SearchPage) {
	raw, err := a.places.Search(ctx, params)
	if err != nil {
		a.placesError(w, err)
		return
	}

	envelope, err := normalize.Search(raw, page)
	if err != nil {
		a.logger.Error("decoding search response", "err", err)
		a.writeDetail(w, http.StatusInternalServerError, "Search failed")
		return
	}
	a.writeJSON(w, http.StatusOK, envelope)
}

// searchParams translates a search body into the upstream's parameters.
// Defaults must already be applied.
func (a *API) searchParams(req *PlaceSearchRequest) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(*req.Page))
	params.Set("limit", strconv.Itoa(*req.PerPage))

	city := req.City
	if city == "" {
		city = a.cfg.Upstreams.Places.DefaultCity
	}
	if city != "" {
		params.Set("city", city)
	}
	if req.Query != "" {
		params.Set("q", req.Query)
	}
	if req.Latitude != nil {
		params.Set("lat", formatFloat(*req.Latitude))
	}
	if req.Longitude != nil {
		params.Set("lon", formatFloat(*req.Longitude))
	}
	if *req.Radius > 0 {
		params.Set("radius_km", formatFloat(math.Max(float64(*req.Radius)/1000.0, 0.1)))
	}
	if len(req.Categories) > 0 {
		params.Set("type", req.Categories[0])
	}
	for _, vibe := range req.Vibes {
		params.Add("tags", vibe)
	}
	if req.MinRating != nil {
		params.Set("min_rating", formatFloat(*req.MinRating))
	}
	return params
}

// handlePlaceDetail forwards the opaque place identifier without
// interpreting its format.
func (a *API) handlePlaceDetail(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "place_id")
	if placeID == "" {
		a.writeDetail(w, http.StatusBadRequest, "place_id is required")
		return
	}

	raw, err := a.places.Detail(r.Context(), placeID)
	if err != nil {
		a.placeDetailError(w, err)
		return
	}

	place, err := normalize.Detail(raw)
	if err != nil {
		a.logger.Error("decoding place detail", "place_id", placeID, "err", err)
		a.writeDetail(w, http.StatusInternalServerError, "Failed to get place details")
		return
	}
	a.writeJSON(w, http.StatusOK, place)
}

func (a *API) placeDetailError(w http.ResponseWriter, err error) {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, context.Canceled):
		// Caller is gone; nothing to write.
	case errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound:
		a.writeDetail(w, http.StatusNotFound, "Place not found")
	case errors.As(err, &statusErr):
		a.writeDetail(w, statusErr.Status, "Places service error: "+string(statusErr.Body))
	case errors.Is(err, upstream.ErrUnavailable):
		a.writeDetail(w, http.StatusBadGateway, "Failed to reach places service")
	default:
		a.writeDetail(w, http.StatusInternalServerError, "Failed to get place details")
	}
}

// handleClusters proxies the geospatial cluster endpoint verbatim; the
// clustering itself is owned by the places service.
func (a *API) handleClusters(w http.ResponseWriter, r *http.Request) {
	raw, err := a.places.Clusters(r.Context(), r.URL.Query())
	if err != nil {
		a.placesError(w, err)
		return
	}
	a.writeRaw(w, http.StatusOK, "application/json", raw)
}

func intParam(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func intPtr(v int) *int {
	return &v
}
