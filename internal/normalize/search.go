// ABOUTME: Maps places-service search and detail payloads onto the public contract.
// ABOUTME: Handles both the current "places" format and the database-era "data" format.

package normalize

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Place is the public place record. Optional fields marshal as null,
// matching the contract the frontend was built against.
type Place struct {
	PlaceID          string         `json:"place_id"`
	Name             string         `json:"name"`
	FormattedAddress *string        `json:"formatted_address"`
	Vicinity         *string        `json:"vicinity"`
	Latitude         *float64       `json:"latitude"`
	Longitude        *float64       `json:"longitude"`
	Types            []string       `json:"types"`
	Rating           *float64       `json:"rating"`
	UserRatingsTotal *int           `json:"user_ratings_total"`
	PriceLevel       *int           `json:"price_level"`
	PhoneNumber      *string        `json:"phone_number"`
	Website          *string        `json:"website"`
	OpeningHours     map[string]any `json:"opening_hours"`
	CustomAttributes map[string]any `json:"custom_attributes"`
	DistanceKm       *float64       `json:"distance_km"`
	IsOpen           *bool          `json:"is_open"`
}

// Envelope is the paginated search response. TotalPages is always
// derived from Total and PerPage, and Page echoes the caller's request.
type Envelope struct {
	Places     []Place `json:"places"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}

// SearchPage carries the caller-side pagination and optional caller
// coordinates used to compute distances for database-era records.
type SearchPage struct {
	Page    int
	PerPage int
	Lat     *float64
	Lon     *float64
}

// Search decodes a raw places-service search payload and maps it onto
// the public envelope.
func Search(raw []byte, page SearchPage) (*Envelope, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding search payload: %w", err)
	}

	places := []Place{}
	perPage := page.PerPage

	if _, ok := payload["places"]; ok {
		for _, item := range sliceAt(payload, "places") {
			if record, ok := item.(map[string]any); ok {
				places = append(places, frontendRecord(record))
			}
		}
		if v, ok := numberAt(payload, "per_page"); ok && int(v) > 0 {
			perPage = int(v)
		}
	} else {
		for _, item := range sliceAt(payload, "data") {
			if record, ok := item.(map[string]any); ok {
				places = append(places, databaseRecord(record, page.Lat, page.Lon))
			}
		}
		if v, ok := numberAt(payload, "limit"); ok && int(v) > 0 {
			perPage = int(v)
		}
	}

	total := len(places)
	if v, ok := numberAt(payload, "total", "total_count"); ok {
		total = int(v)
	}

	return &Envelope{
		Places:     places,
		Total:      total,
		Page:       page.Page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}, nil
}

// detailSupplements are the supplementary payload fields lifted into
// custom_attributes on the detail endpoint. They stay inside the open
// bag rather than becoming top-level fields so upstream schema growth
// never breaks the public record.
var detailSupplements = []string{
	"photos", "reviews", "tips", "features", "amenities", "popular_times",
}

// Detail decodes a raw place-detail payload and maps it onto the
// public record, merging the supplementary fields into the
// custom_attributes bag.
func Detail(raw []byte) (*Place, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding place payload: %w", err)
	}

	place := databaseRecord(payload, nil, nil)

	for _, key := range detailSupplements {
		if v, ok := payload[key]; ok && truthy(v) {
			place.CustomAttributes[key] = v
		}
	}

	return &place, nil
}

// totalPages derives the page count from the final total and page
// size. Always at least 1 so an empty result still reads as one page.
func totalPages(total, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// frontendRecord maps the current places-service format, which already
// matches the public field names.
func frontendRecord(m map[string]any) Place {
	attrs := mapAt(m, "custom_attributes")

	photos := sliceAt(attrs, "photos")
	if photos == nil {
		photos = []any{}
	}
	reviews := sliceAt(attrs, "reviews")
	if reviews == nil {
		reviews = []any{}
	}

	custom := stripNils(map[string]any{
		"city":                        attrs["city"],
		"district":                    attrs["district"],
		"primary_photo_url":           attrs["primary_photo_url"],
		"primary_photo_thumbnail_url": attrs["primary_photo_thumbnail_url"],
		"google_place_id":             attrs["google_place_id"],
	})
	custom["photos"] = photos
	custom["reviews"] = reviews

	placeID := stringAt(m, "place_id")
	if placeID == "" {
		placeID = "unknown"
	}
	name := stringAt(m, "name")
	if name == "" {
		name = "Unknown Place"
	}

	return Place{
		PlaceID:          placeID,
		Name:             name,
		FormattedAddress: strPtrAt(m, "formatted_address"),
		Vicinity:         strPtrAt(m, "vicinity"),
		Latitude:         floatPtrAt(m, "latitude"),
		Longitude:        floatPtrAt(m, "longitude"),
		Types:            stringsAt(m, "types"),
		Rating:           floatPtrAt(m, "rating"),
		UserRatingsTotal: intPtrAt(m, "user_ratings_total"),
		PriceLevel:       intPtrAt(m, "price_level"),
		PhoneNumber:      strPtrAt(m, "phone_number"),
		Website:          strPtrAt(m, "website"),
		OpeningHours:     mapAt(m, "opening_hours"),
		CustomAttributes: custom,
		DistanceKm:       floatPtrAt(m, "distance_km"),
		IsOpen:           boolPtrAt(m, "is_open"),
	}
}

// databaseRecord maps the database-era places-service format, computing
// the caller distance when both sides have coordinates.
func databaseRecord(m map[string]any, userLat, userLon *float64) Place {
	latitude := floatPtrAt(m, "latitude")
	longitude := floatPtrAt(m, "longitude")

	var distance *float64
	if userLat != nil && userLon != nil && latitude != nil && longitude != nil {
		d := distanceKm(*userLat, *userLon, *latitude, *longitude)
		distance = &d
	}

	types := []string{}
	if primary := stringAt(m, "type"); primary != "" {
		types = append(types, primary)
	}
	for _, item := range sliceAt(m, "main_categories") {
		category, ok := item.(string)
		if !ok {
			continue
		}
		seen := false
		for _, t := range types {
			if t == category {
				seen = true
				break
			}
		}
		if !seen {
			types = append(types, category)
		}
	}

	custom := stripNils(map[string]any{
		"city":                        m["city"],
		"district":                    m["district"],
		"main_categories":             m["main_categories"],
		"tags":                        m["tags"],
		"vibe_descriptor":             m["vibe_descriptor"],
		"primary_photo_url":           m["primary_photo_url"],
		"primary_photo_thumbnail_url": m["primary_photo_thumbnail_url"],
		"google_place_id":             m["google_place_id"],
	})

	placeID := stringAt(m, "id", "google_place_id")
	if placeID == "" {
		placeID = "unknown"
	}
	name := stringAt(m, "name")
	if name == "" {
		name = "Unknown Place"
	}

	var formattedAddress *string
	if s := stringAt(m, "description", "city"); s != "" {
		formattedAddress = &s
	}

	return Place{
		PlaceID:          placeID,
		Name:             name,
		FormattedAddress: formattedAddress,
		Vicinity:         strPtrAt(m, "district"),
		Latitude:         latitude,
		Longitude:        longitude,
		Types:            types,
		Rating:           floatPtrAt(m, "google_rating"),
		UserRatingsTotal: intPtrAt(m, "google_rating_count"),
		PhoneNumber:      strPtrAt(m, "phone"),
		Website:          strPtrAt(m, "website"),
		CustomAttributes: custom,
		DistanceKm:       distance,
	}
}

// distanceKm is the haversine great-circle distance in kilometers,
// rounded to two decimals.
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	rlat1, rlon1 := rad(lat1), rad(lon1)
	rlat2, rlon2 := rad(lat2), rad(lon2)

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKm*c*100) / 100
}

func strPtrAt(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func floatPtrAt(m map[string]any, key string) *float64 {
	if f, ok := toNumber(m[key]); ok {
		return &f
	}
	return nil
}

func intPtrAt(m map[string]any, key string) *int {
	if f, ok := toNumber(m[key]); ok {
		n := int(f)
		return &n
	}
	return nil
}

func boolPtrAt(m map[string]any, key string) *bool {
	if b, ok := m[key].(bool); ok {
		return &b
	}
	return nil
}

func stringsAt(m map[string]any, key string) []string {
	out := []string{}
	for _, item := range sliceAt(m, key) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
