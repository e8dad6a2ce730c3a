// ABOUTME: Normalizes agent-supplied place payloads into the frontend card shape.
// ABOUTME: Place data arrives in several historical shapes; identifiers, images, and enums are unified here.

package normalize

import (
	"strings"
)

// imagePlaceholder backfills places that arrive without a usable photo.
const imagePlaceholder = "https://images.unsplash.com/photo-1504674900247-0877df9cc836"

// ChatPlace normalizes one place from an agent payload into the shape
// the frontend place cards consume. Returns nil when the payload has no
// name, which the contract treats as an unrenderable place.
//
// Identifier priority is db_id, then id, then place_id, then _id: the
// agent persists places and reports db_id, while provider-sourced
// records only carry a provider place_id.
func ChatPlace(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	name := stringAt(raw, "name")
	if name == "" {
		return nil
	}

	placeID := stringAt(raw, "db_id", "id", "place_id", "_id")

	googleID := stringAt(raw, "place_id", "google_place_id")
	if googleID == "" && stringAt(raw, "db_id") == "" {
		googleID = stringify(raw["id"])
	}
	if googleID == "" {
		googleID = placeID
	}

	category := stringAt(raw, "category")
	if category == "" {
		category = categoryFromTypes(raw["types"])
	}

	rating, _ := numberAt(raw, "rating", "google_rating", "googleRating")

	reviewCount := 0
	if f, ok := numberAt(raw, "reviewCount", "user_ratings_total", "google_rating_count", "googleReviewCount"); ok {
		reviewCount = int(f)
	}

	address := stringAt(raw, "address", "formatted_address", "vicinity")

	neighborhood := stringAt(raw, "neighborhood", "neighbourhood")
	if neighborhood == "" {
		neighborhood = neighborhoodFromAddress(address)
	}

	normalized := map[string]any{
		"name":        name,
		"category":    category,
		"description": placeDescription(raw),
		"vibe":        vibeList(raw),
		"crowdLevel":  defaultString(raw, "moderate", "crowdLevel", "crowd_level"),
		"musicType":   defaultString(raw, "ambient", "musicType", "music_type"),
		"priceLevel":  priceLevel(raw),
		"rating":      rating,
		"reviewCount": reviewCount,
		"address":     address,
		"openNow":     openNow(raw),
		"images":      placeImages(raw),
	}

	if placeID != "" {
		normalized["id"] = placeID
	}
	if googleID != "" {
		normalized["place_id"] = googleID
	}
	if neighborhood != "" {
		normalized["neighborhood"] = neighborhood
	}
	if location := placeLocation(raw); location != nil {
		normalized["location"] = location
	}
	if distance, ok := toNumber(raw["distance"]); ok {
		normalized["distance"] = distance
	}
	if status := stringAt(raw, "currentStatus", "current_status"); status != "" {
		normalized["currentStatus"] = status
	}

	passThrough := map[string]string{
		"phone":         "phone",
		"website":       "website",
		"email":         "email",
		"opening_hours": "openingHours",
		"weekly_hours":  "weeklyHours",
		"amenities":     "amenities",
		"features":      "features",
		"reviews":       "reviews",
		"socialMedia":   "socialMedia",
	}
	for src, dst := range passThrough {
		if truthy(raw[src]) {
			normalized[dst] = raw[src]
		}
	}

	return normalized
}

// ChatPlaces normalizes a list of agent places, dropping entries that
// cannot be rendered.
func ChatPlaces(items []any) []map[string]any {
	normalized := []map[string]any{}
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if place := ChatPlace(raw); place != nil {
			normalized = append(normalized, place)
		}
	}
	return normalized
}

// placeDescription prefers an explicit description, then the provider
// editorial summary, then a bare summary field.
func placeDescription(raw map[string]any) string {
	if s := stringAt(raw, "description"); s != "" {
		return s
	}
	if editorial := mapAt(raw, "editorial_summary"); editorial != nil {
		if s := stringAt(editorial, "overview"); s != "" {
			return s
		}
	}
	return stringAt(raw, "summary")
}

// priceLevel clamps to the 1-4 scale the cards render; anything absent
// or non-integral reads as the midpoint.
func priceLevel(raw map[string]any) int {
	f, ok := numberAt(raw, "priceLevel", "price_level")
	if !ok || f != float64(int(f)) {
		return 2
	}
	level := int(f)
	if level < 1 {
		return 2
	}
	if level > 4 {
		return 4
	}
	return level
}

// openNow defaults to open: an unknown state must not hide the place
// from "open now" filters.
func openNow(raw map[string]any) bool {
	if v, ok := raw["openNow"]; ok && v != nil {
		return truthy(v)
	}
	if v, ok := raw["open_now"]; ok && v != nil {
		return truthy(v)
	}
	if hours := mapAt(raw, "opening_hours"); hours != nil {
		if v, ok := hours["open_now"]; ok && v != nil {
			return truthy(v)
		}
	}
	return true
}

// placeImages picks usable image URLs. Bare photo references (long
// non-URL strings) need a provider API call to resolve, so they are
// dropped rather than emitted as broken links.
func placeImages(raw map[string]any) []any {
	images := []any{}

	switch {
	case truthy(raw["images"]):
		items, ok := raw["images"].([]any)
		if !ok {
			items = []any{raw["images"]}
		}
		for _, item := range items {
			if s, isStr := item.(string); isStr && len(s) > 50 && !strings.HasPrefix(s, "http") {
				continue
			}
			images = append(images, item)
		}
	case truthy(raw["photo_url"]):
		images = append(images, raw["photo_url"])
	case truthy(raw["primary_photo_url"]):
		images = append(images, raw["primary_photo_url"])
	case truthy(raw["primary_photo_thumbnail_url"]):
		images = append(images, raw["primary_photo_thumbnail_url"])
	default:
		photos := sliceAt(raw, "photos")
		if len(photos) > 3 {
			photos = photos[:3]
		}
		for _, item := range photos {
			switch photo := item.(type) {
			case string:
				if strings.HasPrefix(photo, "http") {
					images = append(images, photo)
				}
			case map[string]any:
				if u := stringAt(photo, "url", "photo_url"); strings.HasPrefix(u, "http") {
					images = append(images, u)
				}
			}
		}
	}

	if len(images) == 0 {
		return []any{imagePlaceholder}
	}
	return images
}

// placeLocation finds coordinates either top-level or nested under the
// provider geometry, and mirrors lng/lon so both spellings are present.
func placeLocation(raw map[string]any) map[string]any {
	location := mapAt(raw, "location")
	if location == nil {
		if geometry := mapAt(raw, "geometry"); geometry != nil {
			location = mapAt(geometry, "location")
		}
	}
	if location == nil {
		return nil
	}

	out := make(map[string]any, len(location)+1)
	for k, v := range location {
		out[k] = v
	}
	_, hasLng := out["lng"]
	_, hasLon := out["lon"]
	if hasLng && !hasLon {
		out["lon"] = out["lng"]
	} else if hasLon && !hasLng {
		out["lng"] = out["lon"]
	}
	return out
}

func vibeList(raw map[string]any) []any {
	v := raw["vibe"]
	if !truthy(v) {
		v = raw["vibe_descriptor"]
	}
	if list, ok := v.([]any); ok {
		return list
	}
	if truthy(v) {
		return []any{v}
	}
	return []any{}
}

func defaultString(raw map[string]any, def string, keys ...string) string {
	if s := stringAt(raw, keys...); s != "" {
		return s
	}
	return def
}

// categoryFromTypes maps provider type tags to the card categories.
func categoryFromTypes(v any) string {
	var primary string
	switch types := v.(type) {
	case []any:
		if len(types) > 0 {
			primary, _ = types[0].(string)
		}
	case string:
		primary = types
	}
	if primary == "" {
		return "place"
	}

	t := strings.ToLower(primary)
	switch {
	case containsAny(t, "restaurant", "food", "meal", "dining"):
		return "restaurant"
	case containsAny(t, "bar", "pub", "tavern"):
		return "bar"
	case containsAny(t, "night_club", "club", "disco"):
		return "club"
	case containsAny(t, "cafe", "coffee"):
		return "cafe"
	case containsAny(t, "lounge", "cocktail"):
		return "lounge"
	default:
		return "activity"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// neighborhoodFromAddress takes the street segment before the first
// comma as a rough neighborhood label.
func neighborhoodFromAddress(address string) string {
	if address == "" {
		return ""
	}
	parts := strings.Split(address, ",")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[0])
	}
	return ""
}
