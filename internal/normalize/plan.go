// ABOUTME: Normalizes agent-generated plans into the frontend plan shape.
// ABOUTME: Supports the structured planner output and the legacy name/stops format.

package normalize

import (
	"strconv"
	"strings"
)

// Plan normalizes an agent plan payload. The structured planner output
// is detected by its planId or by stops paired with a summary block;
// anything else is treated as the legacy format. Returns nil for empty
// input.
func Plan(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	if truthy(raw["planId"]) || (truthy(raw["stops"]) && truthy(raw["summary"])) {
		return structuredPlan(raw)
	}
	return legacyPlan(raw)
}

// structuredPlan keeps the planner's rich fields (stopsDetailed,
// summary, execution, vibes, tags) and derives the lightweight stops
// array older components still read.
func structuredPlan(raw map[string]any) map[string]any {
	planID := stringAt(raw, "planId", "id", "_id")

	stopsDetailed := []any{}
	for _, item := range sliceAt(raw, "stops") {
		stop, ok := item.(map[string]any)
		if !ok {
			continue
		}
		stop = wrapStopVibes(stop)
		stopsDetailed = append(stopsDetailed, stop)
	}

	stops := []any{}
	for _, item := range stopsDetailed {
		stop := item.(map[string]any)
		timing := mapAt(stop, "timing")

		duration := 60
		if f, ok := toNumber(timing["suggestedDurationMinutes"]); ok {
			duration = int(f)
		}
		startTime := stringAt(timing, "recommendedStart")
		if startTime == "" {
			startTime = "19:00"
		}
		activity := stringAt(stop, "typeLabel", "category")
		if activity == "" {
			activity = "Visit"
		}

		stops = append(stops, map[string]any{
			"place": map[string]any{
				"id":      stringAt(stop, "localId", "name"),
				"name":    stop["name"],
				"address": mapAt(stop, "location")["address"],
			},
			"duration":  duration,
			"startTime": startTime,
			"activity":  activity,
		})
	}

	summary := mapAt(raw, "summary")

	totalDuration := 0
	if s := stringAt(summary, "totalDuration"); s != "" {
		totalDuration = durationMinutes(s)
	}
	var totalDistance any
	if f, ok := toNumber(summary["totalDistanceKm"]); ok {
		totalDistance = f
	}

	normalized := map[string]any{
		"name":                 defaultString(raw, "Untitled Plan", "title", "name"),
		"description":          getOr(raw, "description", ""),
		"category":             raw["category"],
		"vibes":                listOr(raw["vibes"]),
		"tags":                 getOr(raw, "tags", []any{}),
		"execution":            raw["execution"],
		"stops":                stops,
		"stopsDetailed":        stopsDetailed,
		"summary":              raw["summary"],
		"finalRecommendations": getOr(raw, "finalRecommendations", []any{}),
		"totalDuration":        totalDuration,
		"totalDistance":        totalDistance,
	}
	if planID != "" {
		normalized["id"] = planID
	}

	return stripNils(normalized)
}

// legacyPlan normalizes the flat name/description/vibe format whose
// stops embed full place payloads.
func legacyPlan(raw map[string]any) map[string]any {
	planID := stringAt(raw, "id", "_id")

	stops := []any{}
	for _, item := range sliceAt(raw, "stops") {
		stop, ok := item.(map[string]any)
		if !ok || len(stop) == 0 {
			continue
		}

		place := ChatPlace(mapAt(stop, "place"))
		if place == nil {
			continue
		}

		duration := 60
		if f, ok := toNumber(stop["duration"]); ok {
			duration = int(f)
		}
		startTime := stringAt(stop, "startTime", "start_time")
		if startTime == "" {
			startTime = "19:00"
		}
		activity := stringAt(stop, "activity")
		if activity == "" {
			activity = "Visit"
		}

		stops = append(stops, map[string]any{
			"place":     place,
			"duration":  duration,
			"startTime": startTime,
			"activity":  activity,
		})
	}

	vibe := "casual"
	switch v := raw["vibe"].(type) {
	case string:
		if v != "" {
			vibe = v
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok && s != "" {
				vibe = s
			}
		}
	}

	totalDuration := 0
	if f, ok := numberAt(raw, "totalDuration", "total_duration"); ok {
		totalDuration = int(f)
	}
	totalDistance := 0.0
	if f, ok := numberAt(raw, "totalDistance", "total_distance"); ok {
		totalDistance = f
	}

	normalized := map[string]any{
		"name":          defaultString(raw, "Unnamed Plan", "name"),
		"description":   getOr(raw, "description", ""),
		"vibe":          vibe,
		"totalDuration": totalDuration,
		"totalDistance": totalDistance,
		"stops":         stops,
	}
	if planID != "" {
		normalized["id"] = planID
	}

	return stripNils(normalized)
}

// wrapStopVibes coerces a stop's details.vibes to a list without
// mutating the caller's maps.
func wrapStopVibes(stop map[string]any) map[string]any {
	details := mapAt(stop, "details")
	if details == nil {
		return stop
	}
	v, ok := details["vibes"]
	if !ok || v == nil {
		return stop
	}
	if _, isList := v.([]any); isList {
		return stop
	}

	detailsCopy := make(map[string]any, len(details))
	for k, val := range details {
		detailsCopy[k] = val
	}
	if truthy(v) {
		detailsCopy["vibes"] = []any{v}
	} else {
		detailsCopy["vibes"] = []any{}
	}

	stopCopy := make(map[string]any, len(stop))
	for k, val := range stop {
		stopCopy[k] = val
	}
	stopCopy["details"] = detailsCopy
	return stopCopy
}

func listOr(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	if truthy(v) {
		return []any{v}
	}
	return []any{}
}

// durationMinutes parses planner duration labels like "6h 00m", "45m",
// or "2h" into minutes. Unparseable labels read as zero.
func durationMinutes(label string) int {
	label = strings.ToLower(label)

	if h, rest, found := strings.Cut(label, "h"); found {
		hours, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return 0
		}
		minutes := 0
		if m, _, hasM := strings.Cut(rest, "m"); hasM {
			m = strings.TrimSpace(m)
			if m != "" {
				parsed, err := strconv.Atoi(m)
				if err != nil {
					return 0
				}
				minutes = parsed
			}
		}
		return hours*60 + minutes
	}

	if strings.Contains(label, "m") {
		m := strings.TrimSpace(strings.ReplaceAll(label, "m", ""))
		minutes, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return minutes
	}

	return 0
}
