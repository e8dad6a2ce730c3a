// ABOUTME: Tests for the plan normalizer.
// ABOUTME: Structured planner output, legacy format fallback, and duration label parsing.

package normalize

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_Empty(t *testing.T) {
	assert.Nil(t, Plan(nil))
	assert.Nil(t, Plan(map[string]any{}))
}

func TestPlan_StructuredFormat(t *testing.T) {
	raw := map[string]any{}
	payload := `{
		"planId": "plan-9",
		"title": "Noche en el Tubo",
		"category": "nightlife",
		"vibes": "energetic",
		"tags": ["tapas", "bares"],
		"summary": {"totalDuration": "6h 00m", "totalDistanceKm": 3.2},
		"stops": [
			{
				"localId": "stop-1",
				"name": "Casa Lac",
				"typeLabel": "Cena",
				"location": {"address": "Calle de los Mártires 12"},
				"timing": {"recommendedStart": "20:30", "suggestedDurationMinutes": 90},
				"details": {"vibes": "romantic"}
			},
			{
				"name": "Bar El Champi",
				"category": "bar"
			}
		]
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	plan := Plan(raw)
	require.NotNil(t, plan)

	assert.Equal(t, "plan-9", plan["id"])
	assert.Equal(t, "Noche en el Tubo", plan["name"])
	assert.Equal(t, "", plan["description"])
	assert.Equal(t, []any{"energetic"}, plan["vibes"])
	assert.Equal(t, 360, plan["totalDuration"])
	assert.Equal(t, 3.2, plan["totalDistance"])

	detailed, ok := plan["stopsDetailed"].([]any)
	require.True(t, ok)
	require.Len(t, detailed, 2)

	firstDetails := detailed[0].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, []any{"romantic"}, firstDetails["vibes"])

	stops, ok := plan["stops"].([]any)
	require.True(t, ok)
	require.Len(t, stops, 2)

	first := stops[0].(map[string]any)
	assert.Equal(t, 90, first["duration"])
	assert.Equal(t, "20:30", first["startTime"])
	assert.Equal(t, "Cena", first["activity"])
	firstPlace := first["place"].(map[string]any)
	assert.Equal(t, "stop-1", firstPlace["id"])
	assert.Equal(t, "Calle de los Mártires 12", firstPlace["address"])

	second := stops[1].(map[string]any)
	assert.Equal(t, 60, second["duration"])
	assert.Equal(t, "19:00", second["startTime"])
	assert.Equal(t, "bar", second["activity"])
	secondPlace := second["place"].(map[string]any)
	assert.Equal(t, "Bar El Champi", secondPlace["id"])
}

func TestPlan_StructuredDetectionByStopsAndSummary(t *testing.T) {
	plan := Plan(map[string]any{
		"stops":   []any{map[string]any{"name": "Casa Lac"}},
		"summary": map[string]any{"totalDuration": "45m"},
	})
	require.NotNil(t, plan)

	assert.Contains(t, plan, "stopsDetailed")
	assert.Equal(t, 45, plan["totalDuration"])
	assert.NotContains(t, plan, "totalDistance")
	assert.Equal(t, "Untitled Plan", plan["name"])
}

func TestPlan_StructuredStopVibesNotMutated(t *testing.T) {
	details := map[string]any{"vibes": "chill"}
	raw := map[string]any{
		"planId": "p1",
		"stops":  []any{map[string]any{"name": "A", "details": details}},
	}

	plan := Plan(raw)
	require.NotNil(t, plan)

	assert.Equal(t, "chill", details["vibes"], "caller's details map was mutated")
}

func TestPlan_LegacyFormat(t *testing.T) {
	plan := Plan(map[string]any{
		"id":             "legacy-3",
		"name":           "Ruta clásica",
		"vibe":           []any{"sophisticated", "chill"},
		"total_duration": float64(180),
		"totalDistance":  2.5,
		"stops": []any{
			map[string]any{
				"place":      map[string]any{"name": "Casa Lac", "id": "p1"},
				"duration":   float64(75),
				"start_time": "20:00",
				"activity":   "Cena",
			},
			map[string]any{
				"place": map[string]any{"id": "nameless"},
			},
			map[string]any{
				"place": map[string]any{"name": "El Plata", "id": "p2"},
			},
		},
	})
	require.NotNil(t, plan)

	assert.Equal(t, "legacy-3", plan["id"])
	assert.Equal(t, "Ruta clásica", plan["name"])
	assert.Equal(t, "sophisticated", plan["vibe"])
	assert.Equal(t, 180, plan["totalDuration"])
	assert.Equal(t, 2.5, plan["totalDistance"])

	stops, ok := plan["stops"].([]any)
	require.True(t, ok)
	require.Len(t, stops, 2, "stop with unrenderable place should be dropped")

	first := stops[0].(map[string]any)
	assert.Equal(t, 75, first["duration"])
	assert.Equal(t, "20:00", first["startTime"])
	assert.Equal(t, "Cena", first["activity"])

	place := first["place"].(map[string]any)
	assert.Equal(t, "Casa Lac", place["name"])
	assert.Equal(t, "p1", place["id"])

	second := stops[1].(map[string]any)
	assert.Equal(t, 60, second["duration"])
	assert.Equal(t, "19:00", second["startTime"])
	assert.Equal(t, "Visit", second["activity"])
}

func TestPlan_LegacyDefaults(t *testing.T) {
	plan := Plan(map[string]any{"description": "solo texto"})
	require.NotNil(t, plan)

	assert.Equal(t, "Unnamed Plan", plan["name"])
	assert.Equal(t, "casual", plan["vibe"])
	assert.Equal(t, 0, plan["totalDuration"])
	assert.Equal(t, 0.0, plan["totalDistance"])
	assert.Equal(t, []any{}, plan["stops"])
	assert.NotContains(t, plan, "id")
}

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"6h 00m", 360},
		{"1h 30m", 90},
		{"2h", 120},
		{"45m", 45},
		{"2H 15M", 135},
		{"", 0},
		{"pronto", 0},
		{"h 30m", 0},
		{"90", 0},
	}

	for _, tt := range tests {
		if got := durationMinutes(tt.label); got != tt.want {
			t.Errorf("durationMinutes(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}
}
