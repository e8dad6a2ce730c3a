// ABOUTME: Accessors for dynamic JSON payloads decoded into map[string]any.
// ABOUTME: Field lookups tolerate missing keys and mixed value types.

package normalize

import (
	"strconv"
)

// stringAt returns the first non-empty string rendering among keys.
func stringAt(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringify(m[key]); s != "" {
			return s
		}
	}
	return ""
}

// stringify renders scalar JSON values the way identifiers appear on
// the wire: numbers without an exponent, everything else as-is.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// numberAt returns the first numeric value among keys. Numeric strings
// count; JSON booleans and structures do not.
func numberAt(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := toNumber(m[key]); ok {
			return f, true
		}
	}
	return 0, false
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// mapAt returns the map under key, or nil when absent or differently
// typed.
func mapAt(m map[string]any, key string) map[string]any {
	child, _ := m[key].(map[string]any)
	return child
}

// sliceAt returns the slice under key, or nil.
func sliceAt(m map[string]any, key string) []any {
	items, _ := m[key].([]any)
	return items
}

// getOr returns the value stored under key, or def when the key is
// absent. An explicit null in the payload is returned as nil, not
// replaced by the default.
func getOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// truthy mirrors the loose boolean coercion the frontend contract
// assumes for optional flags and presence checks.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// stripNils removes keys whose value is an explicit null so optional
// fields disappear from the serialized object instead of rendering as
// JSON null.
func stripNils(m map[string]any) map[string]any {
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m
}
