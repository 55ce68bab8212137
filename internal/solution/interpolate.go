package solution

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gisops/solclone/models"
)

// Placeholder tokens are the only mechanism for encoding "value not yet
// known" inside a template. A token {{<id>.<field>}} is replaced during
// deployment with the value map entry for <id>; the :optional suffix marks
// tokens whose containing value is deleted instead when the id never gets an
// entry.
const (
	// PortalToken stands in for the destination organization's base URL.
	PortalToken = "{{portal.url}}"

	// ExtentToken is the shared org-level extent placeholder applied to
	// every templatizable item that carries an extent.
	ExtentToken = "{{initiative.extent:optional}}"
)

var tokenPattern = regexp.MustCompile(`\{\{([0-9a-zA-Z_-]+)\.([a-zA-Z]+)(:optional)?\}\}`)

// Placeholder builds the token for one id/field pair.
func Placeholder(id, field string) string {
	return fmt.Sprintf("{{%s.%s}}", id, field)
}

// IsTemplatized reports whether a value already carries a placeholder token.
// Templatization must be idempotent, so every handler checks this before
// wrapping an id.
func IsTemplatized(s string) bool {
	return strings.HasPrefix(s, "{{")
}

// BaseID strips a placeholder wrapper from an id, returning the raw source
// id. Raw ids pass through unchanged, which makes collection lookups robust
// to templatized-vs-raw id forms.
func BaseID(id string) string {
	if !IsTemplatized(id) {
		return id
	}
	if m := tokenPattern.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return strings.Trim(id, "{}")
}

// RemoveDuplicates returns the distinct elements of ids, preserving
// first-seen order.
func RemoveDuplicates(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Interpolate replaces placeholder tokens anywhere in a nested JSON value
// with entries from the value map. The second return value is false when the
// value should be deleted from its container: that happens only for values
// that consist of a single :optional token whose id has no entry.
//
// Required tokens with no entry are left untouched; their values may arrive
// later in the run.
func Interpolate(v any, vm models.ValueMap) (any, bool) {
	switch t := v.(type) {
	case string:
		return interpolateString(t, vm)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			nv, keep := Interpolate(val, vm)
			if keep {
				out[k] = nv
			}
		}
		return out, true
	case models.JSONMap:
		nv, keep := Interpolate(map[string]any(t), vm)
		return models.JSONMap(nv.(map[string]any)), keep
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			nv, keep := Interpolate(val, vm)
			if keep {
				out = append(out, nv)
			}
		}
		return out, true
	default:
		return v, true
	}
}

func interpolateString(s string, vm models.ValueMap) (any, bool) {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil {
		return s, true
	}

	// A string that is exactly one token resolves to the entry's typed
	// value, so extents and other non-string fields survive substitution.
	if m[0] == s {
		id, field, optional := m[1], m[2], m[3] != ""
		entry, ok := vm[id]
		if !ok {
			if optional {
				return nil, false
			}
			return s, true
		}
		if val, ok := entry.Field(field); ok {
			return val, true
		}
		if optional {
			return nil, false
		}
		return s, true
	}

	// Tokens embedded in a larger string substitute textually.
	out := tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		tm := tokenPattern.FindStringSubmatch(tok)
		entry, ok := vm[tm[1]]
		if !ok {
			if tm[3] != "" {
				return ""
			}
			return tok
		}
		val, ok := entry.Field(tm[2])
		if !ok {
			return tok
		}
		return fmt.Sprintf("%v", val)
	})
	return out, true
}

// InterpolateMap interpolates every value of a JSON object.
func InterpolateMap(m models.JSONMap, vm models.ValueMap) models.JSONMap {
	out, _ := Interpolate(m, vm)
	return out.(models.JSONMap)
}

// InterpolateBytes interpolates a raw JSON document.
func InterpolateBytes(data []byte, vm models.ValueMap) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode data for interpolation: %w", err)
	}
	nv, _ := Interpolate(v, vm)
	out, err := json.Marshal(nv)
	if err != nil {
		return nil, fmt.Errorf("failed to encode interpolated data: %w", err)
	}
	return out, nil
}
