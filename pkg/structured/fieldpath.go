package structured

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dukex/lineforge/pkg/models"
)

// document converts a work unit into the generic form rule field paths walk.
// Field names are the JSON names, so "tags.duration.value" addresses the
// numeric duration.
func document(unit models.WorkUnit) map[string]any {
	raw, err := json.Marshal(unit)
	if err != nil {
		return map[string]any{}
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{}
	}

	return doc
}

// normalize maps a Go value onto its JSON form so values built in code and
// values decoded from rule documents compare the same way.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}

	return out
}

// resolve walks a dot-separated path. A missing key or a step into a
// non-container yields ok=false rather than an error.
func resolve(doc map[string]any, path string) (any, bool) {
	var current any = doc

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}

			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// Field resolves a dot path against unit. ok is false when any segment is missing.
func Field(unit models.WorkUnit, path string) (any, bool) {
	return resolve(document(unit), path)
}

// HasValue reports whether path resolves to a non-empty value.
func HasValue(unit models.WorkUnit, path string) bool {
	v, ok := Field(unit, path)

	return ok && !isEmpty(v)
}
