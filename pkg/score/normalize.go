package score

import (
	"math"
	"strings"
)

// Normalize substitutes def for a missing or NaN metric and clamps the
// result so it is never negative.
func Normalize(c Count, def float64) float64 {
	v := c.Value
	if !c.Valid || math.IsNaN(v) {
		v = def
	}
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(v, 0)
}

// NormalizeLanguages reduces a language list to its set of distinct names.
// It accepts a comma-separated string or a list of strings; any other input
// yields an empty set.
func NormalizeLanguages(v any) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range flatten(v) {
		set[s] = struct{}{}
	}
	return set
}

func flatten(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = []string{t}
	case Languages:
		raw = t
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	default:
		return nil
	}

	list := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, p := range strings.Split(r, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
	}
	return list
}
