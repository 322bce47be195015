package store

import (
	"maps"
	"slices"
)

// Props holds node or edge properties. Values are strings, numbers, booleans
// or lists of those. Backends may hand lists back as []any; the accessors
// below normalise them.
type Props map[string]any

// Clone returns a shallow copy with copied string lists.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		if list, ok := v.([]string); ok {
			out[k] = slices.Clone(list)
			continue
		}
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with every key of other added where p has none.
func (p Props) Merge(other Props) Props {
	out := p.Clone()
	if out == nil {
		out = Props{}
	}
	for k, v := range other {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Keys returns the property names in sorted order.
func (p Props) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// String returns the string value of key or "".
func (p Props) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Strings returns the string list stored under key.
func (p Props) Strings(key string) []string {
	return StringList(p[key])
}

// Float returns the numeric value of key as float64.
func (p Props) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return 0
}

// Int returns the numeric value of key as int.
func (p Props) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}

// StringList converts list-like values to []string, skipping non-strings.
func StringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return slices.Clone(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	}
	return nil
}

// AppendUnique appends every value not already present, keeping order.
func AppendUnique(list []string, values ...string) []string {
	out := slices.Clone(list)
	for _, v := range values {
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
