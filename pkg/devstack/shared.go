package devstack

import "sort"

// SharedConfig holds prop values and layer-published values, keyed by prop or
// layer name.
type SharedConfig map[string]any

// Lookup walks nested maps along path, e.g. Lookup("Docker", "network").
func (s SharedConfig) Lookup(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = map[string]any(s)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the value at path when it is a string.
func (s SharedConfig) String(path ...string) (string, bool) {
	v, ok := s.Lookup(path...)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Keys returns the top-level names in sorted order.
func (s SharedConfig) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case SharedConfig:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	default:
		return nil, false
	}
}
