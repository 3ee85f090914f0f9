package config

// DeepMerge returns a new tree holding base overlaid with overlay. Values from
// overlay win per key; when both sides hold a mapping the two are merged
// recursively, any other value in overlay replaces the one in base. Neither
// input is modified.
func DeepMerge(base, overlay map[string]any) map[string]any {
	result := CopyTree(base)
	if result == nil {
		result = make(map[string]any)
	}

	for k, v := range overlay {
		overMap, overIsMap := asMap(v)
		baseMap, baseIsMap := asMap(result[k])
		if overIsMap && baseIsMap {
			result[k] = DeepMerge(baseMap, overMap)
			continue
		}
		result[k] = copyValue(v)
	}

	return result
}

// CopyTree returns a deep copy of a generic configuration tree
func CopyTree(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyTree(val)
	case map[any]any:
		m, _ := asMap(val)
		return CopyTree(m)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// asMap normalizes the two mapping shapes decoders produce
func asMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			if ks, ok := k.(string); ok {
				m[ks] = item
			}
		}
		return m, true
	default:
		return nil, false
	}
}
