package ingest

// Accessors for the type-specific target map of a normalized rule. The
// manifest is schema-validated upstream, so these are lenient: a missing
// or mistyped value reads as its zero.

func targetString(target map[string]any, key string) string {
	if target == nil {
		return ""
	}
	s, _ := target[key].(string)
	return s
}

func targetBool(target map[string]any, key string) bool {
	if target == nil {
		return false
	}
	b, _ := target[key].(bool)
	return b
}

func targetStrings(target map[string]any, key string) []string {
	if target == nil {
		return nil
	}
	switch v := target[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

func targetInts(target map[string]any, key string) []int {
	if target == nil {
		return nil
	}
	switch v := target[key].(type) {
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return nil
}

func hasAction(actions []string, name string) bool {
	for _, a := range actions {
		if a == name {
			return true
		}
	}
	return false
}
