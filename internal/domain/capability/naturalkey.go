package capability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// canonicalEnc produces deterministic CBOR: sorted map keys, shortest-form
// integers. Combined with normalizeValue below this makes the natural key
// permutation- and encoding-invariant.
var canonicalEnc cbor.EncMode

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("capability: canonical cbor mode: %v", err))
	}
	canonicalEnc = mode
}

// NaturalKey computes the stable content hash identifying a concrete
// permission row. Two semantically identical rules always produce the same
// key; this is the sole idempotency mechanism for re-ingestion. Callers
// must never invent their own keys.
func NaturalKey(t Type, attrs map[string]any) (string, error) {
	payload := map[string]any{
		"type":  string(t),
		"attrs": normalizeValue(attrs),
	}
	raw, err := canonicalEnc.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("natural key for %s: %w", t, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// normalizeValue rewrites a rule attribute value into canonical form:
// string lists are deduplicated and sorted lexicographically, integer lists
// numerically, nested maps normalized recursively, and numbers collapsed to
// int64 where they carry no fraction (JSON decoding yields float64 for
// every number; 443 and 443.0 must hash identically).
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalizeValue(inner)
		}
		return out
	case map[string]bool:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = inner
		}
		return out
	case []string:
		return sortedUniqueStrings(val)
	case []int:
		ints := make([]int64, len(val))
		for i, n := range val {
			ints[i] = int64(n)
		}
		sort.Slice(ints, func(i, j int) bool { return ints[i] < ints[j] })
		return ints
	case []int64:
		ints := append([]int64(nil), val...)
		sort.Slice(ints, func(i, j int) bool { return ints[i] < ints[j] })
		return ints
	case []any:
		return normalizeSlice(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return int64(val)
		}
		return val
	case float32:
		return normalizeValue(float64(val))
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		return int64(val)
	default:
		return v
	}
}

// normalizeSlice sorts homogeneous string or integer slices and normalizes
// elements of anything else in place order.
func normalizeSlice(vals []any) any {
	if len(vals) == 0 {
		return []any{}
	}

	allStrings := true
	allNumbers := true
	for _, v := range vals {
		switch v.(type) {
		case string:
			allNumbers = false
		case float64, int, int64, int32, uint64:
			allStrings = false
		default:
			allStrings = false
			allNumbers = false
		}
	}

	if allStrings {
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = v.(string)
		}
		return sortedUniqueStrings(strs)
	}

	if allNumbers {
		ints := make([]int64, 0, len(vals))
		floats := make([]float64, 0)
		for _, v := range vals {
			switch n := normalizeValue(v).(type) {
			case int64:
				ints = append(ints, n)
			case float64:
				floats = append(floats, n)
			}
		}
		if len(floats) == 0 {
			sort.Slice(ints, func(i, j int) bool { return ints[i] < ints[j] })
			return ints
		}
		for _, n := range ints {
			floats = append(floats, float64(n))
		}
		sort.Float64s(floats)
		return floats
	}

	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = normalizeValue(v)
	}
	return out
}

func sortedUniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
