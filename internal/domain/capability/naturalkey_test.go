package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaturalKey_PermutationInvariant(t *testing.T) {
	a, err := NaturalKey(TypeNetwork, map[string]any{
		"hosts":   []string{"api.example.com", "cdn.example.com"},
		"schemes": []string{"https"},
		"ports":   []int{443, 8443},
	})
	require.NoError(t, err)

	b, err := NaturalKey(TypeNetwork, map[string]any{
		"ports":   []int{8443, 443},
		"schemes": []string{"https"},
		"hosts":   []string{"cdn.example.com", "api.example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNaturalKey_DeduplicatesStringLists(t *testing.T) {
	a, err := NaturalKey(TypeDB, map[string]any{
		"table":   "orders",
		"columns": []string{"id", "total", "id"},
	})
	require.NoError(t, err)

	b, err := NaturalKey(TypeDB, map[string]any{
		"table":   "orders",
		"columns": []string{"total", "id"},
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNaturalKey_NumberEncodingInvariant(t *testing.T) {
	// JSON decoding yields float64 for every number; a hand-built rule
	// with int ports must hash the same as a decoded one.
	a, err := NaturalKey(TypeNetwork, map[string]any{"ports": []any{float64(443), float64(80)}})
	require.NoError(t, err)

	b, err := NaturalKey(TypeNetwork, map[string]any{"ports": []int{80, 443}})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNaturalKey_TypeIsPartOfIdentity(t *testing.T) {
	attrs := map[string]any{"paths": []string{"logs/**"}}

	a, err := NaturalKey(TypeFile, attrs)
	require.NoError(t, err)
	b, err := NaturalKey(TypeDB, attrs)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNaturalKey_DistinctAttributesDiffer(t *testing.T) {
	a, err := NaturalKey(TypeNetwork, map[string]any{"hosts": []string{"api.example.com"}})
	require.NoError(t, err)
	b, err := NaturalKey(TypeNetwork, map[string]any{"hosts": []string{"evil.example.com"}})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNaturalKey_NestedMapsNormalized(t *testing.T) {
	a, err := NaturalKey(TypeCodec, map[string]any{
		"options": map[string]any{"allow_unserialize_classes": []string{"B", "A"}},
	})
	require.NoError(t, err)

	b, err := NaturalKey(TypeCodec, map[string]any{
		"options": map[string]any{"allow_unserialize_classes": []any{"A", "B"}},
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
