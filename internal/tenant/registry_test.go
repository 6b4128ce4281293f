package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownKey(t *testing.T) {
	reg := NewRegistry(map[string]string{
		"key-one": "kleineprints",
		"key-two": "pokal-total",
	})

	slug, ok := reg.Resolve("key-one")
	require.True(t, ok)
	assert.Equal(t, "kleineprints", slug)
}

func TestResolveUnknownKey(t *testing.T) {
	reg := NewRegistry(map[string]string{"key-one": "kleineprints"})

	_, ok := reg.Resolve("other")
	assert.False(t, ok, "unknown key must be rejected")

	_, ok = reg.Resolve("")
	assert.False(t, ok, "empty key must be rejected")
}

func TestRegistrySkipsBlankEntries(t *testing.T) {
	reg := NewRegistry(map[string]string{
		"":        "tenant",
		"key-one": "",
		" k ":     " t ",
	})
	require.Equal(t, 1, reg.Len())

	slug, ok := reg.Resolve("k")
	require.True(t, ok, "trimmed key must resolve")
	assert.Equal(t, "t", slug)
}
