package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TestSHA256Hex_Deterministic guards the core property the audit chain and
// proof engine depend on: the same value always hashes to the same digest.
func TestSHA256Hex_Deterministic(t *testing.T) {
	v := []sample{{Name: "emails", Count: 3}, {Name: "orders", Count: 1}}

	first, err := SHA256Hex(v)
	require.NoError(t, err)

	for range 10 {
		again, err := SHA256Hex(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSHA256Hex_EmptySliceIsStable(t *testing.T) {
	// The canonical empty representation backs afterState.dataHash.
	a, err := SHA256Hex([]sample{})
	require.NoError(t, err)
	b, err := SHA256Hex([]sample{})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	populated, err := SHA256Hex([]sample{{Name: "emails", Count: 1}})
	require.NoError(t, err)
	assert.NotEqual(t, a, populated)
}

func TestChainHash_CommitsToPredecessor(t *testing.T) {
	payload := []byte(`{"action":"erasure_completed"}`)

	h1 := ChainHash(ZeroHash, payload)
	h2 := ChainHash(h1, payload)

	assert.NotEqual(t, h1, h2, "same payload under different predecessors must differ")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, ChainHash(ZeroHash, payload))
}
