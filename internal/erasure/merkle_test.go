package erasure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certus/pkg/platform/canonical"
)

func TestMerkleRoot_Deterministic(t *testing.T) {
	leaves := []string{"aa", "bb", "cc", "dd"}
	first := MerkleRoot(leaves)
	second := MerkleRoot(leaves)
	assert.Equal(t, first, second)

	reordered := MerkleRoot([]string{"bb", "aa", "cc", "dd"})
	assert.NotEqual(t, first, reordered, "leaf order must affect the root")
}

func TestMerkleRoot_OddLeafSelfPairs(t *testing.T) {
	// Three leaves: the dangling third pairs with itself.
	ab := canonical.HashBytes([]byte("aa" + "bb"))
	cc := canonical.HashBytes([]byte("cc" + "cc"))
	want := canonical.HashBytes([]byte(ab + cc))
	assert.Equal(t, want, MerkleRoot([]string{"aa", "bb", "cc"}))
}

func TestMerkleRoot_Empty(t *testing.T) {
	assert.Equal(t, canonical.ZeroHash, MerkleRoot(nil))
}

func TestMerkleTree_Consistent(t *testing.T) {
	leaves, err := EvidenceLeaves([]Evidence{
		{Location: "db1", DataType: "profile", Operation: OperationEncryptDelete, Passes: 1, VerificationHash: "h1", ErasedAt: time.Unix(100, 0).UTC()},
		{Location: "db2", DataType: "billing", Operation: OperationEncryptDelete, Passes: 1, VerificationHash: "h2", ErasedAt: time.Unix(101, 0).UTC()},
	})
	require.NoError(t, err)

	tree := BuildMerkleTree(leaves)
	assert.True(t, tree.Consistent())

	tree.Leaves[0] = canonical.HashBytes([]byte("forged"))
	assert.False(t, tree.Consistent(), "rebuilding from tampered leaves must not match the stored root")
}

func TestEvidence_Validate(t *testing.T) {
	valid := Evidence{Operation: OperationSecureDelete, Passes: 3, VerificationHash: "h"}
	assert.NoError(t, valid.Validate())

	short := Evidence{Operation: OperationSecureDelete, Passes: 2, VerificationHash: "h"}
	assert.Error(t, short.Validate(), "secure delete below 3 passes is not destruction evidence")

	unhashed := Evidence{Operation: OperationEncryptDelete, Passes: 1}
	assert.Error(t, unhashed.Validate())
}

func TestSigner_SignAndVerify(t *testing.T) {
	signer, err := NewSigner(nil)
	require.NoError(t, err)

	state := CryptoState{DataHash: "abc", MerkleRoot: "def"}
	state.Signature = signer.SignState(state.DataHash, state.MerkleRoot)
	assert.True(t, signer.VerifyState(state))

	state.DataHash = "tampered"
	assert.False(t, signer.VerifyState(state))
}

func TestSigner_SeedDeterminism(t *testing.T) {
	seed := make([]byte, 32)
	copy(seed, "fixed-seed-for-test-determinism!")

	first, err := NewSigner(seed)
	require.NoError(t, err)
	second, err := NewSigner(seed)
	require.NoError(t, err)
	assert.Equal(t, first.Public(), second.Public())

	_, err = NewSigner([]byte("short"))
	require.Error(t, err)
}
