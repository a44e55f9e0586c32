package erasure

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	dErrors "certus/pkg/domain-errors"
)

// SignatureVerifier checks state-snapshot signatures. Satisfied by Signer;
// verification code depends on this interface so it never needs signing
// capability.
type SignatureVerifier interface {
	VerifyState(state CryptoState) bool
}

// Signer produces and checks Ed25519 signatures over state snapshots.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner derives a deterministic keypair from a 32-byte seed. An empty
// seed generates an ephemeral keypair, which is fine for tests and local
// runs but means proofs cannot be re-verified across restarts.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) == 0 {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate signing key")
		}
		return &Signer{priv: priv, pub: pub}, nil
	}
	if len(seed) != ed25519.SeedSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signing key seed must be exactly 32 bytes")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// stateMessage is the byte string the signature covers: the data hash
// immediately followed by the Merkle root.
func stateMessage(dataHash, merkleRoot string) []byte {
	return []byte(dataHash + merkleRoot)
}

// SignState signs a snapshot and returns the hex-encoded signature.
func (s *Signer) SignState(dataHash, merkleRoot string) string {
	return hex.EncodeToString(ed25519.Sign(s.priv, stateMessage(dataHash, merkleRoot)))
}

// VerifyState checks a snapshot's signature against the signer's public key.
func (s *Signer) VerifyState(state CryptoState) bool {
	sig, err := hex.DecodeString(state.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(s.pub, stateMessage(state.DataHash, state.MerkleRoot), sig)
}

// Public returns the verification key.
func (s *Signer) Public() ed25519.PublicKey { return s.pub }

// AttestationKey exposes the private key for signing verification
// attestations. Callers must not retain it beyond constructing their own
// signer.
func (s *Signer) AttestationKey() ed25519.PrivateKey { return s.priv }
