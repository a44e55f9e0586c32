// Package canonical provides deterministic serialization and hashing for
// artifacts whose hashes must be reproducible across processes and replays.
//
// The rule: anything that is hashed must be a struct (or slice of structs)
// with exported fields and no maps. encoding/json marshals struct fields in
// declaration order, which makes the byte stream - and therefore the hash -
// deterministic. Maps would randomize iteration order and break replay.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Marshal serializes v into the canonical byte representation.
// v must follow the struct-only rule described in the package comment.
func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	return b, nil
}

// SHA256Hex returns the lowercase hex SHA-256 of the canonical form of v.
func SHA256Hex(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes returns the lowercase hex SHA-256 of raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ChainHash links a previous hash to a payload: SHA-256(prev || payload).
// Used by the audit chain so each event commits to its predecessor.
func ChainHash(prevHash string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ZeroHash is the genesis predecessor for hash chains: 32 zero bytes in hex.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"
