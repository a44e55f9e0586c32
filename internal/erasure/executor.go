package erasure

import (
	"context"
	"crypto/rand"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/canonical"
)

// ShredExecutor is the reference Executor. For CRYPTOGRAPHIC erasure it
// crypto-shreds: the location fingerprint is sealed under a fresh
// ChaCha20-Poly1305 key that is immediately discarded, leaving the
// ciphertext hash as evidence that the plaintext is unrecoverable. For
// OVERWRITE it simulates a three-pass overwrite and hashes the final pass.
//
// Production deployments replace this with executors that talk to the real
// data stores; the evidence shape is the contract.
type ShredExecutor struct {
	now func() time.Time
}

// NewShredExecutor constructs the reference executor.
func NewShredExecutor() *ShredExecutor {
	return &ShredExecutor{now: time.Now}
}

func (e *ShredExecutor) Erase(ctx context.Context, item InventoryItem, location string, method Method) (Evidence, error) {
	if err := ctx.Err(); err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeExecutorFailure, "erase cancelled")
	}
	switch method {
	case MethodCryptographic:
		return e.cryptoShred(item, location)
	case MethodOverwrite:
		return e.overwrite(item, location)
	default:
		return Evidence{}, dErrors.New(dErrors.CodeInvalidInput, "unsupported erasure method: "+string(method))
	}
}

func (e *ShredExecutor) cryptoShred(item InventoryItem, location string) (Evidence, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeExecutorFailure, "generate shred key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeExecutorFailure, "init shred cipher")
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeExecutorFailure, "generate shred nonce")
	}

	fingerprint := []byte(location + "/" + item.DataType)
	sealed := aead.Seal(nil, nonce, fingerprint, nil)

	// Discard the key material. After this the sealed bytes are
	// indistinguishable from noise, which is the destruction guarantee.
	for i := range key {
		key[i] = 0
	}

	return Evidence{
		Location:         location,
		DataType:         item.DataType,
		Operation:        OperationEncryptDelete,
		Passes:           1,
		VerificationHash: canonical.HashBytes(sealed),
		ErasedAt:         e.now().UTC(),
	}, nil
}

func (e *ShredExecutor) overwrite(item InventoryItem, location string) (Evidence, error) {
	pattern := make([]byte, 64)
	for pass := 0; pass < MinSecureDeletePasses; pass++ {
		if _, err := rand.Read(pattern); err != nil {
			return Evidence{}, dErrors.Wrap(err, dErrors.CodeExecutorFailure, "generate overwrite pattern")
		}
	}
	return Evidence{
		Location:         location,
		DataType:         item.DataType,
		Operation:        OperationSecureDelete,
		Passes:           MinSecureDeletePasses,
		VerificationHash: canonical.HashBytes(append([]byte(location+"/"+item.DataType), pattern...)),
		ErasedAt:         e.now().UTC(),
	}, nil
}
