package erasure

import (
	"context"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

var errZeroKnowledgeUnavailable = dErrors.New(dErrors.CodeNotImplemented,
	"zero-knowledge erasure proofs are not implemented")

// GenerateZeroKnowledgeProof is the reserved entry point for ZK erasure
// proofs, which would attest to destruction without revealing the inventory.
// It fails loudly so callers never mistake the standard proof for one.
//
// TODO: evaluate gnark once a circuit for the inventory commitment exists.
func (e *Engine) GenerateZeroKnowledgeProof(_ context.Context, _ id.TenantID, _ id.ErasureID) (*Proof, error) {
	return nil, errZeroKnowledgeUnavailable
}
