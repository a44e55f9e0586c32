package erasure

import (
	"context"
	"sync"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/sentinel"
)

// clone deep-copies a proof so vault callers can never mutate stored state.
func (p *Proof) clone() *Proof {
	copied := *p
	copied.Evidence = make([]Evidence, len(p.Evidence))
	copy(copied.Evidence, p.Evidence)
	if p.Tree != nil {
		tree := *p.Tree
		tree.Leaves = make([]string, len(p.Tree.Leaves))
		copy(tree.Leaves, p.Tree.Leaves)
		copied.Tree = &tree
	}
	if p.Verification != nil {
		verification := *p.Verification
		verification.Checks = make(map[string]bool, len(p.Verification.Checks))
		for name, passed := range p.Verification.Checks {
			verification.Checks[name] = passed
		}
		copied.Verification = &verification
	}
	return &copied
}

// InMemoryVault keeps proofs in memory for tests and local development.
// Append-only like its production counterparts: a second Store for the same
// proof ID is a conflict.
type InMemoryVault struct {
	mu     sync.RWMutex
	proofs map[id.TenantID]map[id.ProofID]*Proof
}

// NewInMemoryVault constructs an empty in-memory proof vault.
func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{proofs: make(map[id.TenantID]map[id.ProofID]*Proof)}
}

func (v *InMemoryVault) Store(_ context.Context, proof *Proof) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	tenantProofs, ok := v.proofs[proof.TenantID]
	if !ok {
		tenantProofs = make(map[id.ProofID]*Proof)
		v.proofs[proof.TenantID] = tenantProofs
	}
	if _, exists := tenantProofs[proof.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "proof "+proof.ID.String()+" already stored; proofs are append-only")
	}
	tenantProofs[proof.ID] = proof.clone()
	return nil
}

func (v *InMemoryVault) Get(_ context.Context, tenantID id.TenantID, proofID id.ProofID) (*Proof, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	proof, ok := v.proofs[tenantID][proofID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return proof.clone(), nil
}

func (v *InMemoryVault) SetVerification(_ context.Context, tenantID id.TenantID, proofID id.ProofID, outcome VerificationOutcome) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	proof, ok := v.proofs[tenantID][proofID]
	if !ok {
		return sentinel.ErrNotFound
	}
	proof.Verification = &outcome
	return nil
}

func (v *InMemoryVault) ListUnverified(_ context.Context) ([]*Proof, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var unverified []*Proof
	for _, tenantProofs := range v.proofs {
		for _, proof := range tenantProofs {
			if proof.Verification == nil || !proof.Verification.Result {
				unverified = append(unverified, proof.clone())
			}
		}
	}
	return unverified, nil
}
