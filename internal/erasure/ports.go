package erasure

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"certus/internal/auditchain"
	"certus/internal/legalhold"
	id "certus/pkg/domain"
)

// Locator discovers where a subject's data lives. Implementations front the
// tenant's data catalogs; the engine treats the returned inventory as the
// authoritative before-state.
type Locator interface {
	Locate(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, scope Scope) ([]InventoryItem, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, scope Scope) ([]InventoryItem, error)

func (f LocatorFunc) Locate(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, scope Scope) ([]InventoryItem, error) {
	return f(ctx, tenantID, subjectID, scope)
}

// Executor destroys one (inventory item, location) pair and returns the
// destruction evidence. A returned error aborts the whole erasure; partial
// destruction still fails the request.
type Executor interface {
	Erase(ctx context.Context, item InventoryItem, location string, method Method) (Evidence, error)
}

// HoldGate answers whether legal holds currently block a subject. The engine
// consults it fail-closed: a gate error blocks erasure.
type HoldGate interface {
	ActiveHoldsFor(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]*legalhold.Hold, error)
}

// Vault stores proofs append-only.
//
// Error Contract:
// - Store returns CodeConflict when a proof with the same ID already exists
// - Get returns sentinel.ErrNotFound for unknown proofs
// - SetVerification replaces only the proof's verification record
type Vault interface {
	Store(ctx context.Context, proof *Proof) error
	Get(ctx context.Context, tenantID id.TenantID, proofID id.ProofID) (*Proof, error)
	SetVerification(ctx context.Context, tenantID id.TenantID, proofID id.ProofID, outcome VerificationOutcome) error
	ListUnverified(ctx context.Context) ([]*Proof, error)
}

// Verifier checks freshly generated proofs. The engine runs the quick
// strategy inline after generation; deeper strategies run out of band.
type Verifier interface {
	Quick(proof *Proof) (VerificationOutcome, error)
}

// AuditLog is the slice of the audit chain the engine writes to.
type AuditLog interface {
	Append(ctx context.Context, tenantID id.TenantID, entry auditchain.Entry) (*auditchain.Event, error)
}

// RequestStore defines erasure request persistence.
//
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when the request does not exist
type RequestStore interface {
	Save(ctx context.Context, request *Request) error
	FindByID(ctx context.Context, tenantID id.TenantID, erasureID id.ErasureID) (*Request, error)
	Update(ctx context.Context, request *Request) error
}
