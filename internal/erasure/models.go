// Package erasure executes verifiable data destruction and generates
// cryptographic proofs of erasure: signed before/after state snapshots plus a
// Merkle tree over the destruction evidence.
package erasure

import (
	"slices"
	"time"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// Scope bounds how far an erasure reaches.
type Scope string

const (
	ScopeRecord   Scope = "RECORD"
	ScopeTable    Scope = "TABLE"
	ScopeDatabase Scope = "DATABASE"
	ScopeSystem   Scope = "SYSTEM"
	ScopeGlobal   Scope = "GLOBAL"
)

var validScopes = map[Scope]bool{
	ScopeRecord:   true,
	ScopeTable:    true,
	ScopeDatabase: true,
	ScopeSystem:   true,
	ScopeGlobal:   true,
}

// IsValid checks if the scope is a supported enum value.
func (s Scope) IsValid() bool { return validScopes[s] }

// Method selects the destruction technique.
type Method string

const (
	// MethodCryptographic destroys data by discarding the key that
	// encrypts it (crypto-shredding).
	MethodCryptographic Method = "CRYPTOGRAPHIC"
	// MethodOverwrite destroys data with multi-pass overwriting.
	MethodOverwrite Method = "OVERWRITE"
)

// IsValid checks if the method is a supported enum value.
func (m Method) IsValid() bool {
	return m == MethodCryptographic || m == MethodOverwrite
}

// ProofType selects the proof construction.
type ProofType string

const (
	ProofTypeStandard ProofType = "STANDARD"
	// ProofTypeZeroKnowledge is reserved; see GenerateZeroKnowledgeProof.
	ProofTypeZeroKnowledge ProofType = "ZERO_KNOWLEDGE"
)

// Status is the erasure request lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusExecuting Status = "EXECUTING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusAbandoned Status = "ABANDONED"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusExecuting, StatusAbandoned},
	StatusExecuting: {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusAbandoned: {},
}

// CanTransition reports whether moving from s to next is permitted.
func (s Status) CanTransition(next Status) bool {
	return slices.Contains(statusTransitions[s], next)
}

// Request is one approved erasure job. It exists only after the legal hold
// gate has passed; blocked attempts never create a Request.
type Request struct {
	ID              id.ErasureID
	TenantID        id.TenantID
	SubjectID       id.SubjectID
	RightsRequestID id.RequestID
	Scope           Scope
	Method          Method
	ProofType       ProofType
	Justification   string
	RequestedBy     string
	Status          Status
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition moves the request to the next status, enforcing the lifecycle.
func (r *Request) Transition(next Status, at time.Time) error {
	if !r.Status.CanTransition(next) {
		return dErrors.New(dErrors.CodeStateTransition,
			"erasure request "+r.ID.String()+" cannot move from "+string(r.Status)+" to "+string(next))
	}
	r.Status = next
	r.UpdatedAt = at
	return nil
}

// InventoryItem describes one class of subject data discovered by the
// locator. Field order is the canonical serialization order; struct-only so
// the JSON encoding is deterministic.
type InventoryItem struct {
	DataType        string    `json:"data_type"`
	RecordCount     int       `json:"record_count"`
	Locations       []string  `json:"locations"`
	SizeBytes       int64     `json:"size_bytes"`
	RetentionPeriod string    `json:"retention_period"`
	LastAccessed    time.Time `json:"last_accessed"`
}

// Operation names the destruction primitive an executor applied.
type Operation string

const (
	// OperationEncryptDelete is crypto-shredding: encrypt, discard key.
	OperationEncryptDelete Operation = "ENCRYPT_DELETE"
	// OperationSecureDelete is multi-pass overwrite; requires at least
	// MinSecureDeletePasses passes.
	OperationSecureDelete Operation = "SECURE_DELETE"
)

// MinSecureDeletePasses is the minimum overwrite pass count accepted as
// evidence of secure deletion.
const MinSecureDeletePasses = 3

// Evidence is one destruction record. One entry is produced per
// (inventory item, location) pair and becomes a Merkle tree leaf.
type Evidence struct {
	Location         string    `json:"location"`
	DataType         string    `json:"data_type"`
	Operation        Operation `json:"operation"`
	Passes           int       `json:"passes"`
	VerificationHash string    `json:"verification_hash"`
	ErasedAt         time.Time `json:"erased_at"`
	ErasedBy         string    `json:"erased_by"`
}

// Validate enforces the evidence invariants.
func (e Evidence) Validate() error {
	switch e.Operation {
	case OperationEncryptDelete:
		if e.Passes < 1 {
			return dErrors.New(dErrors.CodeInvariantViolation, "encrypt-delete evidence requires at least one pass")
		}
	case OperationSecureDelete:
		if e.Passes < MinSecureDeletePasses {
			return dErrors.New(dErrors.CodeInvariantViolation, "secure-delete evidence requires at least 3 overwrite passes")
		}
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown erasure operation: "+string(e.Operation))
	}
	if e.VerificationHash == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "erasure evidence requires a verification hash")
	}
	return nil
}

// CryptoState is a signed snapshot of the subject's data inventory at one
// point in time. DataHash is the canonical hash of the inventory, MerkleRoot
// the root over per-item hashes, Signature an Ed25519 signature (hex) over
// DataHash followed by MerkleRoot.
type CryptoState struct {
	DataHash   string    `json:"data_hash"`
	MerkleRoot string    `json:"merkle_root"`
	Signature  string    `json:"signature"`
	Timestamp  time.Time `json:"timestamp"`
}

// VerificationOutcome is the recorded result of verifying a proof. Attached
// to the proof's mutable verification record; the proof content itself is
// append-only.
type VerificationOutcome struct {
	Result     bool            `json:"result"`
	Confidence float64         `json:"confidence"`
	Strategy   string          `json:"strategy"`
	Checks     map[string]bool `json:"checks"`
	VerifiedBy string          `json:"verified_by"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Proof is a cryptographic erasure proof: the before state, the after state
// over the (now empty) inventory, the destruction evidence, and the Merkle
// tree over evidence hashes. Stored append-only; only the Verification
// record may change after generation.
type Proof struct {
	ID           id.ProofID           `json:"id"`
	TenantID     id.TenantID          `json:"tenant_id"`
	ErasureID    id.ErasureID         `json:"erasure_id"`
	SubjectID    id.SubjectID         `json:"subject_id"`
	Before       CryptoState          `json:"before"`
	After        CryptoState          `json:"after"`
	Evidence     []Evidence           `json:"evidence"`
	Tree         *MerkleTree          `json:"tree"`
	Verification *VerificationOutcome `json:"verification,omitempty"`
	GeneratedAt  time.Time            `json:"generated_at"`
}
