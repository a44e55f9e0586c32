// Package auditchain implements the per-tenant, hash-linked, append-only
// compliance event log. Every event commits to its predecessor's hash, so any
// later mutation of a stored event is detectable by replaying the chain.
package auditchain

import (
	"time"

	"github.com/google/uuid"

	id "certus/pkg/domain"
	"certus/pkg/platform/canonical"
)

// Kind classifies audit events emitted by the compliance core.
type Kind string

const (
	KindDataSubjectRegistered Kind = "data_subject_registered"
	KindConsentRecorded       Kind = "consent_recorded"

	KindRightsRequestSubmitted Kind = "rights_request_submitted"
	KindRightsRequestBlocked   Kind = "data_rights_blocked_by_legal_hold"
	KindRightsRequestEscalated Kind = "rights_request_escalated"

	KindLegalHoldIssued      Kind = "legal_hold_issued"
	KindLegalHoldReleased    Kind = "legal_hold_released"
	KindLegalHoldSuspended   Kind = "legal_hold_suspended"
	KindLegalHoldCheckPassed Kind = "legal_hold_check_passed"

	KindErasureCompleted Kind = "erasure_completed"
	KindErasureFailed    Kind = "erasure_failed"
	KindErasureAbandoned Kind = "erasure_request_abandoned"

	KindProofVerified Kind = "proof_verification_completed"
)

// Entry carries the caller-supplied fields of an audit event. The chain fills
// in identity, sequencing, and hashing on append.
type Entry struct {
	Kind        Kind
	Actor       string // who performed the action
	Subject     string // data subject or resource the action concerns
	Correlation string // rights request / erasure request / proof id
	Decision    string // outcome, e.g. "approved", "blocked", "verified"
	Reason      string // human-readable explanation for terminal outcomes
}

// Event is a single link in a tenant's audit chain. Once written it is
// immutable; replay recomputes CurrentHash from the stored fields and the
// predecessor's hash.
type Event struct {
	ID          uuid.UUID
	TenantID    id.TenantID
	Sequence    uint64
	Timestamp   time.Time
	Kind        Kind
	Actor       string
	Subject     string
	Correlation string
	Decision    string
	Reason      string
	PrevHash    string
	CurrentHash string
	Immutable   bool
}

// hashedFields is the canonical hash input for an event. Struct-only, fixed
// field order; see pkg/platform/canonical for the determinism rule.
type hashedFields struct {
	TenantID    string `json:"tenant_id"`
	Sequence    uint64 `json:"sequence"`
	Timestamp   string `json:"ts"`
	Kind        string `json:"kind"`
	Actor       string `json:"actor"`
	Subject     string `json:"subject"`
	Correlation string `json:"correlation"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason"`
}

// ComputeHash derives the chain hash for the event from its stored fields and
// PrevHash. Appending and replay both go through this single function.
func (e *Event) ComputeHash() (string, error) {
	payload, err := canonical.Marshal(hashedFields{
		TenantID:    e.TenantID.String(),
		Sequence:    e.Sequence,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:        string(e.Kind),
		Actor:       e.Actor,
		Subject:     e.Subject,
		Correlation: e.Correlation,
		Decision:    e.Decision,
		Reason:      e.Reason,
	})
	if err != nil {
		return "", err
	}
	return canonical.ChainHash(e.PrevHash, payload), nil
}
