// Package legalhold implements the registry of preservation orders that veto
// data erasure. The registry is consulted synchronously on every erasure gate
// check; a missed hold is a compliance failure, so matching prefers
// over-blocking to under-blocking.
package legalhold

import (
	"fmt"
	"slices"
	"strings"
	"time"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// Type classifies the legal basis category of a hold.
type Type string

const (
	TypeLitigation    Type = "litigation"
	TypeRegulatory    Type = "regulatory"
	TypeInvestigation Type = "investigation"
	TypeTaxRetention  Type = "tax_retention"
)

var validTypes = map[Type]bool{
	TypeLitigation:    true,
	TypeRegulatory:    true,
	TypeInvestigation: true,
	TypeTaxRetention:  true,
}

// IsValid checks if the hold type is a supported enum value.
func (t Type) IsValid() bool { return validTypes[t] }

// Status is the hold lifecycle state.
//
// Transitions are monotonic: RELEASED and EXPIRED are terminal. SUSPENDED may
// resume to ACTIVE (a suspended preservation order can be reinstated); a
// RELEASED hold can never be reactivated - issue a new hold instead.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusReleased  Status = "RELEASED"
	StatusExpired   Status = "EXPIRED"
)

var allowedTransitions = map[Status][]Status{
	StatusActive:    {StatusSuspended, StatusReleased, StatusExpired},
	StatusSuspended: {StatusActive, StatusReleased, StatusExpired},
	StatusReleased:  {},
	StatusExpired:   {},
}

// CanTransition reports whether moving from s to next is permitted.
func (s Status) CanTransition(next Status) bool {
	return slices.Contains(allowedTransitions[s], next)
}

// Scope bounds the data a hold preserves. An empty SubjectIDs list means the
// hold is not scoped to named subjects and applies to every subject whose data
// could fall inside it - deliberate over-blocking.
type Scope struct {
	SubjectIDs []id.SubjectID
	DataTypes  []string
	From       *time.Time
	To         *time.Time
}

// Hold is an active preservation order.
type Hold struct {
	ID         id.HoldID
	TenantID   id.TenantID
	Type       Type
	Scope      Scope
	Status     Status
	LegalBasis string
	IssuedBy   string
	IssuedAt   time.Time
	ExpiresAt  *time.Time
	ReleasedBy string
	ReleasedAt *time.Time
}

// NewHold constructs an ACTIVE hold with domain invariant checks.
func NewHold(tenantID id.TenantID, holdType Type, scope Scope, legalBasis, issuedBy string, issuedAt time.Time, expiresAt *time.Time) (*Hold, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant ID required")
	}
	if !holdType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid hold type")
	}
	if legalBasis == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "legal basis required")
	}
	if issuedBy == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "issuing actor required")
	}
	if expiresAt != nil && !expiresAt.After(issuedAt) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expiry must be after issue time")
	}
	return &Hold{
		ID:         id.NewHoldID(),
		TenantID:   tenantID,
		Type:       holdType,
		Scope:      scope,
		Status:     StatusActive,
		LegalBasis: legalBasis,
		IssuedBy:   issuedBy,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// IsExpired reports whether the hold's expiry has passed.
func (h *Hold) IsExpired(now time.Time) bool {
	return h.ExpiresAt != nil && h.ExpiresAt.Before(now)
}

// Blocks reports whether this hold vetoes erasure for the subject at the
// given time. Only ACTIVE, unexpired holds block; a hold with no named
// subjects blocks every subject in scope.
func (h *Hold) Blocks(subjectID id.SubjectID, now time.Time) bool {
	if h.Status != StatusActive || h.IsExpired(now) {
		return false
	}
	if len(h.Scope.SubjectIDs) == 0 {
		return true
	}
	return slices.Contains(h.Scope.SubjectIDs, subjectID)
}

// BlockedError carries the ids of holds that vetoed an erasure so callers can
// reference them in rejection reasons without re-querying the registry.
type BlockedError struct {
	HoldIDs []id.HoldID
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	ids := make([]string, len(e.HoldIDs))
	for i, holdID := range e.HoldIDs {
		ids[i] = holdID.String()
	}
	return fmt.Sprintf("erasure blocked by %d active legal hold(s): %s", len(e.HoldIDs), strings.Join(ids, ", "))
}

// NewBlocked builds the caller-facing legal-hold veto error.
func NewBlocked(holds []*Hold) error {
	holdIDs := make([]id.HoldID, len(holds))
	for i, h := range holds {
		holdIDs[i] = h.ID
	}
	blocked := &BlockedError{HoldIDs: holdIDs}
	return dErrors.WrapWithCode(blocked, dErrors.CodeLegalHoldBlocked, blocked.Error())
}
