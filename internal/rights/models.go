// Package rights implements the data-subject-rights request lifecycle:
// subject registration, request intake and validation, the legal-hold gate,
// and the erasure handoff.
package rights

import (
	"slices"
	"time"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// SubjectType classifies a registered data subject.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "customer"
	SubjectTypeEmployee SubjectType = "employee"
	SubjectTypeProspect SubjectType = "prospect"
)

var validSubjectTypes = map[SubjectType]bool{
	SubjectTypeCustomer: true,
	SubjectTypeEmployee: true,
	SubjectTypeProspect: true,
}

// IsValid checks if the subject type is a supported enum value.
func (t SubjectType) IsValid() bool { return validSubjectTypes[t] }

// ConsentEvent is one entry in a subject's consent history.
type ConsentEvent struct {
	Purpose string
	Granted bool
	At      time.Time
}

// Tombstone marks a subject whose referenced data has been erased. The
// subject record itself survives as the anchor for the erasure proof.
type Tombstone struct {
	ProofID  id.ProofID
	ErasedAt time.Time
}

// Subject is the identity record for an individual whose data the platform
// governs. Never hard-deleted: erasure destroys the referenced data and
// leaves the record as a tombstone pointing at the proof.
type Subject struct {
	ID             id.SubjectID
	TenantID       id.TenantID
	Type           SubjectType
	Jurisdiction   string
	Identifiers    map[string]string
	ConsentHistory []ConsentEvent
	Tombstone      *Tombstone
	CreatedAt      time.Time
}

// IsErased reports whether the subject's data has been destroyed.
func (s *Subject) IsErased() bool { return s.Tombstone != nil }

// Right enumerates the data subject rights the engine processes.
type Right string

const (
	RightAccess        Right = "ACCESS"
	RightErasure       Right = "ERASURE"
	RightPortability   Right = "PORTABILITY"
	RightRectification Right = "RECTIFICATION"
	RightRestriction   Right = "RESTRICTION"
	RightObjection     Right = "OBJECTION"
)

var validRights = map[Right]bool{
	RightAccess:        true,
	RightErasure:       true,
	RightPortability:   true,
	RightRectification: true,
	RightRestriction:   true,
	RightObjection:     true,
}

// IsValid checks if the right is a supported enum value.
func (r Right) IsValid() bool { return validRights[r] }

// RequestType distinguishes single-subject requests from bulk campaigns.
type RequestType string

const (
	RequestTypeIndividual RequestType = "INDIVIDUAL"
	RequestTypeBulk       RequestType = "BULK"
)

// Priority orders request processing.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// PriorityFor computes intake priority: individual erasure is the most
// time-sensitive obligation, bulk work is batched, everything else queues low.
func PriorityFor(right Right, requestType RequestType) Priority {
	if right == RightErasure && requestType == RequestTypeIndividual {
		return PriorityHigh
	}
	if requestType == RequestTypeBulk {
		return PriorityMedium
	}
	return PriorityLow
}

// Status is the rights request lifecycle state. Transitions are
// one-directional; no request re-enters PENDING.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusRejected   Status = "REJECTED"
	StatusEscalated  Status = "ESCALATED"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusCompleted, StatusRejected, StatusEscalated},
	StatusCompleted:  {},
	StatusRejected:   {},
	StatusEscalated:  {},
}

// CanTransition reports whether moving from s to next is permitted.
func (s Status) CanTransition(next Status) bool {
	return slices.Contains(allowedTransitions[s], next)
}

// Step names one unit of work in a request's processing plan.
type Step string

const (
	StepIdentityVerification Step = "IDENTITY_VERIFICATION"
	StepDataCollection       Step = "DATA_COLLECTION"
	StepLegalHoldCheck       Step = "LEGAL_HOLD_CHECK"
	StepDataErasure          Step = "DATA_ERASURE"
	StepErasureVerification  Step = "ERASURE_VERIFICATION"
	StepProofGeneration      Step = "PROOF_GENERATION"
	StepDataExport           Step = "DATA_EXPORT"
	StepResponseDelivery     Step = "RESPONSE_DELIVERY"
)

// StepsFor generates the ordered processing plan for a right.
func StepsFor(right Right) []Step {
	steps := []Step{StepIdentityVerification}
	switch right {
	case RightErasure:
		steps = append(steps, StepLegalHoldCheck, StepDataErasure, StepErasureVerification, StepProofGeneration)
	case RightAccess:
		steps = append(steps, StepDataCollection, StepResponseDelivery)
	case RightPortability:
		steps = append(steps, StepDataCollection, StepDataExport, StepResponseDelivery)
	default:
		steps = append(steps, StepResponseDelivery)
	}
	return steps
}

// Outcome records the terminal result of a request. Invariant: an approved
// ERASURE outcome always references a verifiable proof.
type Outcome struct {
	Approved    bool
	Reason      string
	ProofID     *id.ProofID
	CompletedAt *time.Time
}

// TrailEntry is one sub-action in a request's append-only internal trail.
// The tenant audit chain records the major steps; the trail records the
// fine-grained ones scoped to a single request.
type TrailEntry struct {
	At     time.Time
	Action string
	Actor  string
	Detail string
}

// Request is one in-flight (data subject, right) pair.
type Request struct {
	ID            id.RequestID
	TenantID      id.TenantID
	SubjectID     id.SubjectID
	Right         Right
	RequestType   RequestType
	Purpose       string
	Scope         string
	Justification string
	Priority      Priority
	Status        Status
	Steps         []Step
	Outcome       Outcome
	Trail         []TrailEntry
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transition moves the request to the next status, enforcing the lifecycle.
func (r *Request) Transition(next Status, at time.Time) error {
	if !r.Status.CanTransition(next) {
		return dErrors.New(dErrors.CodeStateTransition,
			"rights request "+r.ID.String()+" cannot move from "+string(r.Status)+" to "+string(next))
	}
	r.Status = next
	r.UpdatedAt = at
	return nil
}

// AppendTrail records a sub-action on the request.
func (r *Request) AppendTrail(at time.Time, action, actor, detail string) {
	r.Trail = append(r.Trail, TrailEntry{At: at, Action: action, Actor: actor, Detail: detail})
	r.UpdatedAt = at
}
