package rights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certus/internal/auditchain"
	"certus/internal/erasure"
	"certus/internal/legalhold"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// SubjectStore defines data subject persistence.
//
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when the subject does not exist
type SubjectStore interface {
	Save(ctx context.Context, subject *Subject) error
	FindByID(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) (*Subject, error)
	Update(ctx context.Context, subject *Subject) error
}

// RequestStore defines rights request persistence.
//
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when the request does not exist
type RequestStore interface {
	Save(ctx context.Context, request *Request) error
	FindByID(ctx context.Context, tenantID id.TenantID, requestID id.RequestID) (*Request, error)
	Update(ctx context.Context, request *Request) error
	ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]*Request, error)
}

// HoldChecker answers which holds currently block a subject. Used here only
// as an advisory early rejection at submission; the erasure engine repeats
// the check authoritatively.
type HoldChecker interface {
	ActiveHoldsFor(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]*legalhold.Hold, error)
}

// ErasureProcessor is the erasure engine surface the rights engine drives.
type ErasureProcessor interface {
	CreateRequest(ctx context.Context, params erasure.CreateParams) (*erasure.Request, error)
	Execute(ctx context.Context, tenantID id.TenantID, erasureID id.ErasureID, executedBy string) (*erasure.Proof, error)
}

// AuditLog is the slice of the audit chain the engine writes to.
type AuditLog interface {
	Append(ctx context.Context, tenantID id.TenantID, entry auditchain.Entry) (*auditchain.Event, error)
}

// SubmitParams carries the inputs for a new rights request.
type SubmitParams struct {
	TenantID      id.TenantID
	SubjectID     id.SubjectID
	Right         Right
	RequestType   RequestType
	Purpose       string
	Scope         string
	Justification string
	SubmittedBy   string
}

// Engine processes data subject rights end to end: registration, request
// intake, and the erasure handoff.
type Engine struct {
	subjects SubjectStore
	requests RequestStore
	lineage  Lineage
	holds    HoldChecker
	erasures ErasureProcessor
	audit    AuditLog
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs the rights engine.
func NewEngine(
	subjects SubjectStore,
	requests RequestStore,
	lineage Lineage,
	holds HoldChecker,
	erasures ErasureProcessor,
	audit AuditLog,
	logger *slog.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		subjects: subjects,
		requests: requests,
		lineage:  lineage,
		holds:    holds,
		erasures: erasures,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterDataSubject creates the identity record for an individual whose
// data the platform governs.
func (e *Engine) RegisterDataSubject(ctx context.Context, tenantID id.TenantID, subjectType SubjectType, jurisdiction string, identifiers map[string]string, actor string) (*Subject, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID required")
	}
	if !subjectType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid subject type: "+string(subjectType))
	}
	if jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "jurisdiction required")
	}
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "acting party required")
	}
	if identifiers == nil {
		identifiers = map[string]string{}
	}

	subject := &Subject{
		ID:           id.NewSubjectID(),
		TenantID:     tenantID,
		Type:         subjectType,
		Jurisdiction: jurisdiction,
		Identifiers:  identifiers,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.subjects.Save(ctx, subject); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save data subject")
	}

	if err := e.lineage.Record(ctx, tenantID, subject.ID, LineageEntry{
		At:     subject.CreatedAt,
		Kind:   LineageRegistered,
		Detail: "registered in jurisdiction " + jurisdiction,
	}); err != nil {
		e.logger.Warn("record registration lineage", "subject_id", subject.ID, "error", err)
	}

	e.auditEvent(ctx, tenantID, auditchain.Entry{
		Kind:    auditchain.KindDataSubjectRegistered,
		Actor:   actor,
		Subject: subject.ID.String(),
		Reason:  "jurisdiction " + jurisdiction,
	})
	e.logger.Info("data subject registered",
		"subject_id", subject.ID,
		"tenant_id", tenantID,
		"type", subjectType,
		"jurisdiction", jurisdiction,
	)
	return subject, nil
}

// RecordConsent appends one event to the subject's consent history.
func (e *Engine) RecordConsent(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, purpose string, granted bool, actor string) (*Subject, error) {
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent purpose required")
	}
	subject, err := e.subjects.FindByID(ctx, tenantID, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "data subject not found: "+subjectID.String())
	}
	if subject.IsErased() {
		return nil, dErrors.New(dErrors.CodeStateTransition,
			"subject "+subjectID.String()+" is erased; consent can no longer change")
	}

	now := e.now().UTC()
	subject.ConsentHistory = append(subject.ConsentHistory, ConsentEvent{Purpose: purpose, Granted: granted, At: now})
	if err := e.subjects.Update(ctx, subject); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update consent history")
	}

	if err := e.lineage.Record(ctx, tenantID, subjectID, LineageEntry{
		At:     now,
		Kind:   LineageConsent,
		Detail: fmt.Sprintf("consent %s granted=%t", purpose, granted),
	}); err != nil {
		e.logger.Warn("record consent lineage", "subject_id", subjectID, "error", err)
	}

	e.auditEvent(ctx, tenantID, auditchain.Entry{
		Kind:     auditchain.KindConsentRecorded,
		Actor:    actor,
		Subject:  subjectID.String(),
		Decision: fmt.Sprintf("%t", granted),
		Reason:   purpose,
	})
	return subject, nil
}

// SubmitRightsRequest validates and files a new request. For ERASURE an
// advisory hold check runs here: a blocked request is created REJECTED
// immediately so the subject learns the outcome without queueing work that
// the authoritative gate would refuse anyway.
func (e *Engine) SubmitRightsRequest(ctx context.Context, params SubmitParams) (*Request, error) {
	if params.TenantID.IsNil() || params.SubjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant and subject IDs required")
	}
	if !params.Right.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid right: "+string(params.Right))
	}
	if params.RequestType == "" {
		params.RequestType = RequestTypeIndividual
	}
	if params.RequestType != RequestTypeIndividual && params.RequestType != RequestTypeBulk {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid request type: "+string(params.RequestType))
	}
	if params.Justification == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "justification required")
	}
	if params.SubmittedBy == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "submitting party required")
	}
	subject, err := e.subjects.FindByID(ctx, params.TenantID, params.SubjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "data subject not found: "+params.SubjectID.String())
	}

	now := e.now().UTC()
	request := &Request{
		ID:            id.NewRequestID(),
		TenantID:      params.TenantID,
		SubjectID:     subject.ID,
		Right:         params.Right,
		RequestType:   params.RequestType,
		Purpose:       params.Purpose,
		Scope:         params.Scope,
		Justification: params.Justification,
		Priority:      PriorityFor(params.Right, params.RequestType),
		Status:        StatusPending,
		Steps:         StepsFor(params.Right),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if params.Right == RightErasure {
		holds, err := e.holds.ActiveHoldsFor(ctx, params.TenantID, params.SubjectID)
		if err != nil {
			// Advisory only: let the request queue and the fail-closed gate
			// in the erasure engine decide.
			e.logger.Warn("advisory hold check failed", "subject_id", params.SubjectID, "error", err)
		} else if len(holds) > 0 {
			return e.rejectBlocked(ctx, request, holds, params.SubmittedBy)
		}
	}

	request.AppendTrail(now, "submitted", params.SubmittedBy, string(params.Right))
	if err := e.requests.Save(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save rights request")
	}

	if err := e.lineage.Record(ctx, params.TenantID, subject.ID, LineageEntry{
		At:     now,
		Kind:   LineageRequest,
		Detail: string(params.Right) + " request " + request.ID.String(),
	}); err != nil {
		e.logger.Warn("record request lineage", "request_id", request.ID, "error", err)
	}

	e.auditEvent(ctx, params.TenantID, auditchain.Entry{
		Kind:        auditchain.KindRightsRequestSubmitted,
		Actor:       params.SubmittedBy,
		Subject:     subject.ID.String(),
		Correlation: request.ID.String(),
		Decision:    string(StatusPending),
		Reason:      string(params.Right),
	})
	if e.metrics != nil {
		e.metrics.IncSubmitted(request.Right, request.Status)
	}
	e.logger.Info("rights request submitted",
		"request_id", request.ID,
		"tenant_id", params.TenantID,
		"subject_id", subject.ID,
		"right", params.Right,
		"priority", request.Priority,
	)
	return request, nil
}

// rejectBlocked files the request directly in REJECTED with the blocking
// hold IDs in the outcome. No erasure state is created.
func (e *Engine) rejectBlocked(ctx context.Context, request *Request, holds []*legalhold.Hold, actor string) (*Request, error) {
	holdIDs := make([]string, len(holds))
	for i, hold := range holds {
		holdIDs[i] = hold.ID.String()
	}
	reason := "blocked by legal hold " + strings.Join(holdIDs, ", ")

	now := e.now().UTC()
	request.Status = StatusRejected
	request.Outcome = Outcome{Approved: false, Reason: reason, CompletedAt: &now}
	request.AppendTrail(now, "rejected", actor, reason)
	if err := e.requests.Save(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save rejected rights request")
	}

	e.auditEvent(ctx, request.TenantID, auditchain.Entry{
		Kind:        auditchain.KindRightsRequestBlocked,
		Actor:       actor,
		Subject:     request.SubjectID.String(),
		Correlation: request.ID.String(),
		Decision:    string(StatusRejected),
		Reason:      reason,
	})
	if e.metrics != nil {
		e.metrics.IncSubmitted(request.Right, request.Status)
	}
	e.logger.Info("rights request blocked by legal hold",
		"request_id", request.ID,
		"subject_id", request.SubjectID,
		"holds", holdIDs,
	)
	return request, nil
}

// ProcessDataErasure drives a PENDING erasure request through the erasure
// engine: gate, destroy, prove, verify. On a verified proof the request
// completes and the subject is tombstoned. A hold blocking at this point
// rejects the request; an executor failure leaves it IN_PROGRESS for retry.
func (e *Engine) ProcessDataErasure(ctx context.Context, tenantID id.TenantID, requestID id.RequestID, actor string) (*erasure.Proof, error) {
	request, err := e.requests.FindByID(ctx, tenantID, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "rights request not found: "+requestID.String())
	}
	if request.Right != RightErasure {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"rights request "+requestID.String()+" is "+string(request.Right)+", not ERASURE")
	}
	now := e.now().UTC()
	switch request.Status {
	case StatusPending:
		if err := request.Transition(StatusInProgress, now); err != nil {
			return nil, err
		}
		request.AppendTrail(now, "processing_started", actor, "")
		if err := e.requests.Update(ctx, request); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark rights request in progress")
		}
	case StatusInProgress:
		// Retry after a failed attempt.
	default:
		return nil, dErrors.New(dErrors.CodeStateTransition,
			"rights request "+requestID.String()+" is "+string(request.Status)+"; erasure cannot proceed")
	}

	erasureRequest, err := e.erasures.CreateRequest(ctx, erasure.CreateParams{
		TenantID:        tenantID,
		SubjectID:       request.SubjectID,
		RightsRequestID: request.ID,
		Scope:           erasure.ScopeSystem,
		Method:          erasure.MethodCryptographic,
		ProofType:       erasure.ProofTypeStandard,
		Justification:   request.Justification,
		RequestedBy:     actor,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeLegalHoldBlocked) {
			return nil, e.rejectHeld(ctx, request, actor, err)
		}
		return nil, err
	}

	proof, err := e.erasures.Execute(ctx, tenantID, erasureRequest.ID, actor)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeLegalHoldBlocked) {
			return nil, e.rejectHeld(ctx, request, actor, err)
		}
		request.AppendTrail(e.now().UTC(), "erasure_failed", actor, err.Error())
		if updateErr := e.requests.Update(ctx, request); updateErr != nil {
			e.logger.Error("record erasure failure on request", "request_id", request.ID, "error", updateErr)
		}
		return nil, err
	}

	now = e.now().UTC()
	if proof.Verification != nil && proof.Verification.Result {
		if err := e.completeErasure(ctx, request, proof, actor, now); err != nil {
			return proof, err
		}
	} else {
		// The data is destroyed but the proof has not passed verification;
		// the request completes only once the re-verification worker
		// succeeds and FinalizeErasure runs.
		request.AppendTrail(now, "verification_pending", actor, "proof "+proof.ID.String())
		if err := e.requests.Update(ctx, request); err != nil {
			e.logger.Error("record pending verification", "request_id", request.ID, "error", err)
		}
	}
	return proof, nil
}

// FinalizeErasure completes an IN_PROGRESS erasure request whose proof
// passed verification after the inline attempt.
func (e *Engine) FinalizeErasure(ctx context.Context, tenantID id.TenantID, requestID id.RequestID, proof *erasure.Proof, actor string) error {
	if proof == nil || proof.Verification == nil || !proof.Verification.Result {
		return dErrors.New(dErrors.CodeVerificationFailed, "finalize requires a verified proof")
	}
	request, err := e.requests.FindByID(ctx, tenantID, requestID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "rights request not found: "+requestID.String())
	}
	return e.completeErasure(ctx, request, proof, actor, e.now().UTC())
}

func (e *Engine) completeErasure(ctx context.Context, request *Request, proof *erasure.Proof, actor string, now time.Time) error {
	if err := request.Transition(StatusCompleted, now); err != nil {
		return err
	}
	proofID := proof.ID
	request.Outcome = Outcome{Approved: true, ProofID: &proofID, CompletedAt: &now}
	request.AppendTrail(now, "completed", actor, "proof "+proof.ID.String())
	if err := e.requests.Update(ctx, request); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "complete rights request")
	}

	subject, err := e.subjects.FindByID(ctx, request.TenantID, request.SubjectID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load subject for tombstone")
	}
	subject.Tombstone = &Tombstone{ProofID: proof.ID, ErasedAt: now}
	if err := e.subjects.Update(ctx, subject); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "tombstone subject")
	}

	if err := e.lineage.Record(ctx, request.TenantID, request.SubjectID, LineageEntry{
		At:      now,
		Kind:    LineageErased,
		Detail:  "erased under request " + request.ID.String(),
		ProofID: &proofID,
	}); err != nil {
		e.logger.Warn("record erasure lineage", "subject_id", request.SubjectID, "error", err)
	}

	if e.metrics != nil {
		e.metrics.IncCompleted(request.Right)
	}
	e.logger.Info("rights request completed",
		"request_id", request.ID,
		"subject_id", request.SubjectID,
		"proof_id", proof.ID,
	)
	return nil
}

// rejectHeld terminally rejects a request blocked by the authoritative gate.
func (e *Engine) rejectHeld(ctx context.Context, request *Request, actor string, cause error) error {
	now := e.now().UTC()
	if err := request.Transition(StatusRejected, now); err != nil {
		return err
	}
	request.Outcome = Outcome{Approved: false, Reason: cause.Error(), CompletedAt: &now}
	request.AppendTrail(now, "rejected", actor, cause.Error())
	if err := e.requests.Update(ctx, request); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reject rights request")
	}

	e.auditEvent(ctx, request.TenantID, auditchain.Entry{
		Kind:        auditchain.KindRightsRequestBlocked,
		Actor:       actor,
		Subject:     request.SubjectID.String(),
		Correlation: request.ID.String(),
		Decision:    string(StatusRejected),
		Reason:      cause.Error(),
	})
	return cause
}

// EscalateRequest moves an IN_PROGRESS request to manual review.
func (e *Engine) EscalateRequest(ctx context.Context, tenantID id.TenantID, requestID id.RequestID, actor, reason string) (*Request, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "escalation reason required")
	}
	request, err := e.requests.FindByID(ctx, tenantID, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "rights request not found: "+requestID.String())
	}
	now := e.now().UTC()
	if err := request.Transition(StatusEscalated, now); err != nil {
		return nil, err
	}
	request.Outcome = Outcome{Approved: false, Reason: reason}
	request.AppendTrail(now, "escalated", actor, reason)
	if err := e.requests.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "escalate rights request")
	}

	e.auditEvent(ctx, tenantID, auditchain.Entry{
		Kind:        auditchain.KindRightsRequestEscalated,
		Actor:       actor,
		Subject:     request.SubjectID.String(),
		Correlation: request.ID.String(),
		Decision:    string(StatusEscalated),
		Reason:      reason,
	})
	return request, nil
}

// GetSubject loads a subject record.
func (e *Engine) GetSubject(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) (*Subject, error) {
	subject, err := e.subjects.FindByID(ctx, tenantID, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "data subject not found: "+subjectID.String())
	}
	return subject, nil
}

// GetRequest loads a rights request.
func (e *Engine) GetRequest(ctx context.Context, tenantID id.TenantID, requestID id.RequestID) (*Request, error) {
	request, err := e.requests.FindByID(ctx, tenantID, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "rights request not found: "+requestID.String())
	}
	return request, nil
}

// SubjectLineage lists the subject's lineage entries.
func (e *Engine) SubjectLineage(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]LineageEntry, error) {
	return e.lineage.ListBySubject(ctx, tenantID, subjectID)
}

func (e *Engine) auditEvent(ctx context.Context, tenantID id.TenantID, entry auditchain.Entry) {
	if _, err := e.audit.Append(ctx, tenantID, entry); err != nil {
		e.logger.Error("audit rights event", "kind", entry.Kind, "tenant_id", tenantID, "error", err)
	}
}
