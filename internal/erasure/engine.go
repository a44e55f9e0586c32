package erasure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"certus/internal/auditchain"
	"certus/internal/legalhold"
	"certus/internal/platform/tracer"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/canonical"
)

// CreateParams carries the inputs for a new erasure request.
type CreateParams struct {
	TenantID        id.TenantID
	SubjectID       id.SubjectID
	RightsRequestID id.RequestID
	Scope           Scope
	Method          Method
	ProofType       ProofType
	Justification   string
	RequestedBy     string
}

// Engine creates and executes erasure requests and generates proofs.
type Engine struct {
	requests RequestStore
	locator  Locator
	executor Executor
	holds    HoldGate
	vault    Vault
	signer   *Signer
	verifier Verifier
	audit    AuditLog
	logger   *slog.Logger
	metrics  *Metrics
	tracer   tracer.Tracer
	now      func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer attaches a span tracer.
func WithTracer(t tracer.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs the erasure engine.
func NewEngine(
	requests RequestStore,
	locator Locator,
	executor Executor,
	holds HoldGate,
	vault Vault,
	signer *Signer,
	verifier Verifier,
	audit AuditLog,
	logger *slog.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		requests: requests,
		locator:  locator,
		executor: executor,
		holds:    holds,
		vault:    vault,
		signer:   signer,
		verifier: verifier,
		audit:    audit,
		logger:   logger,
		tracer:   tracer.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateRequest runs the authoritative legal hold gate and, only if it
// passes, creates a PENDING erasure request. Fail-closed: if holds cannot be
// read the erasure is blocked. A blocked attempt creates nothing.
func (e *Engine) CreateRequest(ctx context.Context, params CreateParams) (*Request, error) {
	if params.TenantID.IsNil() || params.SubjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant and subject IDs required")
	}
	if !params.Scope.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid erasure scope: "+string(params.Scope))
	}
	if !params.Method.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid erasure method: "+string(params.Method))
	}
	if params.Justification == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "erasure justification required")
	}
	if params.RequestedBy == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requesting party required")
	}
	if params.ProofType == "" {
		params.ProofType = ProofTypeStandard
	}
	if params.ProofType == ProofTypeZeroKnowledge {
		return nil, errZeroKnowledgeUnavailable
	}

	if err := e.gate(ctx, params.TenantID, params.SubjectID); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	request := &Request{
		ID:              id.NewErasureID(),
		TenantID:        params.TenantID,
		SubjectID:       params.SubjectID,
		RightsRequestID: params.RightsRequestID,
		Scope:           params.Scope,
		Method:          params.Method,
		ProofType:       params.ProofType,
		Justification:   params.Justification,
		RequestedBy:     params.RequestedBy,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.requests.Save(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save erasure request")
	}

	e.auditEvent(ctx, params.TenantID, auditchain.Entry{
		Kind:        auditchain.KindLegalHoldCheckPassed,
		Actor:       params.RequestedBy,
		Subject:     params.SubjectID.String(),
		Correlation: request.ID.String(),
		Decision:    "approved",
	})
	e.logger.Info("erasure request created",
		"erasure_id", request.ID,
		"tenant_id", params.TenantID,
		"subject_id", params.SubjectID,
		"scope", params.Scope,
		"method", params.Method,
	)
	return request, nil
}

// gate blocks when any active hold covers the subject, or when holds cannot
// be determined at all.
func (e *Engine) gate(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) error {
	holds, err := e.holds.ActiveHoldsFor(ctx, tenantID, subjectID)
	if err != nil {
		return dErrors.WrapWithCode(err, dErrors.CodeLegalHoldBlocked,
			"legal hold status unavailable; erasure blocked")
	}
	if len(holds) > 0 {
		if e.metrics != nil {
			e.metrics.IncBlocked()
		}
		return legalhold.NewBlocked(holds)
	}
	return nil
}

// Execute destroys the subject's data and generates the erasure proof:
// capture and sign the before state, destroy every located item, capture and
// sign the after state, build the evidence Merkle tree, store the proof, and
// run a quick verification. Holds are re-checked immediately before
// destruction; a hold issued after CreateRequest still blocks here.
//
// All-or-nothing: any executor failure moves the request to FAILED even if
// some locations were already destroyed, and no proof is stored.
func (e *Engine) Execute(ctx context.Context, tenantID id.TenantID, erasureID id.ErasureID, executedBy string) (*Proof, error) {
	ctx, span := e.tracer.Start(ctx, "erasure.execute",
		tracer.String("tenant_id", tenantID.String()),
		tracer.String("erasure_id", erasureID.String()),
	)
	proof, err := e.execute(ctx, tenantID, erasureID, executedBy)
	span.End(err)
	return proof, err
}

func (e *Engine) execute(ctx context.Context, tenantID id.TenantID, erasureID id.ErasureID, executedBy string) (*Proof, error) {
	started := e.now()
	request, err := e.requests.FindByID(ctx, tenantID, erasureID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "erasure request not found: "+erasureID.String())
	}
	if request.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodeStateTransition,
			"erasure request "+erasureID.String()+" is "+string(request.Status)+", not PENDING")
	}

	// Holds issued between creation and execution must still block, and
	// nothing may be destroyed once one exists.
	if err := e.gate(ctx, tenantID, request.SubjectID); err != nil {
		e.fail(ctx, request, executedBy, "blocked by legal hold at execution time")
		return nil, err
	}

	if err := request.Transition(StatusExecuting, e.now().UTC()); err != nil {
		return nil, err
	}
	if err := e.requests.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark erasure executing")
	}

	inventory, err := e.locator.Locate(ctx, tenantID, request.SubjectID, request.Scope)
	if err != nil {
		e.fail(ctx, request, executedBy, "locate subject data: "+err.Error())
		if timedOut(err) {
			return nil, dErrors.WrapWithCode(err, dErrors.CodeTimeout, "locate subject data timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "locate subject data")
	}
	if inventory == nil {
		inventory = []InventoryItem{}
	}

	before, err := e.captureState(inventory)
	if err != nil {
		e.fail(ctx, request, executedBy, "capture before state: "+err.Error())
		return nil, err
	}

	evidence := make([]Evidence, 0, len(inventory))
	for _, item := range inventory {
		for _, location := range item.Locations {
			ev, eraseErr := e.executor.Erase(ctx, item, location, request.Method)
			if eraseErr != nil {
				e.fail(ctx, request, executedBy,
					fmt.Sprintf("destroy %s at %s: %v", item.DataType, location, eraseErr))
				if timedOut(eraseErr) {
					return nil, dErrors.WrapWithCode(eraseErr, dErrors.CodeTimeout,
						"erasure executor timed out at "+location)
				}
				return nil, dErrors.WrapWithCode(eraseErr, dErrors.CodeExecutorFailure,
					"erasure executor failed at "+location)
			}
			ev.ErasedBy = executedBy
			if invErr := ev.Validate(); invErr != nil {
				e.fail(ctx, request, executedBy, "invalid destruction evidence: "+invErr.Error())
				return nil, invErr
			}
			evidence = append(evidence, ev)
		}
	}

	after, err := e.captureState([]InventoryItem{})
	if err != nil {
		e.fail(ctx, request, executedBy, "capture after state: "+err.Error())
		return nil, err
	}
	if !after.Timestamp.After(before.Timestamp) {
		after.Timestamp = before.Timestamp.Add(time.Nanosecond)
	}
	if len(evidence) > 0 && before.DataHash == after.DataHash {
		e.fail(ctx, request, executedBy, "state unchanged despite destruction evidence")
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			"before and after states are identical despite recorded destruction")
	}

	leaves, err := EvidenceLeaves(evidence)
	if err != nil {
		e.fail(ctx, request, executedBy, "hash destruction evidence: "+err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash destruction evidence")
	}

	proof := &Proof{
		ID:          id.NewProofID(),
		TenantID:    tenantID,
		ErasureID:   request.ID,
		SubjectID:   request.SubjectID,
		Before:      before,
		After:       after,
		Evidence:    evidence,
		Tree:        BuildMerkleTree(leaves),
		GeneratedAt: e.now().UTC(),
	}
	if err := e.vault.Store(ctx, proof); err != nil {
		e.fail(ctx, request, executedBy, "store proof: "+err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store erasure proof")
	}

	if err := request.Transition(StatusCompleted, e.now().UTC()); err != nil {
		return nil, err
	}
	if err := e.requests.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark erasure completed")
	}

	e.auditEvent(ctx, tenantID, auditchain.Entry{
		Kind:        auditchain.KindErasureCompleted,
		Actor:       executedBy,
		Subject:     request.SubjectID.String(),
		Correlation: request.RightsRequestID.String(),
		Decision:    "destroyed",
		Reason:      fmt.Sprintf("proof %s over %d evidence entries", proof.ID, len(evidence)),
	})

	// Verification failure is recorded on the proof, never surfaced as an
	// execution error: the data is gone either way, and the re-verification
	// worker retries unverified proofs.
	outcome, err := e.verifier.Quick(proof)
	if err != nil {
		e.logger.Error("quick proof verification errored", "proof_id", proof.ID, "error", err)
	} else {
		proof.Verification = &outcome
		if err := e.vault.SetVerification(ctx, tenantID, proof.ID, outcome); err != nil {
			e.logger.Error("record proof verification", "proof_id", proof.ID, "error", err)
		}
		e.auditEvent(ctx, tenantID, auditchain.Entry{
			Kind:        auditchain.KindProofVerified,
			Actor:       outcome.VerifiedBy,
			Subject:     request.SubjectID.String(),
			Correlation: proof.ID.String(),
			Decision:    fmt.Sprintf("%t", outcome.Result),
			Reason:      fmt.Sprintf("confidence %.2f via %s", outcome.Confidence, outcome.Strategy),
		})
	}

	if e.metrics != nil {
		e.metrics.IncExecuted(StatusCompleted)
		e.metrics.ObserveDuration(e.now().Sub(started).Seconds())
	}
	e.logger.Info("erasure executed",
		"erasure_id", request.ID,
		"proof_id", proof.ID,
		"tenant_id", tenantID,
		"evidence", len(evidence),
		"verified", proof.Verification != nil && proof.Verification.Result,
	)
	return proof, nil
}

// Abandon discards a PENDING erasure request before any data is touched.
func (e *Engine) Abandon(ctx context.Context, tenantID id.TenantID, erasureID id.ErasureID, actor string) error {
	request, err := e.requests.FindByID(ctx, tenantID, erasureID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "erasure request not found: "+erasureID.String())
	}
	if err := request.Transition(StatusAbandoned, e.now().UTC()); err != nil {
		return err
	}
	if err := e.requests.Update(ctx, request); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mark erasure abandoned")
	}
	e.auditEvent(ctx, tenantID, auditchain.Entry{
		Kind:        auditchain.KindErasureAbandoned,
		Actor:       actor,
		Subject:     request.SubjectID.String(),
		Correlation: request.ID.String(),
		Decision:    string(StatusAbandoned),
	})
	return nil
}

// GetProof loads a stored proof.
func (e *Engine) GetProof(ctx context.Context, tenantID id.TenantID, proofID id.ProofID) (*Proof, error) {
	return e.vault.Get(ctx, tenantID, proofID)
}

// captureState snapshots and signs the inventory. The inventory slice must
// be non-nil so the empty after-state hashes identically everywhere.
func (e *Engine) captureState(inventory []InventoryItem) (CryptoState, error) {
	dataHash, err := canonical.SHA256Hex(inventory)
	if err != nil {
		return CryptoState{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash inventory")
	}
	leaves := make([]string, 0, len(inventory))
	for _, item := range inventory {
		leaf, err := canonical.SHA256Hex(item)
		if err != nil {
			return CryptoState{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash inventory item")
		}
		leaves = append(leaves, leaf)
	}
	root := MerkleRoot(leaves)
	return CryptoState{
		DataHash:   dataHash,
		MerkleRoot: root,
		Signature:  e.signer.SignState(dataHash, root),
		Timestamp:  e.now().UTC(),
	}, nil
}

// fail marks the request FAILED with a reason and audits the failure.
// Best-effort: called on paths that already carry a primary error.
func (e *Engine) fail(ctx context.Context, request *Request, actor, reason string) {
	request.FailureReason = reason
	// Forced terminal even from PENDING: a request blocked at execution time
	// must never be retried as-is.
	request.Status = StatusFailed
	request.UpdatedAt = e.now().UTC()
	if err := e.requests.Update(ctx, request); err != nil {
		e.logger.Error("mark erasure failed", "erasure_id", request.ID, "error", err)
	}
	if e.metrics != nil {
		e.metrics.IncExecuted(StatusFailed)
	}
	e.auditEvent(ctx, request.TenantID, auditchain.Entry{
		Kind:        auditchain.KindErasureFailed,
		Actor:       actor,
		Subject:     request.SubjectID.String(),
		Correlation: request.ID.String(),
		Decision:    string(StatusFailed),
		Reason:      reason,
	})
}

// timedOut reports whether a collaborator error is a caller-supplied
// deadline expiring rather than a collaborator fault.
func timedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

// auditEvent appends to the tenant chain, logging rather than failing the
// operation when the chain write errors: by the time these events fire the
// underlying action has already happened.
func (e *Engine) auditEvent(ctx context.Context, tenantID id.TenantID, entry auditchain.Entry) {
	if _, err := e.audit.Append(ctx, tenantID, entry); err != nil {
		e.logger.Error("audit erasure event", "kind", entry.Kind, "tenant_id", tenantID, "error", err)
	}
}
