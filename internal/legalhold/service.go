package legalhold

import (
	"context"
	"log/slog"
	"time"

	"certus/internal/auditchain"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// Store defines legal hold persistence.
//
// Error Contract:
// - FindByID returns sentinel.ErrNotFound when the hold does not exist
// - ListByTenant returns every hold for the tenant regardless of status
type Store interface {
	Save(ctx context.Context, hold *Hold) error
	FindByID(ctx context.Context, tenantID id.TenantID, holdID id.HoldID) (*Hold, error)
	Update(ctx context.Context, hold *Hold) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Hold, error)
}

// AuditLog is the slice of the audit chain the registry writes to.
type AuditLog interface {
	Append(ctx context.Context, tenantID id.TenantID, entry auditchain.Entry) (*auditchain.Event, error)
}

// LineageRecorder attaches hold references to subject lineage records so a
// later blocked erasure can be explained without consulting the registry.
type LineageRecorder interface {
	AttachHold(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, holdID id.HoldID, basis string) error
}

// Registry issues, releases, and queries legal holds.
type Registry struct {
	store   Store
	audit   AuditLog
	lineage LineageRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Registry.
type Option func(*Registry)

// WithLineageRecorder attaches a lineage recorder for hold/subject association.
func WithLineageRecorder(r LineageRecorder) Option {
	return func(reg *Registry) { reg.lineage = r }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(reg *Registry) { reg.now = now }
}

// NewRegistry constructs the legal hold registry.
func NewRegistry(store Store, audit AuditLog, logger *slog.Logger, opts ...Option) *Registry {
	reg := &Registry{
		store:  store,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// IssueHold creates a new ACTIVE hold. Deliberately not idempotent: every call
// creates a distinct hold and callers own deduplication, because silently
// merging two preservation orders with different legal bases would be wrong.
func (r *Registry) IssueHold(ctx context.Context, tenantID id.TenantID, holdType Type, scope Scope, legalBasis, issuedBy string, expiresAt *time.Time) (*Hold, error) {
	hold, err := NewHold(tenantID, holdType, scope, legalBasis, issuedBy, r.now(), expiresAt)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, hold); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save legal hold")
	}

	// Attach the hold to every explicitly named subject's lineage so a
	// blocked erasure can later be explained. Subjects matched only through
	// data-type or date-range scope are associated lazily at gate time.
	if r.lineage != nil {
		for _, subjectID := range scope.SubjectIDs {
			if err := r.lineage.AttachHold(ctx, tenantID, subjectID, hold.ID, legalBasis); err != nil {
				r.logger.Warn("attach hold to subject lineage",
					"hold_id", hold.ID,
					"subject_id", subjectID,
					"error", err,
				)
			}
		}
	}

	if _, err := r.audit.Append(ctx, tenantID, auditchain.Entry{
		Kind:        auditchain.KindLegalHoldIssued,
		Actor:       issuedBy,
		Correlation: hold.ID.String(),
		Decision:    string(StatusActive),
		Reason:      legalBasis,
	}); err != nil {
		// The hold is already in force; failing the issue here would leave
		// callers believing no hold exists. Log loudly instead.
		r.logger.Error("audit legal hold issue", "hold_id", hold.ID, "error", err)
	}

	r.logger.Info("legal hold issued",
		"hold_id", hold.ID,
		"tenant_id", tenantID,
		"type", holdType,
		"subjects", len(scope.SubjectIDs),
	)
	return hold, nil
}

// ReleaseHold moves a hold to RELEASED. Terminal: released holds never
// reactivate.
func (r *Registry) ReleaseHold(ctx context.Context, tenantID id.TenantID, holdID id.HoldID, releasedBy string) (*Hold, error) {
	return r.transition(ctx, tenantID, holdID, StatusReleased, releasedBy, auditchain.KindLegalHoldReleased)
}

// SuspendHold moves a hold to SUSPENDED. A suspended hold does not block
// erasure until resumed.
func (r *Registry) SuspendHold(ctx context.Context, tenantID id.TenantID, holdID id.HoldID, actor string) (*Hold, error) {
	return r.transition(ctx, tenantID, holdID, StatusSuspended, actor, auditchain.KindLegalHoldSuspended)
}

// ResumeHold moves a SUSPENDED hold back to ACTIVE.
func (r *Registry) ResumeHold(ctx context.Context, tenantID id.TenantID, holdID id.HoldID, actor string) (*Hold, error) {
	return r.transition(ctx, tenantID, holdID, StatusActive, actor, auditchain.KindLegalHoldIssued)
}

func (r *Registry) transition(ctx context.Context, tenantID id.TenantID, holdID id.HoldID, next Status, actor string, kind auditchain.Kind) (*Hold, error) {
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "acting party required")
	}
	hold, err := r.store.FindByID(ctx, tenantID, holdID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "legal hold not found: "+holdID.String())
	}
	if !hold.Status.CanTransition(next) {
		return nil, dErrors.New(dErrors.CodeStateTransition,
			"legal hold "+holdID.String()+" cannot move from "+string(hold.Status)+" to "+string(next))
	}

	hold.Status = next
	if next == StatusReleased {
		now := r.now()
		hold.ReleasedBy = actor
		hold.ReleasedAt = &now
	}
	if err := r.store.Update(ctx, hold); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update legal hold")
	}

	if _, err := r.audit.Append(ctx, tenantID, auditchain.Entry{
		Kind:        kind,
		Actor:       actor,
		Correlation: hold.ID.String(),
		Decision:    string(next),
	}); err != nil {
		r.logger.Error("audit legal hold transition", "hold_id", hold.ID, "error", err)
	}
	return hold, nil
}

// ActiveHoldsFor returns every hold currently blocking erasure for the
// subject. The read always goes to the store - never a cache - because a hold
// issued concurrently with an in-flight erasure must still be able to block
// it. Holds past their expiry are lazily transitioned to EXPIRED here.
func (r *Registry) ActiveHoldsFor(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]*Hold, error) {
	holds, err := r.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list legal holds")
	}

	now := r.now()
	var blocking []*Hold
	for _, hold := range holds {
		if hold.Status == StatusActive && hold.IsExpired(now) {
			hold.Status = StatusExpired
			if err := r.store.Update(ctx, hold); err != nil {
				// Keep treating it as expired for this check; the lazy
				// transition will be retried on the next read.
				r.logger.Warn("expire legal hold", "hold_id", hold.ID, "error", err)
			}
			continue
		}
		if hold.Blocks(subjectID, now) {
			blocking = append(blocking, hold)
		}
	}
	return blocking, nil
}
