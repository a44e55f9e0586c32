package auditchain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/canonical"
)

// Store defines audit chain persistence.
//
// Error Contract:
// - Last returns sentinel.ErrNotFound when the tenant has no events yet
// - ListByTenant returns events ordered by sequence ascending
// - Append must reject duplicate (tenant, sequence) pairs
type Store interface {
	Append(ctx context.Context, event *Event) error
	Last(ctx context.Context, tenantID id.TenantID) (*Event, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Event, error)
}

// Mirror receives successfully appended events for out-of-band fan-out
// (SIEM topics, long-term archival). Mirror delivery is best-effort and must
// never block or fail an append; the store is the source of truth.
type Mirror interface {
	Publish(event *Event)
}

// Chain is the append-only audit log. It serializes sequence assignment and
// hash linking per tenant; appends for different tenants do not contend.
type Chain struct {
	store   Store
	mirror  Mirror
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu      sync.Mutex
	tenants map[id.TenantID]*sync.Mutex
}

// Option configures the Chain.
type Option func(*Chain)

// WithMirror attaches a best-effort event mirror.
func WithMirror(m Mirror) Option {
	return func(c *Chain) { c.mirror = m }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// New constructs an audit chain over the given store.
func New(store Store, logger *slog.Logger, opts ...Option) *Chain {
	c := &Chain{
		store:   store,
		logger:  logger,
		now:     time.Now,
		tenants: make(map[id.TenantID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tenantLock returns the mutex guarding sequence assignment for one tenant.
func (c *Chain) tenantLock(tenantID id.TenantID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.tenants[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		c.tenants[tenantID] = lock
	}
	return lock
}

// Append writes a new event to the tenant's chain and returns it with its
// assigned sequence and computed hash.
//
// The per-tenant lock is held only around the last-event read and the store
// write; callers must never invoke Append while holding it across external
// collaborator I/O of their own.
func (c *Chain) Append(ctx context.Context, tenantID id.TenantID, entry Entry) (*Event, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID required")
	}
	if entry.Kind == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit event kind required")
	}
	if entry.Actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit event actor required")
	}

	lock := c.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	prevHash := canonical.ZeroHash
	var sequence uint64 = 1
	last, err := c.store.Last(ctx, tenantID)
	switch {
	case err == nil:
		prevHash = last.CurrentHash
		sequence = last.Sequence + 1
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// genesis event for this tenant
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read chain head")
	}

	event := &Event{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Sequence:    sequence,
		// Microsecond precision: TIMESTAMPTZ drops nanoseconds, and replay
		// must recompute the same hash from the stored timestamp.
		Timestamp:   c.now().UTC().Truncate(time.Microsecond),
		Kind:        entry.Kind,
		Actor:       entry.Actor,
		Subject:     entry.Subject,
		Correlation: entry.Correlation,
		Decision:    entry.Decision,
		Reason:      entry.Reason,
		PrevHash:    prevHash,
		Immutable:   true,
	}
	hash, err := event.ComputeHash()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compute event hash")
	}
	event.CurrentHash = hash

	if err := c.store.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "append audit event")
	}

	if c.metrics != nil {
		c.metrics.IncAppended(string(entry.Kind))
	}
	if c.mirror != nil {
		c.mirror.Publish(event)
	}

	c.logger.Debug("audit event appended",
		"tenant_id", tenantID,
		"sequence", event.Sequence,
		"kind", event.Kind,
	)
	return event, nil
}

// List returns the tenant's full chain ordered by sequence.
func (c *Chain) List(ctx context.Context, tenantID id.TenantID) ([]*Event, error) {
	return c.store.ListByTenant(ctx, tenantID)
}

// Verify replays the tenant's chain from sequence 1 and recomputes every hash.
// It returns nil when the chain is intact, or a CodeInvariantViolation error
// describing the first broken link. Verification reads stored state only.
func (c *Chain) Verify(ctx context.Context, tenantID id.TenantID) error {
	events, err := c.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load chain for replay")
	}

	prevHash := canonical.ZeroHash
	for i, event := range events {
		wantSeq := uint64(i + 1)
		if event.Sequence != wantSeq {
			c.recordViolation(tenantID)
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("chain violation for tenant %s: expected sequence %d, found %d", tenantID, wantSeq, event.Sequence))
		}
		if event.PrevHash != prevHash {
			c.recordViolation(tenantID)
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("chain violation for tenant %s at sequence %d: previous-hash link broken", tenantID, event.Sequence))
		}
		recomputed, err := event.ComputeHash()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "recompute event hash")
		}
		if recomputed != event.CurrentHash {
			c.recordViolation(tenantID)
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("chain violation for tenant %s at sequence %d: stored hash does not match replay", tenantID, event.Sequence))
		}
		prevHash = event.CurrentHash
	}
	return nil
}

func (c *Chain) recordViolation(tenantID id.TenantID) {
	if c.metrics != nil {
		c.metrics.IncViolations()
	}
	c.logger.Error("audit chain integrity violation detected", "tenant_id", tenantID)
}
