package rights

import (
	"context"
	"sync"
	"time"

	id "certus/pkg/domain"
)

// LineageKind classifies lineage entries.
type LineageKind string

const (
	LineageRegistered   LineageKind = "registered"
	LineageConsent      LineageKind = "consent"
	LineageRequest      LineageKind = "rights_request"
	LineageHoldAttached LineageKind = "legal_hold_attached"
	LineageErased       LineageKind = "erased"
)

// LineageEntry is one event in a subject's data lineage: where the subject's
// governed data came from and what compliance actions touched it.
type LineageEntry struct {
	At      time.Time
	Kind    LineageKind
	Detail  string
	HoldID  *id.HoldID
	ProofID *id.ProofID
}

// Lineage records per-subject lineage entries. Also satisfies the hold
// registry's LineageRecorder so issued holds show up on the subjects they
// name.
type Lineage interface {
	Record(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, entry LineageEntry) error
	AttachHold(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, holdID id.HoldID, basis string) error
	ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]LineageEntry, error)
}

// InMemoryLineage keeps lineage in memory for tests and local development.
type InMemoryLineage struct {
	mu      sync.RWMutex
	entries map[id.TenantID]map[id.SubjectID][]LineageEntry
	now     func() time.Time
}

// NewInMemoryLineage constructs an empty in-memory lineage recorder.
func NewInMemoryLineage() *InMemoryLineage {
	return &InMemoryLineage{
		entries: make(map[id.TenantID]map[id.SubjectID][]LineageEntry),
		now:     time.Now,
	}
}

func (l *InMemoryLineage) Record(_ context.Context, tenantID id.TenantID, subjectID id.SubjectID, entry LineageEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tenantEntries, ok := l.entries[tenantID]
	if !ok {
		tenantEntries = make(map[id.SubjectID][]LineageEntry)
		l.entries[tenantID] = tenantEntries
	}
	tenantEntries[subjectID] = append(tenantEntries[subjectID], entry)
	return nil
}

func (l *InMemoryLineage) AttachHold(ctx context.Context, tenantID id.TenantID, subjectID id.SubjectID, holdID id.HoldID, basis string) error {
	return l.Record(ctx, tenantID, subjectID, LineageEntry{
		At:     l.now().UTC(),
		Kind:   LineageHoldAttached,
		Detail: basis,
		HoldID: &holdID,
	})
}

func (l *InMemoryLineage) ListBySubject(_ context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]LineageEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.entries[tenantID][subjectID]
	out := make([]LineageEntry, len(entries))
	copy(out, entries)
	return out, nil
}
