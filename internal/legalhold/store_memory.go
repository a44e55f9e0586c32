package legalhold

import (
	"context"
	"sync"

	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// InMemoryStore keeps legal holds in memory for tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	holds map[id.TenantID]map[id.HoldID]*Hold
}

// NewInMemoryStore constructs an empty in-memory hold store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{holds: make(map[id.TenantID]map[id.HoldID]*Hold)}
}

func (s *InMemoryStore) Save(_ context.Context, hold *Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenantHolds, ok := s.holds[hold.TenantID]
	if !ok {
		tenantHolds = make(map[id.HoldID]*Hold)
		s.holds[hold.TenantID] = tenantHolds
	}
	copyHold := *hold
	tenantHolds[hold.ID] = &copyHold
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, holdID id.HoldID) (*Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[tenantID][holdID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyHold := *hold
	return &copyHold, nil
}

func (s *InMemoryStore) Update(_ context.Context, hold *Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[hold.TenantID][hold.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copyHold := *hold
	s.holds[hold.TenantID][hold.ID] = &copyHold
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantHolds := s.holds[tenantID]
	out := make([]*Hold, 0, len(tenantHolds))
	for _, hold := range tenantHolds {
		copyHold := *hold
		out = append(out, &copyHold)
	}
	return out, nil
}
