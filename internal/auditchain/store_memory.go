package auditchain

import (
	"context"
	"sync"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/sentinel"
)

// InMemoryStore keeps audit chains in memory for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TenantID][]*Event
}

// NewInMemoryStore constructs an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TenantID][]*Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.events[event.TenantID]
	if len(chain) > 0 && chain[len(chain)-1].Sequence >= event.Sequence {
		return dErrors.New(dErrors.CodeConflict, "duplicate sequence for tenant chain")
	}
	copyEvent := *event
	s.events[event.TenantID] = append(chain, &copyEvent)
	return nil
}

func (s *InMemoryStore) Last(_ context.Context, tenantID id.TenantID) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.events[tenantID]
	if len(chain) == 0 {
		return nil, sentinel.ErrNotFound
	}
	copyEvent := *chain[len(chain)-1]
	return &copyEvent, nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.events[tenantID]
	out := make([]*Event, 0, len(chain))
	for _, event := range chain {
		copyEvent := *event
		out = append(out, &copyEvent)
	}
	return out, nil
}

// Tamper overwrites a stored event in place, bypassing the append-only
// contract. Test helper for chain violation detection; never call outside tests.
func (s *InMemoryStore) Tamper(tenantID id.TenantID, sequence uint64, mutate func(*Event)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events[tenantID] {
		if event.Sequence == sequence {
			mutate(event)
			return true
		}
	}
	return false
}
