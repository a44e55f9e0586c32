package erasure

import (
	"context"
	"sync"

	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// InMemoryStore keeps erasure requests in memory for tests and local
// development.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.TenantID]map[id.ErasureID]*Request
}

// NewInMemoryStore constructs an empty in-memory request store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.TenantID]map[id.ErasureID]*Request)}
}

func (s *InMemoryStore) Save(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenantRequests, ok := s.requests[request.TenantID]
	if !ok {
		tenantRequests = make(map[id.ErasureID]*Request)
		s.requests[request.TenantID] = tenantRequests
	}
	copied := *request
	tenantRequests[request.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, erasureID id.ErasureID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[tenantID][erasureID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (s *InMemoryStore) Update(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.TenantID][request.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *request
	s.requests[request.TenantID][request.ID] = &copied
	return nil
}
