package rights

import (
	"context"
	"sort"
	"sync"

	id "certus/pkg/domain"
	"certus/pkg/platform/sentinel"
)

// InMemorySubjectStore keeps data subjects in memory for tests and local
// development.
type InMemorySubjectStore struct {
	mu       sync.RWMutex
	subjects map[id.TenantID]map[id.SubjectID]*Subject
}

// NewInMemorySubjectStore constructs an empty in-memory subject store.
func NewInMemorySubjectStore() *InMemorySubjectStore {
	return &InMemorySubjectStore{subjects: make(map[id.TenantID]map[id.SubjectID]*Subject)}
}

func cloneSubject(s *Subject) *Subject {
	copied := *s
	copied.Identifiers = make(map[string]string, len(s.Identifiers))
	for k, v := range s.Identifiers {
		copied.Identifiers[k] = v
	}
	copied.ConsentHistory = make([]ConsentEvent, len(s.ConsentHistory))
	copy(copied.ConsentHistory, s.ConsentHistory)
	if s.Tombstone != nil {
		tombstone := *s.Tombstone
		copied.Tombstone = &tombstone
	}
	return &copied
}

func (s *InMemorySubjectStore) Save(_ context.Context, subject *Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenantSubjects, ok := s.subjects[subject.TenantID]
	if !ok {
		tenantSubjects = make(map[id.SubjectID]*Subject)
		s.subjects[subject.TenantID] = tenantSubjects
	}
	tenantSubjects[subject.ID] = cloneSubject(subject)
	return nil
}

func (s *InMemorySubjectStore) FindByID(_ context.Context, tenantID id.TenantID, subjectID id.SubjectID) (*Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subjects[tenantID][subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSubject(subject), nil
}

func (s *InMemorySubjectStore) Update(_ context.Context, subject *Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[subject.TenantID][subject.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.subjects[subject.TenantID][subject.ID] = cloneSubject(subject)
	return nil
}

// InMemoryRequestStore keeps rights requests in memory for tests and local
// development.
type InMemoryRequestStore struct {
	mu       sync.RWMutex
	requests map[id.TenantID]map[id.RequestID]*Request
}

// NewInMemoryRequestStore constructs an empty in-memory request store.
func NewInMemoryRequestStore() *InMemoryRequestStore {
	return &InMemoryRequestStore{requests: make(map[id.TenantID]map[id.RequestID]*Request)}
}

func cloneRequest(r *Request) *Request {
	copied := *r
	copied.Steps = make([]Step, len(r.Steps))
	copy(copied.Steps, r.Steps)
	copied.Trail = make([]TrailEntry, len(r.Trail))
	copy(copied.Trail, r.Trail)
	if r.Outcome.ProofID != nil {
		proofID := *r.Outcome.ProofID
		copied.Outcome.ProofID = &proofID
	}
	if r.Outcome.CompletedAt != nil {
		completedAt := *r.Outcome.CompletedAt
		copied.Outcome.CompletedAt = &completedAt
	}
	return &copied
}

func (s *InMemoryRequestStore) Save(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenantRequests, ok := s.requests[request.TenantID]
	if !ok {
		tenantRequests = make(map[id.RequestID]*Request)
		s.requests[request.TenantID] = tenantRequests
	}
	tenantRequests[request.ID] = cloneRequest(request)
	return nil
}

func (s *InMemoryRequestStore) FindByID(_ context.Context, tenantID id.TenantID, requestID id.RequestID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[tenantID][requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRequest(request), nil
}

func (s *InMemoryRequestStore) Update(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.TenantID][request.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[request.TenantID][request.ID] = cloneRequest(request)
	return nil
}

func (s *InMemoryRequestStore) ListBySubject(_ context.Context, tenantID id.TenantID, subjectID id.SubjectID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, request := range s.requests[tenantID] {
		if request.SubjectID == subjectID {
			out = append(out, cloneRequest(request))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
