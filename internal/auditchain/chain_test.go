package auditchain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/canonical"
)

type ChainSuite struct {
	suite.Suite
	store    *InMemoryStore
	chain    *Chain
	tenantID id.TenantID
}

func (s *ChainSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.chain = New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.tenantID = id.NewTenantID()
}

func TestChainSuite(t *testing.T) {
	suite.Run(t, new(ChainSuite))
}

func (s *ChainSuite) append(kind Kind) *Event {
	event, err := s.chain.Append(context.Background(), s.tenantID, Entry{
		Kind:  kind,
		Actor: "system",
	})
	s.Require().NoError(err)
	return event
}

// TestAppend_LinksEvents verifies genesis linkage and predecessor hashing.
// Invariant: sequence starts at 1, genesis PrevHash is the zero hash, and each
// event's PrevHash equals its predecessor's CurrentHash.
func (s *ChainSuite) TestAppend_LinksEvents() {
	first := s.append(KindDataSubjectRegistered)
	s.Equal(uint64(1), first.Sequence)
	s.Equal(canonical.ZeroHash, first.PrevHash)
	s.NotEmpty(first.CurrentHash)
	s.True(first.Immutable)

	second := s.append(KindRightsRequestSubmitted)
	s.Equal(uint64(2), second.Sequence)
	s.Equal(first.CurrentHash, second.PrevHash)
	s.NotEqual(first.CurrentHash, second.CurrentHash)
}

// TestAppend_Validation verifies required-field rejection.
func (s *ChainSuite) TestAppend_Validation() {
	_, err := s.chain.Append(context.Background(), id.TenantID{}, Entry{Kind: KindErasureCompleted, Actor: "system"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.chain.Append(context.Background(), s.tenantID, Entry{Actor: "system"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.chain.Append(context.Background(), s.tenantID, Entry{Kind: KindErasureCompleted})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// TestVerify_ReplayReproducesChain covers the replay property: appending N
// events and replaying from sequence 1 reproduces every stored hash.
func (s *ChainSuite) TestVerify_ReplayReproducesChain() {
	for i := 0; i < 25; i++ {
		s.append(KindConsentRecorded)
	}
	s.Require().NoError(s.chain.Verify(context.Background(), s.tenantID))

	events, err := s.chain.List(context.Background(), s.tenantID)
	s.Require().NoError(err)
	s.Len(events, 25)
	for _, event := range events {
		recomputed, err := event.ComputeHash()
		s.Require().NoError(err)
		s.Equal(event.CurrentHash, recomputed)
	}
}

// TestVerify_DetectsTampering mutates single stored events and asserts replay
// flags the chain, whichever field was touched.
func (s *ChainSuite) TestVerify_DetectsTampering() {
	for i := 0; i < 5; i++ {
		s.append(KindErasureCompleted)
	}

	s.Run("mutated payload field", func() {
		s.Require().True(s.store.Tamper(s.tenantID, 3, func(e *Event) {
			e.Reason = "rewritten history"
		}))
		err := s.chain.Verify(context.Background(), s.tenantID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("mutated hash field", func() {
		s.SetupTest()
		for i := 0; i < 5; i++ {
			s.append(KindErasureCompleted)
		}
		s.Require().True(s.store.Tamper(s.tenantID, 2, func(e *Event) {
			e.CurrentHash = canonical.ZeroHash
		}))
		err := s.chain.Verify(context.Background(), s.tenantID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// TestVerify_EmptyChainIsIntact ensures a tenant with no events verifies clean.
func (s *ChainSuite) TestVerify_EmptyChainIsIntact() {
	s.NoError(s.chain.Verify(context.Background(), id.NewTenantID()))
}

// TestAppend_ConcurrentSameTenant exercises the single-writer guarantee: no
// duplicate sequences, no stale PrevHash, under concurrent appenders.
func (s *ChainSuite) TestAppend_ConcurrentSameTenant() {
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.chain.Append(context.Background(), s.tenantID, Entry{
				Kind:  KindConsentRecorded,
				Actor: fmt.Sprintf("writer-%d", i),
			})
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.Require().NoError(s.chain.Verify(context.Background(), s.tenantID))
	events, err := s.chain.List(context.Background(), s.tenantID)
	s.Require().NoError(err)
	s.Len(events, n)
}

// TestAppend_TenantsAreIndependent verifies chains for different tenants do
// not share sequences or hash lineage.
func (s *ChainSuite) TestAppend_TenantsAreIndependent() {
	other := id.NewTenantID()

	first := s.append(KindDataSubjectRegistered)

	otherEvent, err := s.chain.Append(context.Background(), other, Entry{
		Kind:  KindDataSubjectRegistered,
		Actor: "system",
	})
	s.Require().NoError(err)

	s.Equal(uint64(1), otherEvent.Sequence)
	s.Equal(canonical.ZeroHash, otherEvent.PrevHash)
	s.NotEqual(first.CurrentHash, otherEvent.CurrentHash)

	s.NoError(s.chain.Verify(context.Background(), s.tenantID))
	s.NoError(s.chain.Verify(context.Background(), other))
}
