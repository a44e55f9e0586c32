//go:build integration

package auditchain_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certus/internal/auditchain"
	id "certus/pkg/domain"
	"certus/pkg/platform/canonical"
	"certus/pkg/platform/sentinel"
	"certus/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditchain.PostgresStore
	chain    *auditchain.Chain
	tenantID id.TenantID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = auditchain.NewPostgres(s.postgres.DB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.chain = auditchain.New(s.store, logger)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "audit_events"))
	s.tenantID = id.NewTenantID()
}

// TestAppendAndReplay writes a chain through the service against the real
// store, then replays it. The stored microsecond-precision timestamps must
// recompute to the same hashes.
func (s *PostgresStoreSuite) TestAppendAndReplay() {
	ctx := context.Background()

	kinds := []auditchain.Kind{
		auditchain.KindDataSubjectRegistered,
		auditchain.KindRightsRequestSubmitted,
		auditchain.KindErasureCompleted,
	}
	for _, kind := range kinds {
		_, err := s.chain.Append(ctx, s.tenantID, auditchain.Entry{
			Kind:  kind,
			Actor: "integration-test",
		})
		s.Require().NoError(err)
	}

	s.Require().NoError(s.chain.Verify(ctx, s.tenantID))

	events, err := s.store.ListByTenant(ctx, s.tenantID)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(canonical.ZeroHash, events[0].PrevHash)
	for i, event := range events {
		s.Equal(uint64(i+1), event.Sequence)
		s.Equal(kinds[i], event.Kind)
		if i > 0 {
			s.Equal(events[i-1].CurrentHash, event.PrevHash)
		}
	}

	last, err := s.store.Last(ctx, s.tenantID)
	s.Require().NoError(err)
	s.Equal(events[2].CurrentHash, last.CurrentHash)
}

func (s *PostgresStoreSuite) TestLastUnknownTenant() {
	_, err := s.store.Last(context.Background(), id.NewTenantID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestDuplicateSequenceRejected exercises the (tenant_id, sequence) unique
// constraint, the backstop against concurrent writers forking a chain.
func (s *PostgresStoreSuite) TestDuplicateSequenceRejected() {
	ctx := context.Background()

	first, err := s.chain.Append(ctx, s.tenantID, auditchain.Entry{
		Kind:  auditchain.KindConsentRecorded,
		Actor: "integration-test",
	})
	s.Require().NoError(err)

	fork := &auditchain.Event{
		ID:        uuid.New(),
		TenantID:  s.tenantID,
		Sequence:  first.Sequence,
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Kind:      auditchain.KindConsentRecorded,
		Actor:     "forking-writer",
		PrevHash:  canonical.ZeroHash,
	}
	hash, err := fork.ComputeHash()
	s.Require().NoError(err)
	fork.CurrentHash = hash

	s.Error(s.store.Append(ctx, fork))
}

// TestAppendOnlyTrigger verifies the database refuses rewrites of stored
// events even for the application role.
func (s *PostgresStoreSuite) TestAppendOnlyTrigger() {
	ctx := context.Background()

	event, err := s.chain.Append(ctx, s.tenantID, auditchain.Entry{
		Kind:  auditchain.KindLegalHoldIssued,
		Actor: "integration-test",
	})
	s.Require().NoError(err)

	_, err = s.postgres.Exec(ctx,
		"UPDATE audit_events SET reason = 'rewritten' WHERE id = $1", event.ID)
	s.Require().Error(err)
	s.Contains(err.Error(), "append-only")

	_, err = s.postgres.Exec(ctx,
		"DELETE FROM audit_events WHERE id = $1", event.ID)
	s.Require().Error(err)
	s.Contains(err.Error(), "append-only")

	s.NoError(s.chain.Verify(ctx, s.tenantID))
}

// TestTenantIsolation checks that each tenant gets an independent genesis and
// sequence space.
func (s *PostgresStoreSuite) TestTenantIsolation() {
	ctx := context.Background()
	other := id.NewTenantID()

	for _, tenant := range []id.TenantID{s.tenantID, other} {
		for range 2 {
			_, err := s.chain.Append(ctx, tenant, auditchain.Entry{
				Kind:  auditchain.KindProofVerified,
				Actor: "integration-test",
			})
			s.Require().NoError(err)
		}
	}

	for _, tenant := range []id.TenantID{s.tenantID, other} {
		events, err := s.store.ListByTenant(ctx, tenant)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(canonical.ZeroHash, events[0].PrevHash)
		s.NoError(s.chain.Verify(ctx, tenant))
	}
}
