package compliance

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"certus/internal/auditchain"
	"certus/internal/erasure"
	"certus/internal/legalhold"
	"certus/internal/rights"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
)

// ComplianceSuite drives the assembled core through the two canonical
// journeys: a clean erasure with a verifiable trail, and an erasure stopped
// by a legal hold.
type ComplianceSuite struct {
	suite.Suite
	core       *Core
	auditStore *auditchain.InMemoryStore
	tenantID   id.TenantID
}

func TestComplianceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceSuite))
}

func (s *ComplianceSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditStore = auditchain.NewInMemoryStore()
	core, err := New(Config{
		Logger:     log,
		AuditStore: s.auditStore,
		Locator: erasure.LocatorFunc(func(context.Context, id.TenantID, id.SubjectID, erasure.Scope) ([]erasure.InventoryItem, error) {
			return []erasure.InventoryItem{
				{DataType: "profile", RecordCount: 1, Locations: []string{"users_db"}, SizeBytes: 640},
				{DataType: "orders", RecordCount: 12, Locations: []string{"orders_db", "warehouse"}, SizeBytes: 8192},
			}, nil
		}),
	})
	s.Require().NoError(err)
	s.core = core
	s.tenantID = id.NewTenantID()
}

func (s *ComplianceSuite) eventKinds() []auditchain.Kind {
	events, err := s.core.Chain.List(context.Background(), s.tenantID)
	s.Require().NoError(err)
	kinds := make([]auditchain.Kind, len(events))
	for i, event := range events {
		kinds[i] = event.Kind
	}
	return kinds
}

func (s *ComplianceSuite) TestErasureJourney_OneEventPerMajorStep() {
	ctx := context.Background()

	subject, err := s.core.Rights.RegisterDataSubject(ctx, s.tenantID, rights.SubjectTypeCustomer, "EU", nil, "intake@acme")
	s.Require().NoError(err)

	request, err := s.core.Rights.SubmitRightsRequest(ctx, rights.SubmitParams{
		TenantID:      s.tenantID,
		SubjectID:     subject.ID,
		Right:         rights.RightErasure,
		Justification: "account closure",
		SubmittedBy:   "portal",
	})
	s.Require().NoError(err)

	proof, err := s.core.Rights.ProcessDataErasure(ctx, s.tenantID, request.ID, "erasure-worker")
	s.Require().NoError(err)

	s.Equal([]auditchain.Kind{
		auditchain.KindDataSubjectRegistered,
		auditchain.KindRightsRequestSubmitted,
		auditchain.KindLegalHoldCheckPassed,
		auditchain.KindErasureCompleted,
		auditchain.KindProofVerified,
	}, s.eventKinds(), "exactly one audit event per major step, in order")
	s.NoError(s.core.Chain.Verify(context.Background(), s.tenantID))

	// The proof stands on its own under the full strategy and can be
	// attested to a third party.
	stored, err := s.core.Vault.Get(ctx, s.tenantID, proof.ID)
	s.Require().NoError(err)
	outcome, err := s.core.Verifier.Full(stored)
	s.Require().NoError(err)
	s.True(outcome.Result)

	token, err := s.core.Attestor.Issue(proof)
	s.Require().NoError(err)
	claims, err := s.core.Attestor.Check(token)
	s.Require().NoError(err)
	s.Equal(proof.ID.String(), claims.ProofID)
}

func (s *ComplianceSuite) TestHeldSubject_ErasureRefusedWithoutSideEffects() {
	ctx := context.Background()

	subject, err := s.core.Rights.RegisterDataSubject(ctx, s.tenantID, rights.SubjectTypeCustomer, "US-CA", nil, "intake@acme")
	s.Require().NoError(err)

	hold, err := s.core.Holds.IssueHold(ctx, s.tenantID, legalhold.TypeLitigation,
		legalhold.Scope{SubjectIDs: []id.SubjectID{subject.ID}}, "case 2026-CV-114", "counsel@acme", nil)
	s.Require().NoError(err)

	request, err := s.core.Rights.SubmitRightsRequest(ctx, rights.SubmitParams{
		TenantID:      s.tenantID,
		SubjectID:     subject.ID,
		Right:         rights.RightErasure,
		Justification: "account closure",
		SubmittedBy:   "portal",
	})
	s.Require().NoError(err)
	s.Equal(rights.StatusRejected, request.Status)
	s.Contains(request.Outcome.Reason, hold.ID.String(), "the rejection must name the blocking hold")
	s.Nil(request.Outcome.ProofID)

	s.Equal([]auditchain.Kind{
		auditchain.KindDataSubjectRegistered,
		auditchain.KindLegalHoldIssued,
		auditchain.KindRightsRequestBlocked,
	}, s.eventKinds())

	// No erasure artifacts exist and the subject's data is untouched.
	unverified, err := s.core.Vault.ListUnverified(ctx)
	s.Require().NoError(err)
	s.Empty(unverified)
	current, err := s.core.Rights.GetSubject(ctx, s.tenantID, subject.ID)
	s.Require().NoError(err)
	s.False(current.IsErased())
}

func (s *ComplianceSuite) TestReleasedHold_UnblocksLaterRequest() {
	ctx := context.Background()

	subject, err := s.core.Rights.RegisterDataSubject(ctx, s.tenantID, rights.SubjectTypeCustomer, "EU", nil, "intake@acme")
	s.Require().NoError(err)
	hold, err := s.core.Holds.IssueHold(ctx, s.tenantID, legalhold.TypeInvestigation,
		legalhold.Scope{SubjectIDs: []id.SubjectID{subject.ID}}, "internal review", "counsel@acme", nil)
	s.Require().NoError(err)

	blocked, err := s.core.Rights.SubmitRightsRequest(ctx, rights.SubmitParams{
		TenantID:      s.tenantID,
		SubjectID:     subject.ID,
		Right:         rights.RightErasure,
		Justification: "account closure",
		SubmittedBy:   "portal",
	})
	s.Require().NoError(err)
	s.Equal(rights.StatusRejected, blocked.Status)

	_, err = s.core.Holds.ReleaseHold(ctx, s.tenantID, hold.ID, "counsel@acme")
	s.Require().NoError(err)

	retry, err := s.core.Rights.SubmitRightsRequest(ctx, rights.SubmitParams{
		TenantID:      s.tenantID,
		SubjectID:     subject.ID,
		Right:         rights.RightErasure,
		Justification: "account closure",
		SubmittedBy:   "portal",
	})
	s.Require().NoError(err)
	s.Equal(rights.StatusPending, retry.Status)

	proof, err := s.core.Rights.ProcessDataErasure(ctx, s.tenantID, retry.ID, "erasure-worker")
	s.Require().NoError(err)
	s.Require().NotNil(proof.Verification)
	s.True(proof.Verification.Result)
	s.NoError(s.core.Chain.Verify(ctx, s.tenantID))
}

func (s *ComplianceSuite) TestTamperedChain_DetectedAfterJourney() {
	ctx := context.Background()
	subject, err := s.core.Rights.RegisterDataSubject(ctx, s.tenantID, rights.SubjectTypeCustomer, "EU", nil, "intake@acme")
	s.Require().NoError(err)
	_, err = s.core.Rights.SubmitRightsRequest(ctx, rights.SubmitParams{
		TenantID:      s.tenantID,
		SubjectID:     subject.ID,
		Right:         rights.RightAccess,
		Justification: "subject access request",
		SubmittedBy:   "portal",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.core.Chain.Verify(ctx, s.tenantID))

	s.Require().True(s.auditStore.Tamper(s.tenantID, 2, func(event *auditchain.Event) {
		event.Reason = "rewritten after the fact"
	}))

	err = s.core.Chain.Verify(ctx, s.tenantID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
