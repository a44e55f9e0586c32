package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certus/internal/erasure"
	id "certus/pkg/domain"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/canonical"
)

type VerifierSuite struct {
	suite.Suite
	signer  *erasure.Signer
	service *Service
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) SetupTest() {
	var err error
	s.signer, err = erasure.NewSigner(nil)
	s.Require().NoError(err)
	s.service = NewService(s.signer, "auditor@certus")
}

// buildProof constructs a structurally valid, correctly signed proof the way
// the erasure engine would.
func (s *VerifierSuite) buildProof() *erasure.Proof {
	inventory := []erasure.InventoryItem{
		{DataType: "profile", RecordCount: 2, Locations: []string{"users_db"}, SizeBytes: 512},
	}
	evidence := []erasure.Evidence{
		{
			Location:         "users_db",
			DataType:         "profile",
			Operation:        erasure.OperationEncryptDelete,
			Passes:           1,
			VerificationHash: canonical.HashBytes([]byte("sealed")),
			ErasedAt:         time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
		},
	}

	before := s.captureState(inventory, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	after := s.captureState([]erasure.InventoryItem{}, time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC))
	leaves, err := erasure.EvidenceLeaves(evidence)
	s.Require().NoError(err)

	return &erasure.Proof{
		ID:          id.NewProofID(),
		TenantID:    id.NewTenantID(),
		ErasureID:   id.NewErasureID(),
		SubjectID:   id.NewSubjectID(),
		Before:      before,
		After:       after,
		Evidence:    evidence,
		Tree:        erasure.BuildMerkleTree(leaves),
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
	}
}

func (s *VerifierSuite) captureState(inventory []erasure.InventoryItem, at time.Time) erasure.CryptoState {
	dataHash, err := canonical.SHA256Hex(inventory)
	s.Require().NoError(err)
	leaves := make([]string, 0, len(inventory))
	for _, item := range inventory {
		leaf, err := canonical.SHA256Hex(item)
		s.Require().NoError(err)
		leaves = append(leaves, leaf)
	}
	root := erasure.MerkleRoot(leaves)
	return erasure.CryptoState{
		DataHash:   dataHash,
		MerkleRoot: root,
		Signature:  s.signer.SignState(dataHash, root),
		Timestamp:  at,
	}
}

func (s *VerifierSuite) TestQuick_ValidProof() {
	outcome, err := s.service.Quick(s.buildProof())
	s.Require().NoError(err)

	s.True(outcome.Result)
	s.InDelta(1.0, outcome.Confidence, 1e-9)
	s.Equal(string(StrategyQuick), outcome.Strategy)
	s.Equal("auditor@certus", outcome.VerifiedBy)
	s.Equal(map[string]bool{
		CheckStateChanged:     true,
		CheckAfterStateEmpty:  true,
		CheckMerkleConsistent: true,
	}, outcome.Checks)
}

func (s *VerifierSuite) TestFull_ValidProof() {
	outcome, err := s.service.Full(s.buildProof())
	s.Require().NoError(err)

	s.True(outcome.Result)
	s.InDelta(1.0, outcome.Confidence, 1e-9)
	s.Equal(map[string]bool{
		CheckHashChainValid:   true,
		CheckMerkleConsistent: true,
		CheckSignaturesValid:  true,
		CheckTimestampValid:   true,
	}, outcome.Checks)
}

// TestFull_NonEmptyAfterState covers a proof whose after-state still carries
// data. The full signals all pass (the hashes differ, the tree and signatures
// hold, time moved forward); only the quick strategy, which demands an empty
// after-state, rejects it.
func (s *VerifierSuite) TestFull_NonEmptyAfterState() {
	proof := s.buildProof()
	remaining := []erasure.InventoryItem{
		{DataType: "audit_copy", RecordCount: 1, Locations: []string{"archive"}, SizeBytes: 64},
	}
	proof.After = s.captureState(remaining, time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC))

	full, err := s.service.Full(proof)
	s.Require().NoError(err)
	s.True(full.Result)
	s.InDelta(1.0, full.Confidence, 1e-9)

	quick, err := s.service.Quick(proof)
	s.Require().NoError(err)
	s.False(quick.Result)
	s.InDelta(0.6, quick.Confidence, 1e-9)
	s.False(quick.Checks[CheckAfterStateEmpty])
}

func (s *VerifierSuite) TestQuick_UnchangedNonEmptyStateFails() {
	proof := s.buildProof()
	proof.After = proof.Before // data still present

	outcome, err := s.service.Quick(proof)
	s.Require().NoError(err, "a failing verification is an outcome, not an error")
	s.False(outcome.Result)
	s.InDelta(0.2, outcome.Confidence, 1e-9, "only the merkle check passes")
}

func (s *VerifierSuite) TestStrategies_DivergeOnTamperedTree() {
	proof := s.buildProof()
	proof.Tree.Root = canonical.HashBytes([]byte("forged"))

	quick, err := s.service.Quick(proof)
	s.Require().NoError(err)
	s.True(quick.Result, "quick tolerates a single failing structural check")
	s.InDelta(0.8, quick.Confidence, 1e-9)

	full, err := s.service.Full(proof)
	s.Require().NoError(err)
	s.False(full.Result, "full requires every check")
	s.InDelta(0.75, full.Confidence, 1e-9)
}

func (s *VerifierSuite) TestFull_BrokenSignature() {
	proof := s.buildProof()
	proof.Before.Signature = s.signer.SignState("other", proof.Before.MerkleRoot)

	outcome, err := s.service.Full(proof)
	s.Require().NoError(err)
	s.False(outcome.Result)
	s.InDelta(0.75, outcome.Confidence, 1e-9)
	s.False(outcome.Checks[CheckSignaturesValid])
}

func (s *VerifierSuite) TestFull_TimestampOrdering() {
	proof := s.buildProof()
	proof.After.Timestamp = proof.Before.Timestamp.Add(-time.Second)
	// Re-sign so only the ordering is wrong.
	proof.After.Signature = s.signer.SignState(proof.After.DataHash, proof.After.MerkleRoot)

	outcome, err := s.service.Full(proof)
	s.Require().NoError(err)
	s.False(outcome.Result)
	s.InDelta(0.75, outcome.Confidence, 1e-9)
	s.False(outcome.Checks[CheckTimestampValid], "after-state must postdate before-state")
	s.True(outcome.Checks[CheckSignaturesValid], "ordering failures are reported on their own signal")
}

func (s *VerifierSuite) TestEmptyInventoryProofVerifies() {
	empty := []erasure.InventoryItem{}
	proof := s.buildProof()
	proof.Before = s.captureState(empty, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	proof.After = s.captureState(empty, time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC))
	proof.Evidence = nil
	proof.Tree = erasure.BuildMerkleTree(nil)

	outcome, err := s.service.Full(proof)
	s.Require().NoError(err)
	s.True(outcome.Result, "erasing an already-empty inventory is valid")
}

func (s *VerifierSuite) TestVerify_InvalidInput() {
	_, err := s.service.Verify(nil, StrategyQuick)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.service.Verify(s.buildProof(), Strategy("DEEP"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
