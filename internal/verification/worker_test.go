package verification

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certus/internal/auditchain"
	"certus/internal/erasure"
	id "certus/pkg/domain"
	"certus/pkg/platform/canonical"
)

type ReverifierSuite struct {
	suite.Suite
	signer     *erasure.Signer
	service    *Service
	vault      *erasure.InMemoryVault
	auditStore *auditchain.InMemoryStore
	chain      *auditchain.Chain
	worker     *Reverifier
}

func TestReverifierSuite(t *testing.T) {
	suite.Run(t, new(ReverifierSuite))
}

func (s *ReverifierSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	s.signer, err = erasure.NewSigner(nil)
	s.Require().NoError(err)
	s.service = NewService(s.signer, "reverifier@certus")
	s.vault = erasure.NewInMemoryVault()
	s.auditStore = auditchain.NewInMemoryStore()
	s.chain = auditchain.New(s.auditStore, log)
	s.worker = NewReverifier(s.vault, s.service, s.chain, log, time.Minute)
}

func (s *ReverifierSuite) storedProof() *erasure.Proof {
	inventory := []erasure.InventoryItem{
		{DataType: "profile", RecordCount: 1, Locations: []string{"users_db"}},
	}
	beforeHash, err := canonical.SHA256Hex(inventory)
	s.Require().NoError(err)
	itemLeaf, err := canonical.SHA256Hex(inventory[0])
	s.Require().NoError(err)
	afterHash, err := canonical.SHA256Hex([]erasure.InventoryItem{})
	s.Require().NoError(err)

	evidence := []erasure.Evidence{{
		Location:         "users_db",
		DataType:         "profile",
		Operation:        erasure.OperationEncryptDelete,
		Passes:           1,
		VerificationHash: canonical.HashBytes([]byte("sealed")),
		ErasedAt:         time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	}}
	leaves, err := erasure.EvidenceLeaves(evidence)
	s.Require().NoError(err)

	beforeRoot := erasure.MerkleRoot([]string{itemLeaf})
	afterRoot := erasure.MerkleRoot(nil)
	proof := &erasure.Proof{
		ID:        id.NewProofID(),
		TenantID:  id.NewTenantID(),
		ErasureID: id.NewErasureID(),
		SubjectID: id.NewSubjectID(),
		Before: erasure.CryptoState{
			DataHash:   beforeHash,
			MerkleRoot: beforeRoot,
			Signature:  s.signer.SignState(beforeHash, beforeRoot),
			Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		After: erasure.CryptoState{
			DataHash:   afterHash,
			MerkleRoot: afterRoot,
			Signature:  s.signer.SignState(afterHash, afterRoot),
			Timestamp:  time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
		},
		Evidence:    evidence,
		Tree:        erasure.BuildMerkleTree(leaves),
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
	}
	s.Require().NoError(s.vault.Store(context.Background(), proof))
	return proof
}

func (s *ReverifierSuite) TestSweep_VerifiesPendingProofs() {
	proof := s.storedProof()

	s.worker.Sweep(context.Background())

	stored, err := s.vault.Get(context.Background(), proof.TenantID, proof.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.Verification)
	s.True(stored.Verification.Result)
	s.Equal(string(StrategyFull), stored.Verification.Strategy)

	events, err := s.chain.List(context.Background(), proof.TenantID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(auditchain.KindProofVerified, events[0].Kind)

	unverified, err := s.vault.ListUnverified(context.Background())
	s.Require().NoError(err)
	s.Empty(unverified)
}

func (s *ReverifierSuite) TestSweep_LeavesBrokenProofsUnverified() {
	proof := s.storedProof()
	// Corrupt the stored verification target by storing a second proof with
	// a forged tree; the first remains valid.
	broken := *proof
	broken.ID = id.NewProofID()
	tree := *proof.Tree
	tree.Root = canonical.HashBytes([]byte("forged"))
	broken.Tree = &tree
	s.Require().NoError(s.vault.Store(context.Background(), &broken))

	s.worker.Sweep(context.Background())

	stored, err := s.vault.Get(context.Background(), broken.TenantID, broken.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.Verification)
	s.False(stored.Verification.Result, "a tampered tree must keep failing full verification")

	unverified, err := s.vault.ListUnverified(context.Background())
	s.Require().NoError(err)
	s.Len(unverified, 1)
}

func (s *ReverifierSuite) TestRun_StopsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		s.Fail("worker did not stop on cancel")
	}
}
