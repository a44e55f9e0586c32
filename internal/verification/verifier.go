// Package verification independently checks erasure proofs. It works from
// stored proof state only: verifying never touches the data stores the proof
// is about, and never mutates anything but the proof's verification record.
package verification

import (
	"time"

	"certus/internal/erasure"
	dErrors "certus/pkg/domain-errors"
	"certus/pkg/platform/canonical"
)

// Strategy selects how much of the proof is checked.
type Strategy string

const (
	// StrategyQuick runs the structural checks only. Used inline after
	// proof generation.
	StrategyQuick Strategy = "QUICK"
	// StrategyFull runs the four-signal re-verification: hash chain,
	// Merkle tree, state signatures, and timestamp ordering. Used by
	// auditors and the re-verification worker.
	StrategyFull Strategy = "FULL"
)

// Check names, shared between strategies and test assertions. Quick reports
// {state_changed, after_state_empty, merkle_consistent}; full reports
// {hash_chain_valid, merkle_consistent, signatures_valid, timestamp_valid}.
// Failing outcomes carry these names so a confidence shortfall can be traced
// to its component checks.
const (
	CheckStateChanged     = "state_changed"
	CheckAfterStateEmpty  = "after_state_empty"
	CheckMerkleConsistent = "merkle_consistent"
	CheckHashChainValid   = "hash_chain_valid"
	CheckSignaturesValid  = "signatures_valid"
	CheckTimestampValid   = "timestamp_valid"
)

const (
	quickThreshold = 0.8
	fullThreshold  = 0.95
)

// emptyInventoryHash is the canonical hash every valid after-state must
// carry: the hash of an empty inventory.
func emptyInventoryHash() string {
	hash, err := canonical.SHA256Hex([]erasure.InventoryItem{})
	if err != nil {
		// Canonical encoding of a fixed empty slice cannot fail.
		panic(err)
	}
	return hash
}

// Service verifies erasure proofs.
type Service struct {
	signatures erasure.SignatureVerifier
	identity   string
	metrics    *Metrics
	now        func() time.Time
	emptyHash  string
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs a verifier. identity names the verifying party in
// outcome records and attestations.
func NewService(signatures erasure.SignatureVerifier, identity string, opts ...ServiceOption) *Service {
	s := &Service{
		signatures: signatures,
		identity:   identity,
		now:        time.Now,
		emptyHash:  emptyInventoryHash(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quick runs the structural strategy: did the state change, is the after
// state empty, is the Merkle tree internally consistent.
func (s *Service) Quick(proof *erasure.Proof) (erasure.VerificationOutcome, error) {
	return s.Verify(proof, StrategyQuick)
}

// Full runs the four-signal re-verification algorithm: hash chain, Merkle
// tree, state signatures, and timestamp ordering, equally weighted.
func (s *Service) Full(proof *erasure.Proof) (erasure.VerificationOutcome, error) {
	return s.Verify(proof, StrategyFull)
}

// Verify evaluates the proof under the given strategy. A failing outcome is
// a recorded result, not an error; errors mean the proof could not be
// evaluated at all.
func (s *Service) Verify(proof *erasure.Proof, strategy Strategy) (erasure.VerificationOutcome, error) {
	if proof == nil {
		return erasure.VerificationOutcome{}, dErrors.New(dErrors.CodeInvalidInput, "proof required")
	}

	var checks map[string]bool
	var confidence, threshold float64
	switch strategy {
	case StrategyQuick:
		checks = map[string]bool{
			CheckStateChanged:     s.stateChanged(proof),
			CheckAfterStateEmpty:  proof.After.DataHash == s.emptyHash,
			CheckMerkleConsistent: s.merkleConsistent(proof),
		}
		confidence = weight(checks[CheckStateChanged], 0.4) +
			weight(checks[CheckAfterStateEmpty], 0.4) +
			weight(checks[CheckMerkleConsistent], 0.2)
		threshold = quickThreshold
	case StrategyFull:
		checks = map[string]bool{
			CheckHashChainValid:   s.stateChanged(proof),
			CheckMerkleConsistent: s.merkleConsistent(proof),
			CheckSignaturesValid:  s.signaturesValid(proof),
			CheckTimestampValid:   proof.After.Timestamp.After(proof.Before.Timestamp),
		}
		confidence = weight(checks[CheckHashChainValid], 0.25) +
			weight(checks[CheckMerkleConsistent], 0.25) +
			weight(checks[CheckSignaturesValid], 0.25) +
			weight(checks[CheckTimestampValid], 0.25)
		threshold = fullThreshold
	default:
		return erasure.VerificationOutcome{}, dErrors.New(dErrors.CodeInvalidInput,
			"unknown verification strategy: "+string(strategy))
	}

	outcome := erasure.VerificationOutcome{
		Result:     confidence >= threshold,
		Confidence: confidence,
		Strategy:   string(strategy),
		Checks:     checks,
		VerifiedBy: s.identity,
		Timestamp:  s.now().UTC(),
	}
	if s.metrics != nil {
		s.metrics.Observe(string(strategy), outcome.Result, confidence)
	}
	return outcome, nil
}

// stateChanged passes when the before and after hashes differ, or when there
// was nothing to destroy in the first place (erasing an already-empty
// inventory is a valid no-op erasure).
func (s *Service) stateChanged(proof *erasure.Proof) bool {
	if proof.Before.DataHash == s.emptyHash {
		return true
	}
	return proof.Before.DataHash != proof.After.DataHash
}

// merkleConsistent rebuilds the evidence tree root from the stored leaves
// and checks one leaf exists per evidence entry.
func (s *Service) merkleConsistent(proof *erasure.Proof) bool {
	if proof.Tree == nil {
		return false
	}
	if len(proof.Tree.Leaves) != len(proof.Evidence) {
		return false
	}
	return proof.Tree.Consistent()
}

// signaturesValid checks the signatures on both states.
func (s *Service) signaturesValid(proof *erasure.Proof) bool {
	return s.signatures.VerifyState(proof.Before) &&
		s.signatures.VerifyState(proof.After)
}

func weight(passed bool, w float64) float64 {
	if passed {
		return w
	}
	return 0
}
