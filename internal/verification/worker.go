package verification

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"certus/internal/auditchain"
	"certus/internal/erasure"
)

const defaultParallelism = 4

// Reverifier periodically sweeps the vault for proofs without a passing
// verification and re-runs the full strategy against them. Transient quick
// failures right after generation resolve here.
type Reverifier struct {
	vault       erasure.Vault
	service     *Service
	audit       erasure.AuditLog
	logger      *slog.Logger
	interval    time.Duration
	parallelism int
}

// NewReverifier constructs the re-verification worker.
func NewReverifier(vault erasure.Vault, service *Service, audit erasure.AuditLog, logger *slog.Logger, interval time.Duration) *Reverifier {
	return &Reverifier{
		vault:       vault,
		service:     service,
		audit:       audit,
		logger:      logger,
		interval:    interval,
		parallelism: defaultParallelism,
	}
}

// Run sweeps on the configured interval until the context ends.
func (r *Reverifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep re-verifies every unverified proof once, bounded-parallel. Exported
// so operators can trigger it outside the schedule.
func (r *Reverifier) Sweep(ctx context.Context) {
	proofs, err := r.vault.ListUnverified(ctx)
	if err != nil {
		r.logger.Error("list unverified proofs", "error", err)
		return
	}
	if len(proofs) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, proof := range proofs {
		g.Go(func() error {
			r.reverify(ctx, proof)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
	r.logger.Info("re-verification sweep finished", "proofs", len(proofs))
}

func (r *Reverifier) reverify(ctx context.Context, proof *erasure.Proof) {
	outcome, err := r.service.Full(proof)
	if err != nil {
		r.logger.Error("re-verify proof", "proof_id", proof.ID, "error", err)
		return
	}
	if err := r.vault.SetVerification(ctx, proof.TenantID, proof.ID, outcome); err != nil {
		r.logger.Error("record re-verification", "proof_id", proof.ID, "error", err)
		return
	}
	if outcome.Result && r.audit != nil {
		if _, err := r.audit.Append(ctx, proof.TenantID, auditchain.Entry{
			Kind:        auditchain.KindProofVerified,
			Actor:       outcome.VerifiedBy,
			Subject:     proof.SubjectID.String(),
			Correlation: proof.ID.String(),
			Decision:    "true",
			Reason:      "re-verification sweep",
		}); err != nil {
			r.logger.Error("audit re-verification", "proof_id", proof.ID, "error", err)
		}
	}
	r.logger.Debug("proof re-verified",
		"proof_id", proof.ID,
		"result", outcome.Result,
		"confidence", outcome.Confidence,
	)
}
