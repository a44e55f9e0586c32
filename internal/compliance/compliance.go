// Package compliance assembles the audit chain, legal hold registry, rights
// engine, erasure engine, and verification service into one wired core.
package compliance

import (
	"context"
	"log/slog"

	"certus/internal/auditchain"
	"certus/internal/erasure"
	"certus/internal/legalhold"
	"certus/internal/platform/tracer"
	"certus/internal/rights"
	"certus/internal/verification"
	id "certus/pkg/domain"
)

// Config carries the collaborators for a compliance core. Nil fields fall
// back to in-memory implementations, which is what tests and local runs use;
// production wiring in cmd/certusd supplies the durable ones.
type Config struct {
	Logger *slog.Logger

	AuditStore auditchain.Store
	Mirror     auditchain.Mirror

	HoldStore    legalhold.Store
	SubjectStore rights.SubjectStore
	RequestStore rights.RequestStore
	Lineage      rights.Lineage

	ErasureStore erasure.RequestStore
	Vault        erasure.Vault
	Locator      erasure.Locator
	Executor     erasure.Executor

	SigningSeed      []byte
	VerifierIdentity string

	AuditMetrics        *auditchain.Metrics
	RightsMetrics       *rights.Metrics
	ErasureMetrics      *erasure.Metrics
	VerificationMetrics *verification.Metrics
	Tracer              tracer.Tracer
}

// Core is the assembled compliance subsystem.
type Core struct {
	Chain    *auditchain.Chain
	Holds    *legalhold.Registry
	Rights   *rights.Engine
	Erasure  *erasure.Engine
	Verifier *verification.Service
	Attestor *verification.Attestor
	Lineage  rights.Lineage
	Vault    erasure.Vault
	Signer   *erasure.Signer
}

// New wires a compliance core from the config.
func New(cfg Config) (*Core, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.AuditStore == nil {
		cfg.AuditStore = auditchain.NewInMemoryStore()
	}
	if cfg.HoldStore == nil {
		cfg.HoldStore = legalhold.NewInMemoryStore()
	}
	if cfg.SubjectStore == nil {
		cfg.SubjectStore = rights.NewInMemorySubjectStore()
	}
	if cfg.RequestStore == nil {
		cfg.RequestStore = rights.NewInMemoryRequestStore()
	}
	if cfg.Lineage == nil {
		cfg.Lineage = rights.NewInMemoryLineage()
	}
	if cfg.ErasureStore == nil {
		cfg.ErasureStore = erasure.NewInMemoryStore()
	}
	if cfg.Vault == nil {
		cfg.Vault = erasure.NewInMemoryVault()
	}
	if cfg.Executor == nil {
		cfg.Executor = erasure.NewShredExecutor()
	}
	if cfg.Locator == nil {
		// Without a wired data catalog every subject has an empty inventory.
		cfg.Locator = erasure.LocatorFunc(func(context.Context, id.TenantID, id.SubjectID, erasure.Scope) ([]erasure.InventoryItem, error) {
			return nil, nil
		})
	}
	if cfg.VerifierIdentity == "" {
		cfg.VerifierIdentity = "certus-verifier"
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracer.Noop()
	}

	signer, err := erasure.NewSigner(cfg.SigningSeed)
	if err != nil {
		return nil, err
	}

	chainOpts := []auditchain.Option{}
	if cfg.Mirror != nil {
		chainOpts = append(chainOpts, auditchain.WithMirror(cfg.Mirror))
	}
	if cfg.AuditMetrics != nil {
		chainOpts = append(chainOpts, auditchain.WithMetrics(cfg.AuditMetrics))
	}
	chain := auditchain.New(cfg.AuditStore, cfg.Logger, chainOpts...)

	holds := legalhold.NewRegistry(cfg.HoldStore, chain, cfg.Logger,
		legalhold.WithLineageRecorder(cfg.Lineage))

	verifierOpts := []verification.ServiceOption{}
	if cfg.VerificationMetrics != nil {
		verifierOpts = append(verifierOpts, verification.WithMetrics(cfg.VerificationMetrics))
	}
	verifier := verification.NewService(signer, cfg.VerifierIdentity, verifierOpts...)

	erasureOpts := []erasure.EngineOption{erasure.WithTracer(cfg.Tracer)}
	if cfg.ErasureMetrics != nil {
		erasureOpts = append(erasureOpts, erasure.WithMetrics(cfg.ErasureMetrics))
	}
	erasureEngine := erasure.NewEngine(
		cfg.ErasureStore, cfg.Locator, cfg.Executor, holds,
		cfg.Vault, signer, verifier, chain, cfg.Logger, erasureOpts...)

	rightsOpts := []rights.EngineOption{}
	if cfg.RightsMetrics != nil {
		rightsOpts = append(rightsOpts, rights.WithMetrics(cfg.RightsMetrics))
	}
	rightsEngine := rights.NewEngine(
		cfg.SubjectStore, cfg.RequestStore, cfg.Lineage, holds,
		erasureEngine, chain, cfg.Logger, rightsOpts...)

	return &Core{
		Chain:    chain,
		Holds:    holds,
		Rights:   rightsEngine,
		Erasure:  erasureEngine,
		Verifier: verifier,
		Attestor: verification.NewAttestor(signer, cfg.VerifierIdentity),
		Lineage:  cfg.Lineage,
		Vault:    cfg.Vault,
		Signer:   signer,
	}, nil
}
