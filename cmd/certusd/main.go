// certusd is the compliance daemon: it assembles the audit chain, legal hold
// registry, rights engine, erasure engine, and verification service, runs the
// proof re-verification worker, and serves health and metrics endpoints.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certus/internal/auditchain"
	"certus/internal/compliance"
	"certus/internal/erasure"
	"certus/internal/legalhold"
	"certus/internal/platform/config"
	"certus/internal/platform/database"
	"certus/internal/platform/kafka/producer"
	"certus/internal/platform/logger"
	platformredis "certus/internal/platform/redis"
	"certus/internal/platform/tracer"
	"certus/internal/rights"
	"certus/internal/verification"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "certusd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var seed []byte
	if cfg.SigningKeySeed != "" {
		var err error
		seed, err = hex.DecodeString(cfg.SigningKeySeed)
		if err != nil {
			return fmt.Errorf("decode signing key seed: %w", err)
		}
	}

	coreCfg := compliance.Config{
		Logger:              log,
		SigningSeed:         seed,
		VerifierIdentity:    cfg.VerifierIdentity,
		AuditMetrics:        auditchain.NewMetrics(),
		RightsMetrics:       rights.NewMetrics(),
		ErasureMetrics:      erasure.NewMetrics(),
		VerificationMetrics: verification.NewMetrics(),
		Tracer:              tracer.NewOTel(),
	}

	pool, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
		coreCfg.AuditStore = auditchain.NewPostgres(pool.DB())
		coreCfg.HoldStore = legalhold.NewPostgres(pool.DB())
		log.Info("durable stores enabled", "backend", "postgres")
	} else {
		log.Warn("no database configured; audit chain and holds are in-memory")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
		coreCfg.Vault = erasure.NewRedisVault(redisClient.Client)
		log.Info("proof vault enabled", "backend", "redis")
	} else {
		log.Warn("no redis configured; proof vault is in-memory")
	}

	var prod *producer.Producer
	if cfg.Kafka.Brokers != "" {
		prod, err = producer.New(cfg.Kafka, log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer prod.Close() //nolint:errcheck // shutdown path
		coreCfg.Mirror = auditchain.NewKafkaMirror(prod, cfg.Kafka.Topic, log)
		log.Info("audit mirror enabled", "topic", cfg.Kafka.Topic)
	}

	core, err := compliance.New(coreCfg)
	if err != nil {
		return fmt.Errorf("assemble compliance core: %w", err)
	}

	reverifier := verification.NewReverifier(core.Vault,
		verification.NewService(core.Signer, cfg.VerifierIdentity), core.Chain, log, cfg.ReverifyInterval)
	go func() {
		if err := reverifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("re-verification worker stopped", "error", err)
		}
	}()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Health(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if prod != nil && !prod.Healthy(r.Context()) {
			http.Error(w, "kafka unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("certusd listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
