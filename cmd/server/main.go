// Package main is the entry point for the parlay engine API server.  It
// wires the ledger, pool, lock facility, registry, oracles, and engine, and
// starts the HTTP server alongside the WebSocket hub, the audit journal, and
// the background settlement sweeper.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/parlaycity/core/internal/api"
	"github.com/parlaycity/core/internal/config"
	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/engine"
	"github.com/parlaycity/core/internal/lockup"
	"github.com/parlaycity/core/internal/metrics"
	"github.com/parlaycity/core/internal/oracle"
	"github.com/parlaycity/core/internal/pool"
	"github.com/parlaycity/core/internal/registry"
	"github.com/parlaycity/core/internal/repository"
	"github.com/parlaycity/core/internal/scheduler"
	"github.com/parlaycity/core/internal/token"
	"github.com/parlaycity/core/internal/ws"
)

func main() {
	// ── 1. Config & logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting parlay engine server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Audit journal (optional) ───────────────────────────────────────────
	var journal *repository.JournalRepository
	var db *sqlx.DB
	if cfg.DB.DSN != "" {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DB.DSN)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

		if err = runMigrations(db, "migrations"); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		journal = repository.NewJournalRepository(db, logger)
		journal.Start(ctx)
		logger.Info("audit journal connected")
	} else {
		logger.Warn("DATABASE_DSN unset — audit journal disabled")
	}

	// ── 4. Operator & safety accounts ─────────────────────────────────────────
	operator := accountFromEnv(logger, "OPERATOR_ACCOUNT_ID", "operator")
	safety := accountFromEnv(logger, "SAFETY_ACCOUNT_ID", "safety buffer")

	// ── 5. Ledger & event fan-out ─────────────────────────────────────────────
	// The observers (hub, metrics, journal) are appended once wiring is
	// complete, before any traffic arrives.
	ledger := token.NewLedger()
	sink := &domain.MultiSink{}
	if journal != nil {
		ledger.SetJournal(journal)
	}

	// ── 6. Core components (order matters for injection) ──────────────────────
	p, err := pool.New(ledger, operator, pool.Params{
		MaxPayoutFractionBps: cfg.Pool.MaxPayoutFractionBps,
		UtilizationCapBps:    cfg.Pool.UtilizationCapBps,
		YieldBufferBps:       cfg.Pool.YieldBufferBps,
	}, sink)
	if err != nil {
		logger.Error("pool init failed", "err", err)
		os.Exit(1)
	}

	facility, err := lockup.New(ledger, operator, lockup.Params{
		MinimumLock:    sdkmath.NewInt(cfg.Lock.MinimumLock),
		BasePenaltyBps: cfg.Lock.BasePenaltyBps,
	}, sink)
	if err != nil {
		logger.Error("lock facility init failed", "err", err)
		os.Exit(1)
	}
	facility.SetPool(p)

	reg := registry.New(operator)

	adminOracle := oracle.NewAdminOracle(operator, sink)
	slowOracle, err := oracle.NewOptimisticOracle(ledger, operator,
		sdkmath.NewInt(cfg.Oracle.BondAmount), cfg.Oracle.LivenessWindow, sink)
	if err != nil {
		logger.Error("optimistic oracle init failed", "err", err)
		os.Exit(1)
	}
	router := oracle.NewRouter(adminOracle, slowOracle)

	eng, err := engine.New(ledger, p, reg, router, operator, engine.Params{
		BaseFeeBps:            cfg.Engine.BaseFeeBps,
		PerLegFeeBps:          cfg.Engine.PerLegFeeBps,
		BaseCashoutPenaltyBps: cfg.Engine.BaseCashoutPenaltyBps,
		FeeToLockersBps:       cfg.Engine.FeeToLockersBps,
		FeeToSafetyBps:        cfg.Engine.FeeToSafetyBps,
		MinStake:              sdkmath.NewInt(cfg.Engine.MinStake),
		BootstrapEndsAt:       cfg.Engine.BootstrapEndsAt,
	}, sink)
	if err != nil {
		logger.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	// Wire the pool's gated surfaces.
	if err := p.SetEngine(operator, eng.Account()); err != nil {
		logger.Error("wire engine", "err", err)
		os.Exit(1)
	}
	if err := p.SetLockFacility(operator, facility); err != nil {
		logger.Error("wire lock facility", "err", err)
		os.Exit(1)
	}
	if err := p.SetSafetyBuffer(operator, safety); err != nil {
		logger.Error("wire safety buffer", "err", err)
		os.Exit(1)
	}
	if cfg.Pool.YieldAdapterEnabled {
		if err := p.SetYieldAdapter(operator, pool.NewSimAdapter(ledger, p.Account())); err != nil {
			logger.Error("wire yield adapter", "err", err)
			os.Exit(1)
		}
		logger.Info("sim yield adapter enabled", "buffer_bps", cfg.Pool.YieldBufferBps)
	}

	// ── 7. Observers: WS hub, metrics, journal ────────────────────────────────
	var allowedOrigins []string
	if cfg.Server.WSAllowedOrigins != "" {
		for _, o := range strings.Split(cfg.Server.WSAllowedOrigins, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(allowedOrigins)
	go hub.Run()
	logger.Info("websocket hub started")

	recorder := metrics.NewRecorder(p, facility)
	*sink = append(*sink, hub, recorder)
	if journal != nil {
		*sink = append(*sink, journal)
	}

	// ── 8. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(eng, p, hub,
		cfg.Scheduler.SettleInterval, cfg.Scheduler.BroadcastInterval, logger)
	sched.Start(ctx)

	// ── 9. HTTP Router ────────────────────────────────────────────────────────
	ginRouter := api.SetupRouter(api.RouterDeps{
		Engine:   eng,
		Pool:     p,
		Facility: facility,
		Registry: reg,
		Admin:    adminOracle,
		Slow:     slowOracle,
		Hub:      hub,
		Cfg:      cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 10. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 11. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	if db != nil {
		db.Close()
	}
	logger.Info("server stopped cleanly")
}

// accountFromEnv reads a uuid account from the environment, generating an
// ephemeral one (logged) when unset.
func accountFromEnv(logger *slog.Logger, key, role string) uuid.UUID {
	if v := os.Getenv(key); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			logger.Error("invalid account id", "env", key, "err", err)
			os.Exit(1)
		}
		return id
	}
	id := uuid.New()
	logger.Warn("generated ephemeral account", "role", role, "env", key, "id", id)
	return id
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
