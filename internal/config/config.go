// Package config provides application configuration loaded from environment
// variables.  Use the package-level Get() function to obtain the singleton
// Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// bps is the basis-point scale used by every rate parameter below.
const bps = 10_000

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             string        // e.g. "8080"
	Env              string        // "development" | "production"
	ReadTimeout      time.Duration // default 10s
	WriteTimeout     time.Duration // default 10s
	WSAllowedOrigins string        // comma-separated origins; "" = allow all
}

// DBConfig holds PostgreSQL connection settings for the audit journal.
// An empty DSN disables the journal entirely.
type DBConfig struct {
	DSN             string
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// EngineConfig holds ticket quoting and settlement settings.
type EngineConfig struct {
	BaseFeeBps            int64     // default 100
	PerLegFeeBps          int64     // default 50
	BaseCashoutPenaltyBps int64     // default 300
	FeeToLockersBps       int64     // default 9000
	FeeToSafetyBps        int64     // default 500
	MinStake              int64     // base units; default 1_000_000 (1 unit)
	BootstrapEndsAt       time.Time // buys before this settle on the fast path
}

// PoolConfig holds liquidity pool caps.
type PoolConfig struct {
	MaxPayoutFractionBps int64 // default 500
	UtilizationCapBps    int64 // default 8000
	YieldBufferBps       int64 // default 2500
	YieldAdapterEnabled  bool  // default false
}

// LockConfig holds lock facility settings.
type LockConfig struct {
	MinimumLock    int64 // base units; default 1_000_000
	BasePenaltyBps int64 // default 1000
}

// OracleConfig holds optimistic-oracle globals.  Open proposals always keep
// the values snapshotted at propose time.
type OracleConfig struct {
	BondAmount     int64         // base units; default 100_000_000 (100 units)
	LivenessWindow time.Duration // default 2h
}

// SchedulerConfig holds background loop cadences.
type SchedulerConfig struct {
	SettleInterval    time.Duration // default 5s
	BroadcastInterval time.Duration // default 1s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Engine    EngineConfig
	Pool      PoolConfig
	Lock      LockConfig
	Oracle    OracleConfig
	Scheduler SchedulerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all configuration values are present and coherent.
// Returns every validation error encountered, joined.
func (c *Config) Validate() error {
	var errs []error

	bpsParams := map[string]int64{
		"BASE_FEE_BPS":              c.Engine.BaseFeeBps,
		"PER_LEG_FEE_BPS":           c.Engine.PerLegFeeBps,
		"BASE_CASHOUT_PENALTY_BPS":  c.Engine.BaseCashoutPenaltyBps,
		"FEE_TO_LOCKERS_BPS":        c.Engine.FeeToLockersBps,
		"FEE_TO_SAFETY_BPS":         c.Engine.FeeToSafetyBps,
		"MAX_PAYOUT_FRACTION_BPS":   c.Pool.MaxPayoutFractionBps,
		"UTILIZATION_CAP_BPS":       c.Pool.UtilizationCapBps,
		"POOL_YIELD_BUFFER_BPS":     c.Pool.YieldBufferBps,
		"LOCK_EARLY_PENALTY_BPS":    c.Lock.BasePenaltyBps,
	}
	for name, v := range bpsParams {
		if v < 0 || v > bps {
			errs = append(errs, fmt.Errorf("%s must be in [0, %d], got %d", name, bps, v))
		}
	}

	if c.Engine.FeeToLockersBps+c.Engine.FeeToSafetyBps > bps {
		errs = append(errs, fmt.Errorf(
			"fee split exceeds 100%%: lockers=%d safety=%d BPS",
			c.Engine.FeeToLockersBps, c.Engine.FeeToSafetyBps,
		))
	}
	if c.Engine.MinStake <= 0 {
		errs = append(errs, errors.New("MIN_STAKE must be positive"))
	}
	if c.Lock.MinimumLock <= 0 {
		errs = append(errs, errors.New("LOCK_MINIMUM must be positive"))
	}
	if c.Oracle.BondAmount <= 0 {
		errs = append(errs, errors.New("ORACLE_BOND must be positive"))
	}
	if c.Oracle.LivenessWindow <= 0 {
		errs = append(errs, errors.New("ORACLE_LIVENESS must be positive"))
	}
	if c.IsProd() && c.Engine.BootstrapEndsAt.IsZero() {
		errs = append(errs, errors.New("BOOTSTRAP_ENDS_AT must be set in production"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment
// variables.  Panics if loading fails — call this early in main() to catch
// misconfigurations at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration.  Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:             getEnv("SERVER_PORT", "8080"),
		Env:              getEnv("ENVIRONMENT", "development"),
		ReadTimeout:      getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:     getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		WSAllowedOrigins: getEnv("WS_ALLOWED_ORIGINS", ""),
	}

	// ── Database (audit journal; optional) ────────────────────────────────────
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}
	cfg.DB = DBConfig{
		DSN:             os.Getenv("DATABASE_DSN"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	cfg.Engine = EngineConfig{}
	if cfg.Engine.BaseFeeBps, err = getInt64("BASE_FEE_BPS", 100); err != nil {
		return nil, fmt.Errorf("BASE_FEE_BPS: %w", err)
	}
	if cfg.Engine.PerLegFeeBps, err = getInt64("PER_LEG_FEE_BPS", 50); err != nil {
		return nil, fmt.Errorf("PER_LEG_FEE_BPS: %w", err)
	}
	if cfg.Engine.BaseCashoutPenaltyBps, err = getInt64("BASE_CASHOUT_PENALTY_BPS", 300); err != nil {
		return nil, fmt.Errorf("BASE_CASHOUT_PENALTY_BPS: %w", err)
	}
	if cfg.Engine.FeeToLockersBps, err = getInt64("FEE_TO_LOCKERS_BPS", 9_000); err != nil {
		return nil, fmt.Errorf("FEE_TO_LOCKERS_BPS: %w", err)
	}
	if cfg.Engine.FeeToSafetyBps, err = getInt64("FEE_TO_SAFETY_BPS", 500); err != nil {
		return nil, fmt.Errorf("FEE_TO_SAFETY_BPS: %w", err)
	}
	if cfg.Engine.MinStake, err = getInt64("MIN_STAKE", 1_000_000); err != nil {
		return nil, fmt.Errorf("MIN_STAKE: %w", err)
	}
	bootstrapUnix, err := getInt64("BOOTSTRAP_ENDS_AT", 0)
	if err != nil {
		return nil, fmt.Errorf("BOOTSTRAP_ENDS_AT: %w", err)
	}
	if bootstrapUnix > 0 {
		cfg.Engine.BootstrapEndsAt = time.Unix(bootstrapUnix, 0).UTC()
	}

	// ── Pool ──────────────────────────────────────────────────────────────────
	cfg.Pool = PoolConfig{}
	if cfg.Pool.MaxPayoutFractionBps, err = getInt64("MAX_PAYOUT_FRACTION_BPS", 500); err != nil {
		return nil, fmt.Errorf("MAX_PAYOUT_FRACTION_BPS: %w", err)
	}
	if cfg.Pool.UtilizationCapBps, err = getInt64("UTILIZATION_CAP_BPS", 8_000); err != nil {
		return nil, fmt.Errorf("UTILIZATION_CAP_BPS: %w", err)
	}
	if cfg.Pool.YieldBufferBps, err = getInt64("POOL_YIELD_BUFFER_BPS", 2_500); err != nil {
		return nil, fmt.Errorf("POOL_YIELD_BUFFER_BPS: %w", err)
	}
	cfg.Pool.YieldAdapterEnabled = getEnv("POOL_YIELD_ADAPTER", "") == "sim"

	// ── Lock facility ─────────────────────────────────────────────────────────
	cfg.Lock = LockConfig{}
	if cfg.Lock.MinimumLock, err = getInt64("LOCK_MINIMUM", 1_000_000); err != nil {
		return nil, fmt.Errorf("LOCK_MINIMUM: %w", err)
	}
	if cfg.Lock.BasePenaltyBps, err = getInt64("LOCK_EARLY_PENALTY_BPS", 1_000); err != nil {
		return nil, fmt.Errorf("LOCK_EARLY_PENALTY_BPS: %w", err)
	}

	// ── Oracle ────────────────────────────────────────────────────────────────
	cfg.Oracle = OracleConfig{
		LivenessWindow: getDuration("ORACLE_LIVENESS", 2*time.Hour),
	}
	if cfg.Oracle.BondAmount, err = getInt64("ORACLE_BOND", 100_000_000); err != nil {
		return nil, fmt.Errorf("ORACLE_BOND: %w", err)
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	cfg.Scheduler = SchedulerConfig{
		SettleInterval:    getDuration("SETTLE_INTERVAL", 5*time.Second),
		BroadcastInterval: getDuration("BROADCAST_INTERVAL", time.Second),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default; do not crash on parse error
		return defaultVal
	}
	return d
}
