// Package config loads and validates run configuration from the
// environment, with optional .env loading for local runs.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sethvargo/go-envconfig"
)

// Config represents the configuration of one pool history run.
type Config struct {
	// Data sources
	IndexURL  string `env:"UNIV3_INDEX_URL"`   // GraphQL index endpoint, required
	EthRPCURL string `env:"UNIV3_ETH_RPC_URL"` // Ethereum JSON-RPC, required unless metadata overrides are set

	// Target window
	Pool          string `env:"UNIV3_POOL"`       // pool contract address, required
	StartTime     int64  `env:"UNIV3_START_TIME"` // Unix seconds, inclusive
	EndTime       int64  `env:"UNIV3_END_TIME"`   // Unix seconds, exclusive
	BucketSeconds int64  `env:"UNIV3_BUCKET_SECONDS, default=3600"`

	// Fetch behavior
	PageSize    int           `env:"UNIV3_PAGE_SIZE, default=1000"`
	MaxAttempts int           `env:"UNIV3_MAX_ATTEMPTS, default=5"`
	RetryDelay  time.Duration `env:"UNIV3_RETRY_DELAY, default=2s"`
	BatchDelay  time.Duration `env:"UNIV3_BATCH_DELAY, default=250ms"`
	HTTPTimeout time.Duration `env:"UNIV3_HTTP_TIMEOUT, default=30s"`

	// Output
	OutputPath string `env:"UNIV3_OUTPUT, default=pool_history.csv"`
	ReportPath string `env:"UNIV3_REPORT"` // optional markdown run report

	// Optional archive sinks, enabled by DSN presence
	PostgresDSN   string `env:"UNIV3_POSTGRES_DSN"`
	ClickhouseDSN string `env:"UNIV3_CLICKHOUSE_DSN"`

	// Observability
	MetricsAddr string `env:"UNIV3_METRICS_ADDR"` // optional /metrics listener, off when empty
	LogLevel    string `env:"UNIV3_LOG_LEVEL, default=info"`
	LogFormat   string `env:"UNIV3_LOG_FORMAT, default=text"` // text or json

	// Metadata overrides skip the on-chain lookup when all are set
	Token0Decimals *uint8  `env:"UNIV3_TOKEN0_DECIMALS"`
	Token1Decimals *uint8  `env:"UNIV3_TOKEN1_DECIMALS"`
	FeeTier        *uint32 `env:"UNIV3_FEE_TIER"`
}

// FromEnv loads configuration from environment variables without
// validating, so commands can apply flag overrides before Validate.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// Load loads and validates configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.IndexURL == "" {
		return fmt.Errorf("index URL is required")
	}

	if c.Pool == "" {
		return fmt.Errorf("pool address is required")
	}
	if !common.IsHexAddress(c.Pool) {
		return fmt.Errorf("invalid pool address: %s", c.Pool)
	}

	if c.StartTime <= 0 {
		return fmt.Errorf("start time is required")
	}
	if c.EndTime <= c.StartTime {
		return fmt.Errorf("end time %d must be after start time %d", c.EndTime, c.StartTime)
	}

	if c.BucketSeconds <= 0 {
		return fmt.Errorf("invalid bucket width: %d", c.BucketSeconds)
	}

	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("page size must be within 1..1000, got %d", c.PageSize)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}

	if c.EthRPCURL == "" && !c.HasMetadataOverride() {
		return fmt.Errorf("ethereum RPC URL is required unless all metadata overrides are set")
	}

	return nil
}

// HasMetadataOverride reports whether every pool metadata field was supplied
// by the operator, making the on-chain lookup unnecessary.
func (c *Config) HasMetadataOverride() bool {
	return c.Token0Decimals != nil && c.Token1Decimals != nil && c.FeeTier != nil
}

// PoolAddress returns the configured pool as a typed address. Call only
// after Validate.
func (c *Config) PoolAddress() common.Address {
	return common.HexToAddress(c.Pool)
}

// ArchiveEnabled reports whether raw events should be persisted to PostgreSQL.
func (c *Config) ArchiveEnabled() bool {
	return c.PostgresDSN != ""
}

// RecordSinkEnabled reports whether derived records should be persisted to
// ClickHouse.
func (c *Config) RecordSinkEnabled() bool {
	return c.ClickhouseDSN != ""
}
