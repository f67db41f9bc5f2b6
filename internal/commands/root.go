// Package commands wires the CLI surface to the run pipeline.
package commands

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jungtak3/uniswap-v3-data/internal/config"
	"github.com/jungtak3/uniswap-v3-data/internal/observability"
)

var (
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "uniswap-v3-data",
	Short: "Uniswap V3 pool history aggregator",
	Long: `Reconstructs the bucketed trading and liquidity history of a single
Uniswap V3 pool from its event index.

Features:
• Paginated swap, mint and burn ingestion with retry and stall recovery
• Exact OHLC bucketing over decoded Q64.96 sqrt prices
• Boundary-delta liquidity ledger with active-range ratios
• CSV output plus optional PostgreSQL archive and ClickHouse record sink
• Prometheus metrics covering every run phase`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides UNIV3_LOG_LEVEL")
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// serveMetrics exposes /metrics and /health until the process exits.
func serveMetrics(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.WithField("addr", addr).Info("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("metrics listener failed")
	}
}
