package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/jungtak3/uniswap-v3-data/internal/chain"
	"github.com/jungtak3/uniswap-v3-data/internal/config"
)

var poolInfoCmd = &cobra.Command{
	Use:   "pool-info [address]",
	Short: "Resolve and print a pool's on-chain parameters",
	Long: `Resolve a pool's token addresses, decimals, fee tier and tick
spacing via eth_call and print them.

The address falls back to UNIV3_POOL when no argument is given.

Examples:
  uniswap-v3-data pool-info 0xC2e9F25Be6257c210d7Adf0D4Cd6E3E881ba25f8`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPoolInfo,
}

func init() {
	rootCmd.AddCommand(poolInfoCmd)
}

func runPoolInfo(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool := cfg.Pool
	if len(args) == 1 {
		pool = args[0]
	}
	if pool == "" {
		return fmt.Errorf("pool address required (argument or UNIV3_POOL)")
	}
	if !common.IsHexAddress(pool) {
		return fmt.Errorf("invalid pool address: %s", pool)
	}
	if cfg.EthRPCURL == "" {
		return fmt.Errorf("UNIV3_ETH_RPC_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolver, err := chain.Dial(ctx, cfg.EthRPCURL)
	if err != nil {
		return fmt.Errorf("connect to ethereum rpc: %w", err)
	}

	meta, err := resolver.Resolve(ctx, common.HexToAddress(pool))
	if err != nil {
		return err
	}

	fmt.Printf("Pool:         %s\n", meta.Pool.Hex())
	fmt.Printf("Token0:       %s (decimals %d)\n", meta.Token0.Hex(), meta.Decimals0)
	fmt.Printf("Token1:       %s (decimals %d)\n", meta.Token1.Hex(), meta.Decimals1)
	fmt.Printf("Fee tier:     %d\n", meta.FeeTier)
	fmt.Printf("Tick spacing: %d\n", meta.TickSpacing)

	return nil
}
