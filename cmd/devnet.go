package cmd

import (
	"fmt"

	"github.com/hyblock/hyblock-contracts/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var devnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Run the in-process simulated chain",
	Long: `Starts a simulated chain with DEVNET_ACCOUNTS deterministic accounts, a test
ERC20 minted to account 0 and a MultiBetERCExp ledger bound to it.

Serves:
  /api/...      token and betting operations (JSON)
  /ws/events    WebSocket stream of BetCreated, BetPlaced, BetResolved, Payout
  /metrics      Prometheus metrics
  /health       liveness
  /ready        readiness`,
	Args: cobra.NoArgs,
	RunE: runDevnet,
}

func init() {
	rootCmd.AddCommand(devnetCmd)
	devnetCmd.Flags().String("port", "", "HTTP port (overrides HTTP_PORT)")
	devnetCmd.Flags().Bool("no-tracker", false, "Disable per-account balance metrics")
}

func runDevnet(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.HTTPPort = port
	}
	noTracker, _ := cmd.Flags().GetBool("no-tracker")

	application, err := app.New(cfg, logger, &app.Options{DisableTracker: noTracker})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	for _, acc := range application.Devnet().Accounts() {
		fmt.Printf("Account #%d: %s (%s)\n", acc.Index, acc.Address.Hex(), acc.PrivateKey)
	}
	fmt.Println()

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
