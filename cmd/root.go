package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "hyblock",
	Short: "HYBLOCK contract deployment and betting toolkit",
	Long: `Deploys the HYBLOCK token and MultiBet contracts, verifies them on the
block explorer, and drives bets against a deployed MultiBetERCExp.

The devnet command runs an in-process simulated chain with the same
contract semantics behind an HTTP API and a WebSocket event stream.

Configuration is read from the environment and from a .env file in the
working directory.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
