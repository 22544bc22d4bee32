package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verifyCmd = &cobra.Command{
	Use:   "verify <contract> <address> [constructor-args...]",
	Short: "Verify a deployed contract on the block explorer",
	Long: `Submits the standard-JSON source of <contract> from ARTIFACTS_DIR for
verification at <address> and waits for the explorer's verdict.

Constructor arguments are given in their Solidity text form, for example:

  hyblock verify MultiBetERCExp 0xabc... 0x220634d3d55DE21c5F0C5Ec37C1CC0c247dcc866`,
	Args: cobra.MinimumNArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name, addrHex := args[0], args[1]

	if !common.IsHexAddress(addrHex) {
		return fmt.Errorf("invalid contract address %q", addrHex)
	}

	e, err := setupEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	err = e.cfg.ValidateVerification()
	if err != nil {
		return err
	}

	runner, cleanup, err := newRunner(e, false)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.Verify(ctx, name, common.HexToAddress(addrHex), args[2:])
	if err != nil {
		return err
	}

	if result.AlreadyVerified {
		fmt.Printf("%s at %s is already verified\n", name, addrHex)
		return nil
	}

	fmt.Printf("%s at %s verified (GUID %s, %d status checks)\n", name, addrHex, result.GUID, result.Attempts)
	return nil
}
