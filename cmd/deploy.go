package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var deployTokenCmd = &cobra.Command{
	Use:   "deploy-token",
	Short: "Deploy the HYBLOCK token",
	Long: `Deploys HYBLOCKToken from the account in PRIVATE_KEY to NETWORK.

On public networks the command waits VERIFY_CONFIRMATIONS blocks and then
verifies the source on the block explorer (requires ETHERSCAN_API_KEY).
Pass --no-verify to stop once the deployment is recorded. The token details
are read back and printed after deployment.`,
	Args: cobra.NoArgs,
	RunE: runDeployToken,
}

//nolint:gochecknoglobals // Cobra boilerplate
var deployMultiBetCmd = &cobra.Command{
	Use:   "deploy-multibet",
	Short: "Deploy the MultiBet contract",
	Long: `Deploys MultiBetERC, or with --exp the token-based MultiBetERCExp bound
to --token (default HYBLOCK_TOKEN_ADDRESS).`,
	Args: cobra.NoArgs,
	RunE: runDeployMultiBet,
}

//nolint:gochecknoglobals // Cobra boilerplate
var deployAllCmd = &cobra.Command{
	Use:   "deploy-all",
	Short: "Deploy the token and a MultiBetERCExp bound to it",
	Long: `Deploys HYBLOCKToken and then MultiBetERCExp with the new token address as
its constructor argument. The balance guard sees the cost of the token
deployment before it admits the second one.`,
	Args: cobra.NoArgs,
	RunE: runDeployAll,
}

func init() {
	rootCmd.AddCommand(deployTokenCmd)
	rootCmd.AddCommand(deployMultiBetCmd)
	rootCmd.AddCommand(deployAllCmd)

	for _, c := range []*cobra.Command{deployTokenCmd, deployMultiBetCmd, deployAllCmd} {
		c.Flags().Bool("no-verify", false, "Skip confirmation wait and block explorer verification")
	}

	deployMultiBetCmd.Flags().Bool("exp", false, "Deploy MultiBetERCExp (ERC20 wagers) instead of MultiBetERC")
	deployMultiBetCmd.Flags().StringP("token", "t", "", "Token address for MultiBetERCExp (default HYBLOCK_TOKEN_ADDRESS)")
}

func runDeployToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	noVerify, _ := cmd.Flags().GetBool("no-verify")

	e, err := setupEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	runner, cleanup, err := newRunner(e, noVerify)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.DeployToken(ctx)
	if result != nil && result.Deployment != nil {
		fmt.Printf("HYBLOCKToken deployed to: %s\n", result.Deployment.Address.Hex())
	}
	if err != nil {
		return err
	}

	printTokenDetails(result.Details)
	return nil
}

func printTokenDetails(d *types.TokenDetails) {
	fmt.Printf("\nToken Details:\n")
	fmt.Printf("  Name:         %s\n", d.Name)
	fmt.Printf("  Symbol:       %s\n", d.Symbol)
	fmt.Printf("  Decimals:     %d\n", d.Decimals)
	fmt.Printf("  Total Supply: %s %s\n", units.FormatUnits(d.TotalSupply, int32(d.Decimals)), d.Symbol)
}

func runDeployMultiBet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	exp, _ := cmd.Flags().GetBool("exp")
	tokenFlag, _ := cmd.Flags().GetString("token")
	noVerify, _ := cmd.Flags().GetBool("no-verify")

	e, err := setupEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	runner, cleanup, err := newRunner(e, noVerify)
	if err != nil {
		return err
	}
	defer cleanup()

	if !exp {
		dep, err := runner.DeployMultiBet(ctx)
		if dep != nil {
			fmt.Printf("MultiBetERC deployed to: %s\n", dep.Address.Hex())
		}
		return err
	}

	tokenHex := tokenFlag
	if tokenHex == "" {
		tokenHex = e.cfg.HyblockTokenAddress
	}
	if !common.IsHexAddress(tokenHex) {
		return fmt.Errorf("invalid token address %q", tokenHex)
	}

	dep, err := runner.DeployMultiBetExp(ctx, common.HexToAddress(tokenHex))
	if dep != nil {
		fmt.Printf("MultiBetERCExp deployed to: %s (token %s)\n", dep.Address.Hex(), tokenHex)
	}
	return err
}

func runDeployAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	noVerify, _ := cmd.Flags().GetBool("no-verify")

	e, err := setupEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	runner, cleanup, err := newRunner(e, noVerify)
	if err != nil {
		return err
	}
	defer cleanup()

	suite, err := runner.DeployAll(ctx)
	if suite != nil {
		fmt.Printf("HYBLOCKToken deployed to: %s\n", suite.Token.Deployment.Address.Hex())
		if suite.MultiBet != nil {
			fmt.Printf("MultiBetERCExp deployed to: %s\n", suite.MultiBet.Address.Hex())
		}
	}
	if err != nil {
		return err
	}

	printTokenDetails(suite.Token.Details)
	return nil
}
