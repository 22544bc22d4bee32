package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tokenInfoCmd = &cobra.Command{
	Use:   "token-info [address]",
	Short: "Show ERC20 token details",
	Long:  `Reads name, symbol, decimals and total supply. Defaults to HYBLOCK_TOKEN_ADDRESS.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenInfo,
}

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show native and token balances",
	Long: `Displays the native balance, HYBLOCK token balance and the token
allowance granted to --spender (usually the MultiBetERCExp contract).
Defaults to the PRIVATE_KEY account.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBalance,
}

//nolint:gochecknoglobals // Cobra boilerplate
var approveCmd = &cobra.Command{
	Use:   "approve <spender> <amount>",
	Short: "Approve a spender for HYBLOCK tokens",
	Long: `Approves <spender> to transfer up to <amount> tokens from the PRIVATE_KEY
account. <amount> is in token units ("250.5") or "unlimited".
Required before placing bets on MultiBetERCExp.`,
	Args: cobra.ExactArgs(2),
	RunE: runApprove,
}

func init() {
	rootCmd.AddCommand(tokenInfoCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(approveCmd)

	for _, c := range []*cobra.Command{tokenInfoCmd, balanceCmd, approveCmd} {
		c.Flags().StringP("token", "t", "", "Token address (default HYBLOCK_TOKEN_ADDRESS)")
	}
	balanceCmd.Flags().StringP("spender", "s", "", "Report the allowance granted to this address")
}

func tokenAddress(cmd *cobra.Command, fallback string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString("token")
	if raw == "" {
		raw = fallback
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid token address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func runTokenInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := setupEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	fallback := e.cfg.HyblockTokenAddress
	if len(args) == 1 {
		fallback = args[0]
	}
	addr, err := tokenAddress(cmd, fallback)
	if err != nil {
		return err
	}

	err = e.client.EnsureCode(ctx, addr)
	if err != nil {
		return err
	}

	d, err := e.client.TokenDetails(ctx, addr)
	if err != nil {
		return err
	}

	fmt.Printf("=== Token %s ===\n\n", addr.Hex())
	fmt.Printf("Name:         %s\n", d.Name)
	fmt.Printf("Symbol:       %s\n", d.Symbol)
	fmt.Printf("Decimals:     %d\n", d.Decimals)
	fmt.Printf("Total Supply: %s %s\n", units.FormatUnits(d.TotalSupply, int32(d.Decimals)), d.Symbol)

	return nil
}

func runBalance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := setupEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()

	account := e.client.Address()
	if len(args) == 1 {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address %q", args[0])
		}
		account = common.HexToAddress(args[0])
	}
	if account == (common.Address{}) {
		return fmt.Errorf("pass an address or set PRIVATE_KEY")
	}

	tokenAddr, err := tokenAddress(cmd, e.cfg.HyblockTokenAddress)
	if err != nil {
		return err
	}

	var spender common.Address
	spenderHex, _ := cmd.Flags().GetString("spender")
	if spenderHex != "" {
		if !common.IsHexAddress(spenderHex) {
			return fmt.Errorf("invalid spender address %q", spenderHex)
		}
		spender = common.HexToAddress(spenderHex)
	}

	token := e.client.Token(tokenAddr)
	details, err := token.Details(ctx)
	if err != nil {
		return fmt.Errorf("read token %s: %w", tokenAddr.Hex(), err)
	}

	fetcher, err := wallet.NewClient(&wallet.ClientConfig{
		Native:  e.client.Backend(),
		Token:   token,
		Spender: spender,
		Logger:  e.logger,
	})
	if err != nil {
		return err
	}

	balances, err := fetcher.GetBalances(ctx, account)
	if err != nil {
		return err
	}

	e.logger.Debug("balance-fetched", zap.String("account", account.Hex()))

	decimals := int32(details.Decimals)
	fmt.Printf("=== Wallet Balance Sheet (%s) ===\n\n", e.cfg.Network)
	fmt.Printf("Address: %s\n\n", account.Hex())
	fmt.Printf("ETH:       %s\n", units.FormatEther(balances.Native))
	fmt.Printf("%-10s %s\n", details.Symbol+":", units.FormatUnits(balances.Token, decimals))
	if spender != (common.Address{}) {
		allowance := units.FormatUnits(balances.Allowance, decimals)
		if balances.Allowance.Cmp(units.MaxUint256()) == 0 {
			allowance = "unlimited"
		}
		fmt.Printf("Allowance: %s (spender %s)\n", allowance, spender.Hex())
	}

	return nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid spender address %q", args[0])
	}
	spender := common.HexToAddress(args[0])

	e, err := setupEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	tokenAddr, err := tokenAddress(cmd, e.cfg.HyblockTokenAddress)
	if err != nil {
		return err
	}

	token := e.client.Token(tokenAddr)
	details, err := token.Details(ctx)
	if err != nil {
		return fmt.Errorf("read token %s: %w", tokenAddr.Hex(), err)
	}

	amount, err := parseTokenAmount(args[1], details.Decimals)
	if err != nil {
		return err
	}

	receipt, err := token.Approve(ctx, spender, amount)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}

	fmt.Printf("Approved %s for %s %s (tx %s)\n", spender.Hex(), args[1], details.Symbol, receipt.TxHash.Hex())
	return nil
}
