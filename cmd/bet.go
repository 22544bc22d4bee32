package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/internal/chain"
	"github.com/hyblock/hyblock-contracts/internal/deploy"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var betCmd = &cobra.Command{
	Use:   "bet",
	Short: "Create, place, resolve and inspect bets on MultiBetERCExp",
	Long: `Drives a deployed MultiBetERCExp contract. The contract address comes from
--contract or MULTIBET_ADDRESS; its ABI is read from ARTIFACTS_DIR.`,
}

//nolint:gochecknoglobals // Cobra boilerplate
var betCreateCmd = &cobra.Command{
	Use:   "create <topic> <option> <option> [option...]",
	Short: "Open a new bet (owner only)",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runBetCreate,
}

//nolint:gochecknoglobals // Cobra boilerplate
var betPlaceCmd = &cobra.Command{
	Use:   "place <bet-id> <option> <amount>",
	Short: "Wager tokens on an option",
	Long: `Wagers <amount> tokens (in token units, e.g. "100") on <option>.
The contract must be approved for at least <amount> first (see approve).`,
	Args: cobra.ExactArgs(3),
	RunE: runBetPlace,
}

//nolint:gochecknoglobals // Cobra boilerplate
var betResolveCmd = &cobra.Command{
	Use:   "resolve <bet-id> <winning-option>",
	Short: "Resolve a bet and pay out winners (owner only)",
	Args:  cobra.ExactArgs(2),
	RunE:  runBetResolve,
}

//nolint:gochecknoglobals // Cobra boilerplate
var betShowCmd = &cobra.Command{
	Use:   "show <bet-id>",
	Short: "Show a bet",
	Args:  cobra.ExactArgs(1),
	RunE:  runBetShow,
}

//nolint:gochecknoglobals // Cobra boilerplate
var betOptionsCmd = &cobra.Command{
	Use:   "options <bet-id>",
	Short: "Show wager totals per option",
	Args:  cobra.ExactArgs(1),
	RunE:  runBetOptions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var betUserCmd = &cobra.Command{
	Use:   "user <bet-id> [address]",
	Short: "Show a user's stakes on a bet",
	Long:  `Shows the stakes of [address], defaulting to the PRIVATE_KEY account.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBetUser,
}

func init() {
	rootCmd.AddCommand(betCmd)
	betCmd.AddCommand(betCreateCmd, betPlaceCmd, betResolveCmd, betShowCmd, betOptionsCmd, betUserCmd)

	betCmd.PersistentFlags().StringP("contract", "c", "", "MultiBetERCExp address (default MULTIBET_ADDRESS)")
}

// betSession is a bound betting contract plus the token it wagers.
type betSession struct {
	env      *env
	contract *chain.MultiBet
	decimals int32
	symbol   string
	cleanup  func()
}

func (s *betSession) Close() {
	s.cleanup()
	s.env.Close()
}

func (s *betSession) format(v *big.Int) string {
	return units.FormatUnits(v, s.decimals) + " " + s.symbol
}

func openBetSession(ctx context.Context, cmd *cobra.Command, needSigner bool) (*betSession, error) {
	e, err := setupEnv(ctx, needSigner)
	if err != nil {
		return nil, err
	}

	addrHex, _ := cmd.Flags().GetString("contract")
	if addrHex == "" {
		addrHex = e.cfg.MultiBetAddress
	}
	if !common.IsHexAddress(addrHex) {
		e.Close()
		return nil, fmt.Errorf("set --contract or MULTIBET_ADDRESS to the MultiBetERCExp address")
	}
	addr := common.HexToAddress(addrHex)

	artifacts, closeArtifacts, err := setupArtifacts(e.cfg, e.logger)
	if err != nil {
		e.Close()
		return nil, err
	}

	s := &betSession{env: e, cleanup: closeArtifacts}

	art, err := artifacts.Load(deploy.ContractMultiBetERCExp)
	if err != nil {
		s.Close()
		return nil, err
	}

	err = e.client.EnsureCode(ctx, addr)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.contract = e.client.MultiBet(addr, art)

	tokenAddr, err := s.contract.HyblockToken(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("read hyblockToken: %w", err)
	}

	details, err := e.client.TokenDetails(ctx, tokenAddr)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("read token %s: %w", tokenAddr.Hex(), err)
	}
	s.decimals = int32(details.Decimals)
	s.symbol = details.Symbol

	return s, nil
}

func parseBetID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bet id %q", raw)
	}
	return id, nil
}

func runBetCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openBetSession(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id, receipt, err := s.contract.CreateBet(ctx, args[0], args[1:])
	if err != nil {
		return fmt.Errorf("create bet: %w", err)
	}

	fmt.Printf("Bet %d created: %q [%s] (tx %s)\n", id, args[0], strings.Join(args[1:], ", "), receipt.TxHash.Hex())
	return nil
}

func runBetPlace(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseBetID(args[0])
	if err != nil {
		return err
	}

	s, err := openBetSession(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	amount, err := units.ParseUnits(args[2], s.decimals)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[2], err)
	}

	receipt, err := s.contract.PlaceBet(ctx, id, args[1], amount)
	if err != nil {
		return fmt.Errorf("place bet: %w", err)
	}

	ev, err := s.contract.ParseBetPlaced(receipt)
	if err != nil {
		return err
	}

	fmt.Printf("Placed %s on %q in bet %d from %s (tx %s)\n",
		s.format(ev.Amount), ev.Option, ev.BetID, ev.User.Hex(), receipt.TxHash.Hex())
	return nil
}

func runBetResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseBetID(args[0])
	if err != nil {
		return err
	}

	s, err := openBetSession(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	receipt, err := s.contract.ResolveBet(ctx, id, args[1])
	if err != nil {
		return fmt.Errorf("resolve bet: %w", err)
	}

	fmt.Printf("Bet %d resolved: %q wins (tx %s, gas %d)\n", id, args[1], receipt.TxHash.Hex(), receipt.GasUsed)
	return nil
}

func runBetShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseBetID(args[0])
	if err != nil {
		return err
	}

	s, err := openBetSession(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.contract.GetBet(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("=== Bet %d ===\n\n", info.ID)
	fmt.Printf("Topic:      %s\n", info.Topic)
	fmt.Printf("Options:    %s\n", strings.Join(info.Options, ", "))
	if info.TotalPool != nil {
		fmt.Printf("Total pool: %s\n", s.format(info.TotalPool))
	}
	if info.IsResolved {
		fmt.Printf("Status:     resolved, %q won\n", info.WinningOption)
	} else {
		fmt.Printf("Status:     open\n")
	}
	return nil
}

func runBetOptions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseBetID(args[0])
	if err != nil {
		return err
	}

	s, err := openBetSession(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	options, amounts, err := s.contract.GetBetOptionInfos(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("=== Bet %d options ===\n\n", id)
	for i, opt := range options {
		fmt.Printf("  %-20s %s\n", opt, s.format(amounts[i]))
	}
	return nil
}

func runBetUser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseBetID(args[0])
	if err != nil {
		return err
	}

	s, err := openBetSession(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	user := s.env.client.Address()
	if len(args) == 2 {
		if !common.IsHexAddress(args[1]) {
			return fmt.Errorf("invalid address %q", args[1])
		}
		user = common.HexToAddress(args[1])
	}
	if user == (common.Address{}) {
		return fmt.Errorf("pass an address or set PRIVATE_KEY")
	}

	info, err := s.contract.GetBet(ctx, id)
	if err != nil {
		return err
	}

	ub, err := s.contract.GetUserBet(ctx, id, user)
	if err != nil {
		return err
	}

	fmt.Printf("=== Bet %d stakes of %s ===\n\n", id, user.Hex())
	if len(ub.OptionIndexes) == 0 {
		fmt.Printf("  no stakes\n")
		return nil
	}
	for i, idx := range ub.OptionIndexes {
		label := strconv.FormatUint(idx, 10)
		if idx < uint64(len(info.Options)) {
			label = info.Options[idx]
		}
		fmt.Printf("  %-20s %s\n", label, s.format(ub.Amounts[i]))
	}
	return nil
}
