// Package devnet runs an in-process simulated chain: funded accounts, a test
// ERC20 token and a MultiBetERCExp ledger bound to it.
package devnet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hyblock/hyblock-contracts/internal/multibet"
	"github.com/hyblock/hyblock-contracts/internal/token"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"go.uber.org/zap"
)

const accountSeed = "hyblock devnet account "

var _ wallet.Fetcher = (*Devnet)(nil)

// Account is a funded devnet account.
type Account struct {
	Index      int            `json:"index"`
	Address    common.Address `json:"address"`
	PrivateKey string         `json:"privateKey"`
}

// Devnet holds the simulated chain state.
type Devnet struct {
	accounts []Account
	token    *token.Ledger
	bets     *multibet.Engine
	logger   *zap.Logger
}

// Config holds devnet configuration.
type Config struct {
	// Accounts is the number of accounts to derive. Account 0 owns both contracts.
	Accounts int

	// InitialSupply is minted to account 0 by the token constructor.
	InitialSupply *big.Int

	// Fixture distributes FixtureAmount to every other account and approves
	// the betting contract for the same amount.
	Fixture       bool
	FixtureAmount *big.Int

	Logger *zap.Logger
}

// New derives accounts and deploys the token and betting ledgers.
func New(cfg *Config) (*Devnet, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Accounts < 1 {
		return nil, fmt.Errorf("at least one account is required, got %d", cfg.Accounts)
	}

	supply := cfg.InitialSupply
	if supply == nil {
		supply = units.MustParseEther("1000000")
	}

	accounts, err := deriveAccounts(cfg.Accounts)
	if err != nil {
		return nil, err
	}
	owner := accounts[0].Address

	tokenLedger, err := token.NewTestToken(crypto.CreateAddress(owner, 0), owner, supply, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("deploy test token: %w", err)
	}

	engine, err := multibet.New(&multibet.Config{
		Address: crypto.CreateAddress(owner, 1),
		Owner:   owner,
		Token:   tokenLedger,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("deploy betting contract: %w", err)
	}

	d := &Devnet{
		accounts: accounts,
		token:    tokenLedger,
		bets:     engine,
		logger:   cfg.Logger,
	}

	if cfg.Fixture {
		amount := cfg.FixtureAmount
		if amount == nil {
			amount = units.MustParseEther("10000")
		}
		err = d.applyFixture(amount)
		if err != nil {
			return nil, err
		}
	}

	cfg.Logger.Info("devnet-started",
		zap.Int("accounts", len(accounts)),
		zap.String("owner", owner.Hex()),
		zap.String("token", tokenLedger.Address().Hex()),
		zap.String("multibet", engine.Address().Hex()),
		zap.String("initial-supply", units.FormatEther(supply)))

	return d, nil
}

// Accounts returns the devnet accounts.
func (d *Devnet) Accounts() []Account {
	out := make([]Account, len(d.accounts))
	copy(out, d.accounts)
	return out
}

// Owner returns account 0.
func (d *Devnet) Owner() common.Address { return d.accounts[0].Address }

// Token returns the test token ledger.
func (d *Devnet) Token() *token.Ledger { return d.token }

// Bets returns the betting ledger.
func (d *Devnet) Bets() *multibet.Engine { return d.bets }

// GetBalances reports the account's token balance and its allowance to the
// betting contract. The devnet has no native currency.
func (d *Devnet) GetBalances(_ context.Context, address common.Address) (*wallet.Balances, error) {
	return &wallet.Balances{
		Native:    new(big.Int),
		Token:     d.token.BalanceOf(address),
		Allowance: d.token.Allowance(address, d.bets.Address()),
	}, nil
}

// Addresses returns the account addresses in index order.
func (d *Devnet) Addresses() []common.Address {
	out := make([]common.Address, 0, len(d.accounts))
	for _, acc := range d.accounts {
		out = append(out, acc.Address)
	}
	return out
}

// Check reports whether the devnet can serve requests.
func (d *Devnet) Check() error {
	if d.bets.Closed() {
		return errors.New("betting ledger closed")
	}
	return nil
}

// Close stops event delivery.
func (d *Devnet) Close() error {
	d.logger.Info("devnet-stopping", zap.Uint64("bets", d.bets.BetCount()))
	return d.bets.Close()
}

func (d *Devnet) applyFixture(amount *big.Int) error {
	owner := d.Owner()
	spender := d.bets.Address()

	for _, acc := range d.accounts[1:] {
		err := d.token.Transfer(owner, acc.Address, amount)
		if err != nil {
			return fmt.Errorf("fund %s: %w", acc.Address.Hex(), err)
		}

		err = d.token.Approve(acc.Address, spender, amount)
		if err != nil {
			return fmt.Errorf("approve for %s: %w", acc.Address.Hex(), err)
		}
	}

	d.logger.Info("devnet-fixture-applied",
		zap.Int("funded-accounts", len(d.accounts)-1),
		zap.String("amount", units.FormatEther(amount)))

	return nil
}

// deriveAccounts derives n deterministic keys from a fixed seed so accounts
// are stable across restarts.
func deriveAccounts(n int) ([]Account, error) {
	accounts := make([]Account, 0, n)
	for i := 0; i < n; i++ {
		key, err := deriveKey(i)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, Account{
			Index:      i,
			Address:    crypto.PubkeyToAddress(key.PublicKey),
			PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		})
	}
	return accounts, nil
}

func deriveKey(i int) (*ecdsa.PrivateKey, error) {
	seed := crypto.Keccak256([]byte(accountSeed + strconv.Itoa(i)))
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		return nil, fmt.Errorf("derive account %d: %w", i, err)
	}
	return key, nil
}
