// Package token is an in-memory ERC20 ledger with OpenZeppelin v5 error semantics.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"go.uber.org/zap"
)

// Ledger holds ERC20 balances and allowances.
type Ledger struct {
	address  common.Address
	name     string
	symbol   string
	decimals uint8
	logger   *zap.Logger

	mu          sync.RWMutex
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
}

// Config holds ledger configuration.
type Config struct {
	Address       common.Address
	Name          string
	Symbol        string
	Decimals      uint8
	Deployer      common.Address
	InitialSupply *big.Int
	Logger        *zap.Logger
}

// New creates a ledger and mints the initial supply to the deployer.
func New(cfg *Config) (*Ledger, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Name == "" || cfg.Symbol == "" {
		return nil, errors.New("name and symbol cannot be empty")
	}

	l := &Ledger{
		address:     cfg.Address,
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		decimals:    cfg.Decimals,
		logger:      cfg.Logger,
		totalSupply: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
	}

	if cfg.InitialSupply != nil && cfg.InitialSupply.Sign() > 0 {
		err := l.Mint(cfg.Deployer, cfg.InitialSupply)
		if err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Address returns the ledger's contract address.
func (l *Ledger) Address() common.Address { return l.address }

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Decimals returns the token precision.
func (l *Ledger) Decimals() uint8 { return l.decimals }

// Details returns the token metadata.
func (l *Ledger) Details() types.TokenDetails {
	return types.TokenDetails{
		Name:        l.name,
		Symbol:      l.symbol,
		Decimals:    l.decimals,
		TotalSupply: l.TotalSupply(),
	}
}

// TotalSupply returns the amount of tokens in existence.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.totalSupply)
}

// BalanceOf returns the balance of account.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balanceLocked(account))
}

// Allowance returns the amount spender may still transfer on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.allowanceLocked(owner, spender))
}

// Mint creates amount tokens and assigns them to account.
func (l *Ledger) Mint(account common.Address, amount *big.Int) error {
	if account == (common.Address{}) {
		return customError(types.ErrERC20InvalidReceiver, common.Address{})
	}

	err := checkAmount(amount)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	supply := new(big.Int).Add(l.totalSupply, amount)
	if supply.BitLen() > 256 {
		return fmt.Errorf("mint %s: total supply %w", amount, types.ErrAmountOutOfRange)
	}
	l.totalSupply = supply
	l.balances[account] = new(big.Int).Add(l.balanceLocked(account), amount)

	l.logger.Debug("token-minted",
		zap.String("symbol", l.symbol),
		zap.String("to", account.Hex()),
		zap.String("amount", units.FormatUnits(amount, int32(l.decimals))))

	return nil
}

// Transfer moves amount tokens from the caller to to.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	err := checkAmount(amount)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

// Approve sets spender's allowance over owner's tokens.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	if owner == (common.Address{}) {
		return customError(types.ErrERC20InvalidApprover, common.Address{})
	}

	if spender == (common.Address{}) {
		return customError(types.ErrERC20InvalidSpender, common.Address{})
	}

	err := checkAmount(amount)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.setAllowanceLocked(owner, spender, new(big.Int).Set(amount))

	l.logger.Debug("token-approved",
		zap.String("symbol", l.symbol),
		zap.String("owner", owner.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()))

	return nil
}

// TransferFrom moves amount tokens from from to to using spender's allowance.
// A max-uint256 allowance is never decremented.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	err := checkAmount(amount)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.allowanceLocked(from, spender)
	if current.Cmp(units.MaxUint256()) != 0 {
		if current.Cmp(amount) < 0 {
			return customError(types.ErrERC20InsufficientAllowance,
				spender, new(big.Int).Set(current), new(big.Int).Set(amount))
		}

		// Allowance is spent before the transfer; restore it if the transfer fails.
		l.setAllowanceLocked(from, spender, new(big.Int).Sub(current, amount))
		err = l.transferLocked(from, to, amount)
		if err != nil {
			l.setAllowanceLocked(from, spender, current)
			return err
		}
		return nil
	}

	return l.transferLocked(from, to, amount)
}

func (l *Ledger) transferLocked(from, to common.Address, amount *big.Int) error {
	if from == (common.Address{}) {
		return customError(types.ErrERC20InvalidSender, common.Address{})
	}

	if to == (common.Address{}) {
		return customError(types.ErrERC20InvalidReceiver, common.Address{})
	}

	fromBalance := l.balanceLocked(from)
	if fromBalance.Cmp(amount) < 0 {
		return customError(types.ErrERC20InsufficientBalance,
			from, new(big.Int).Set(fromBalance), new(big.Int).Set(amount))
	}

	l.balances[from] = new(big.Int).Sub(fromBalance, amount)
	l.balances[to] = new(big.Int).Add(l.balanceLocked(to), amount)

	return nil
}

func (l *Ledger) balanceLocked(account common.Address) *big.Int {
	balance, ok := l.balances[account]
	if !ok {
		return new(big.Int)
	}
	return balance
}

func (l *Ledger) allowanceLocked(owner, spender common.Address) *big.Int {
	spenders, ok := l.allowances[owner]
	if !ok {
		return new(big.Int)
	}
	allowance, ok := spenders[spender]
	if !ok {
		return new(big.Int)
	}
	return allowance
}

func (l *Ledger) setAllowanceLocked(owner, spender common.Address, amount *big.Int) {
	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = make(map[common.Address]*big.Int)
		l.allowances[owner] = spenders
	}
	spenders[spender] = amount
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return fmt.Errorf("%v: %w", amount, types.ErrAmountOutOfRange)
	}
	return nil
}

func customError(name string, args ...interface{}) error {
	return &types.CustomError{Name: name, Args: args}
}
