// Package multibet is an in-memory model of the MultiBetERCExp contract:
// owner-created multi-option bets, ERC20 wagers, and pro-rata payout of the
// losing pool to winners on resolution.
package multibet

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

// Token is the subset of ERC20 the engine needs.
type Token interface {
	Address() common.Address
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// bet is the per-bet state.
type bet struct {
	topic         string
	options       []string
	optionIndex   map[string]int
	totals        []*big.Int
	stakes        map[common.Address][]*big.Int
	bettors       []common.Address // first-wager order
	resolved      bool
	winningOption string
}

// Engine holds the state of one deployed betting contract.
type Engine struct {
	address common.Address
	owner   common.Address
	token   Token
	logger  *zap.Logger
	events  *eventBus

	mu   sync.Mutex
	bets []*bet
}

// Config holds engine configuration.
type Config struct {
	Address common.Address // contract address, receives wagers
	Owner   common.Address // deployer
	Token   Token
	Logger  *zap.Logger

	// EventBuffer is the per-subscriber channel size.
	EventBuffer int
}

// New creates a betting engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Token == nil {
		return nil, errors.New("token cannot be nil")
	}

	if cfg.Address == (common.Address{}) {
		return nil, errors.New("contract address cannot be zero")
	}

	if cfg.Owner == (common.Address{}) {
		return nil, errors.New("owner cannot be zero")
	}

	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}

	return &Engine{
		address: cfg.Address,
		owner:   cfg.Owner,
		token:   cfg.Token,
		logger:  cfg.Logger,
		events:  newEventBus(buffer, cfg.Logger),
	}, nil
}

// Address returns the contract address.
func (e *Engine) Address() common.Address { return e.address }

// Owner returns the owner account.
func (e *Engine) Owner() common.Address { return e.owner }

// HyblockToken returns the wagered token's address.
func (e *Engine) HyblockToken() common.Address { return e.token.Address() }

// BetCount returns the number of bets created.
func (e *Engine) BetCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.bets))
}

// CreateBet opens a new bet. Only the owner may call it.
func (e *Engine) CreateBet(caller common.Address, topic string, options []string) (uint64, error) {
	if caller != e.owner {
		return 0, revert(types.ReasonOnlyOwner)
	}

	if topic == "" {
		return 0, revert(types.ReasonEmptyTopic)
	}

	if len(options) < 2 {
		return 0, revert(types.ReasonTooFewOptions)
	}

	index := make(map[string]int, len(options))
	for i, opt := range options {
		if opt == "" {
			return 0, revert(types.ReasonInvalidOption)
		}
		if _, dup := index[opt]; dup {
			return 0, revert(types.ReasonDuplicateOption)
		}
		index[opt] = i
	}

	totals := make([]*big.Int, len(options))
	for i := range totals {
		totals[i] = new(big.Int)
	}

	b := &bet{
		topic:       topic,
		options:     append([]string(nil), options...),
		optionIndex: index,
		totals:      totals,
		stakes:      make(map[common.Address][]*big.Int),
	}

	e.mu.Lock()
	id := uint64(len(e.bets))
	e.bets = append(e.bets, b)
	e.mu.Unlock()

	BetsCreatedTotal.Inc()
	e.logger.Info("bet-created",
		zap.Uint64("bet-id", id),
		zap.String("topic", topic),
		zap.Strings("options", options))

	e.events.publish(types.EventBetCreated, types.BetCreatedEvent{
		BetID:   id,
		Topic:   topic,
		Options: append([]string(nil), options...),
	})

	return id, nil
}

// PlaceBet wagers amount tokens from caller on option. The caller must have
// approved the contract for at least amount.
func (e *Engine) PlaceBet(caller common.Address, betID uint64, option string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return revert(types.ReasonZeroAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return err
	}

	if b.resolved {
		return revert(types.ReasonBetResolved)
	}

	idx, ok := b.optionIndex[option]
	if !ok {
		return revert(types.ReasonInvalidOption)
	}

	err = e.token.TransferFrom(e.address, caller, e.address, amount)
	if err != nil {
		BetsRejectedTotal.Inc()
		return err
	}

	stakes, seen := b.stakes[caller]
	if !seen {
		stakes = make([]*big.Int, len(b.options))
		for i := range stakes {
			stakes[i] = new(big.Int)
		}
		b.stakes[caller] = stakes
		b.bettors = append(b.bettors, caller)
	}
	stakes[idx].Add(stakes[idx], amount)
	b.totals[idx].Add(b.totals[idx], amount)

	BetsPlacedTotal.Inc()
	e.logger.Info("bet-placed",
		zap.Uint64("bet-id", betID),
		zap.String("user", caller.Hex()),
		zap.String("option", option),
		zap.String("amount", units.FormatEther(amount)))

	e.events.publish(types.EventBetPlaced, types.BetPlacedEvent{
		BetID:  betID,
		User:   caller,
		Amount: new(big.Int).Set(amount),
		Option: option,
	})

	return nil
}

// ResolveBet declares the winning option and pays winners. Only the owner may
// call it, and only once per bet.
func (e *Engine) ResolveBet(caller common.Address, betID uint64, winningOption string) ([]types.PayoutEvent, error) {
	if caller != e.owner {
		return nil, revert(types.ReasonOnlyOwner)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return nil, err
	}

	if b.resolved {
		return nil, revert(types.ReasonBetResolved)
	}

	winIdx, ok := b.optionIndex[winningOption]
	if !ok {
		return nil, revert(types.ReasonInvalidOption)
	}

	payouts := computePayouts(b, winIdx)

	// A failed transfer rolls back earlier payouts and leaves the bet open.
	for i, p := range payouts {
		err = e.token.Transfer(e.address, p.User, p.Amount)
		if err != nil {
			rollbackErr := e.rollbackPayouts(betID, payouts[:i])
			return nil, errors.Join(err, rollbackErr)
		}
	}

	b.resolved = true
	b.winningOption = winningOption

	BetsResolvedTotal.Inc()
	e.logger.Info("bet-resolved",
		zap.Uint64("bet-id", betID),
		zap.String("winning-option", winningOption),
		zap.Int("winners", len(payouts)))

	e.events.publish(types.EventBetResolved, types.BetResolvedEvent{
		BetID:         betID,
		WinningOption: winningOption,
	})

	out := make([]types.PayoutEvent, 0, len(payouts))
	for _, p := range payouts {
		p.BetID = betID
		payoutFloat, _ := new(big.Float).Quo(new(big.Float).SetInt(p.Amount), big.NewFloat(1e18)).Float64()
		PayoutVolume.Add(payoutFloat)
		e.events.publish(types.EventPayout, p)
		out = append(out, p)
	}

	return out, nil
}

// rollbackPayouts returns already-paid amounts to the contract. Payouts that
// cannot be reclaimed are logged and reported; the ledger then holds them.
func (e *Engine) rollbackPayouts(betID uint64, paid []types.PayoutEvent) error {
	var errs []error
	for _, p := range paid {
		err := e.token.Transfer(p.User, e.address, p.Amount)
		if err != nil {
			PayoutRollbackFailuresTotal.Inc()
			e.logger.Error("payout-rollback-failed",
				zap.Uint64("bet-id", betID),
				zap.String("user", p.User.Hex()),
				zap.String("amount", p.Amount.String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("roll back payout of %s to %s: %w", p.Amount, p.User.Hex(), err))
		}
	}
	return errors.Join(errs...)
}

// GetBet returns the bet's public view.
func (e *Engine) GetBet(betID uint64) (*types.BetInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, t := range b.totals {
		total.Add(total, t)
	}

	return &types.BetInfo{
		ID:            betID,
		Topic:         b.topic,
		Options:       append([]string(nil), b.options...),
		IsResolved:    b.resolved,
		WinningOption: b.winningOption,
		TotalPool:     total,
	}, nil
}

// GetBetOptionInfos returns option labels and their accumulated totals.
func (e *Engine) GetBetOptionInfos(betID uint64) ([]string, []*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return nil, nil, err
	}

	amounts := make([]*big.Int, len(b.totals))
	for i, t := range b.totals {
		amounts[i] = new(big.Int).Set(t)
	}

	return append([]string(nil), b.options...), amounts, nil
}

// GetUserBet returns the option indexes and amounts user has staked on the
// bet. Both slices are empty for users who have not wagered.
func (e *Engine) GetUserBet(betID uint64, user common.Address) (*types.UserBet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.betLocked(betID)
	if err != nil {
		return nil, err
	}

	result := &types.UserBet{
		OptionIndexes: []uint64{},
		Amounts:       []*big.Int{},
	}

	for i, stake := range b.stakes[user] {
		if stake.Sign() == 0 {
			continue
		}
		result.OptionIndexes = append(result.OptionIndexes, uint64(i))
		result.Amounts = append(result.Amounts, new(big.Int).Set(stake))
	}

	return result, nil
}

// Subscribe returns a channel of ledger events and a cancel function.
func (e *Engine) Subscribe() (<-chan types.Event, func()) {
	return e.events.subscribe()
}

// Close terminates all event subscriptions.
func (e *Engine) Close() error {
	e.events.close()
	return nil
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	return e.events.isClosed()
}

func (e *Engine) betLocked(betID uint64) (*bet, error) {
	if betID >= uint64(len(e.bets)) {
		return nil, revert(types.ReasonBetNotFound)
	}
	return e.bets[betID], nil
}

func revert(reason string) error {
	return &types.RevertError{Reason: reason}
}
