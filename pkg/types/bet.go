package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BetInfo is the view returned by getBet.
type BetInfo struct {
	ID            uint64   `json:"id"`
	Topic         string   `json:"topic"`
	Options       []string `json:"options"`
	IsResolved    bool     `json:"isResolved"`
	WinningOption string   `json:"winningOption"`
	TotalPool     *big.Int `json:"totalPool"`
}

// OptionInfo pairs an option label with its accumulated wager total.
type OptionInfo struct {
	Option string   `json:"option"`
	Amount *big.Int `json:"amount"`
}

// UserBet holds a user's stakes on one bet, in option order.
// OptionIndexes and Amounts have equal length.
type UserBet struct {
	OptionIndexes []uint64   `json:"optionIndexes"`
	Amounts       []*big.Int `json:"amounts"`
}

// Event names emitted by the betting contract.
const (
	EventBetCreated  = "BetCreated"
	EventBetPlaced   = "BetPlaced"
	EventBetResolved = "BetResolved"
	EventPayout      = "Payout"
)

// BetCreatedEvent mirrors BetCreated(uint256 betId, string topic, string[] options).
type BetCreatedEvent struct {
	BetID   uint64   `json:"betId"`
	Topic   string   `json:"topic"`
	Options []string `json:"options"`
}

// BetPlacedEvent mirrors BetPlaced(uint256 betId, address user, uint256 amount, string option).
type BetPlacedEvent struct {
	BetID  uint64         `json:"betId"`
	User   common.Address `json:"user"`
	Amount *big.Int       `json:"amount"`
	Option string         `json:"option"`
}

// BetResolvedEvent mirrors BetResolved(uint256 betId, string winningOption).
type BetResolvedEvent struct {
	BetID         uint64 `json:"betId"`
	WinningOption string `json:"winningOption"`
}

// PayoutEvent records a single winner transfer during resolution.
type PayoutEvent struct {
	BetID  uint64         `json:"betId"`
	User   common.Address `json:"user"`
	Amount *big.Int       `json:"amount"`
}

// Event is an envelope for any ledger event.
type Event struct {
	Name string      `json:"event"`
	Seq  uint64      `json:"seq"`
	Data interface{} `json:"data"`
}
