// Package wallet reads account balances and tracks them as Prometheus gauges.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Balances holds an account's native and token holdings.
type Balances struct {
	Native    *big.Int // in wei
	Token     *big.Int // in token base units
	Allowance *big.Int // token allowance granted to the tracked spender
}

// Fetcher returns balances for an address.
type Fetcher interface {
	GetBalances(ctx context.Context, address common.Address) (*Balances, error)
}

// NativeReader reads native currency balances. *ethclient.Client satisfies it.
type NativeReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// TokenReader reads ERC20 balances and allowances.
type TokenReader interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
}

// Client fetches balances from a JSON-RPC network.
type Client struct {
	native  NativeReader
	token   TokenReader
	spender common.Address
	logger  *zap.Logger
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	Native NativeReader

	// Token is optional. When nil only native balances are read.
	Token TokenReader

	// Spender is the address whose token allowance is reported.
	Spender common.Address

	Logger *zap.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a new wallet client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Native == nil {
		return nil, errors.New("native reader cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Client{
		native:  cfg.Native,
		token:   cfg.Token,
		spender: cfg.Spender,
		logger:  cfg.Logger,
	}, nil
}

// GetBalances fetches native balance and, when a token is configured, token
// balance and allowance.
func (c *Client) GetBalances(ctx context.Context, address common.Address) (*Balances, error) {
	native, err := c.native.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}

	balances := &Balances{
		Native:    native,
		Token:     new(big.Int),
		Allowance: new(big.Int),
	}

	if c.token == nil {
		return balances, nil
	}

	balances.Token, err = c.token.BalanceOf(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get token balance: %w", err)
	}

	if c.spender != (common.Address{}) {
		balances.Allowance, err = c.token.Allowance(ctx, address, c.spender)
		if err != nil {
			return nil, fmt.Errorf("get token allowance: %w", err)
		}
	}

	c.logger.Debug("balances-fetched",
		zap.String("address", address.Hex()),
		zap.String("native", balances.Native.String()),
		zap.String("token", balances.Token.String()))

	return balances, nil
}
