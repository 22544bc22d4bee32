package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	hbtypes "github.com/hyblock/hyblock-contracts/pkg/types"
)

// ERC20ABI is the EIP-20 interface plus the OpenZeppelin v5 custom errors.
const ERC20ABI = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"error","name":"ERC20InsufficientBalance","inputs":[{"name":"sender","type":"address"},{"name":"balance","type":"uint256"},{"name":"needed","type":"uint256"}]},
	{"type":"error","name":"ERC20InsufficientAllowance","inputs":[{"name":"spender","type":"address"},{"name":"allowance","type":"uint256"},{"name":"needed","type":"uint256"}]},
	{"type":"error","name":"ERC20InvalidApprover","inputs":[{"name":"approver","type":"address"}]},
	{"type":"error","name":"ERC20InvalidReceiver","inputs":[{"name":"receiver","type":"address"}]},
	{"type":"error","name":"ERC20InvalidSender","inputs":[{"name":"sender","type":"address"}]},
	{"type":"error","name":"ERC20InvalidSpender","inputs":[{"name":"spender","type":"address"}]}
]`

//nolint:gochecknoglobals // parsed once
var erc20ABI = mustParseABI(ERC20ABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse ABI: %v", err))
	}
	return parsed
}

// Token is a deployed ERC20.
type Token struct {
	client   *Client
	address  common.Address
	contract *bind.BoundContract
}

// Token binds the ERC20 at address.
func (c *Client) Token(address common.Address) *Token {
	return &Token{
		client:   c,
		address:  address,
		contract: bind.NewBoundContract(address, erc20ABI, c.backend, c.backend, c.backend),
	}
}

// Address returns the token address.
func (t *Token) Address() common.Address { return t.address }

// Details reads name, symbol, decimals and totalSupply.
func (t *Token) Details(ctx context.Context) (*hbtypes.TokenDetails, error) {
	name, err := t.callString(ctx, "name")
	if err != nil {
		return nil, err
	}

	symbol, err := t.callString(ctx, "symbol")
	if err != nil {
		return nil, err
	}

	out, err := t.client.call(ctx, t.contract, []abi.ABI{erc20ABI}, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("decimals: unexpected type %T", out[0])
	}

	totalSupply, err := t.callBig(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}

	return &hbtypes.TokenDetails{
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: totalSupply,
	}, nil
}

// BalanceOf returns account's token balance.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callBig(ctx, "balanceOf", account)
}

// Allowance returns spender's remaining allowance over owner's tokens.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.callBig(ctx, "allowance", owner, spender)
}

// Approve lets spender transfer up to amount of the signer's tokens.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.client.transact(ctx, t.contract, []abi.ABI{erc20ABI}, "approve", spender, amount)
}

// Transfer sends amount tokens from the signer to to.
func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.client.transact(ctx, t.contract, []abi.ABI{erc20ABI}, "transfer", to, amount)
}

func (t *Token) callString(ctx context.Context, method string) (string, error) {
	out, err := t.client.call(ctx, t.contract, []abi.ABI{erc20ABI}, method)
	if err != nil {
		return "", err
	}
	value, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return value, nil
}

func (t *Token) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	out, err := t.client.call(ctx, t.contract, []abi.ABI{erc20ABI}, method, params...)
	if err != nil {
		return nil, err
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return value, nil
}

// TokenDetails reads ERC20 metadata for the token at address.
func (c *Client) TokenDetails(ctx context.Context, address common.Address) (*hbtypes.TokenDetails, error) {
	return c.Token(address).Details(ctx)
}
