package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	hbtypes "github.com/hyblock/hyblock-contracts/pkg/types"
)

// MultiBet is a deployed MultiBetERC / MultiBetERCExp contract.
type MultiBet struct {
	client   *Client
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// MultiBet binds the betting contract at address using the artifact's ABI.
func (c *Client) MultiBet(address common.Address, art *Artifact) *MultiBet {
	return &MultiBet{
		client:   c,
		address:  address,
		abi:      art.ABI,
		contract: bind.NewBoundContract(address, art.ABI, c.backend, c.backend, c.backend),
	}
}

// Address returns the contract address.
func (m *MultiBet) Address() common.Address { return m.address }

// abis lists the ABIs used to decode reverts: the contract's own errors and
// the ERC20 errors bubbled up from transferFrom.
func (m *MultiBet) abis() []abi.ABI {
	return []abi.ABI{m.abi, erc20ABI}
}

// Owner returns the contract owner.
func (m *MultiBet) Owner(ctx context.Context) (common.Address, error) {
	return m.callAddress(ctx, "owner")
}

// HyblockToken returns the wagered token address.
func (m *MultiBet) HyblockToken(ctx context.Context) (common.Address, error) {
	return m.callAddress(ctx, "hyblockToken")
}

// CreateBet opens a bet and returns its id from the BetCreated log.
func (m *MultiBet) CreateBet(ctx context.Context, topic string, options []string) (uint64, *types.Receipt, error) {
	receipt, err := m.client.transact(ctx, m.contract, m.abis(), "createBet", topic, options)
	if err != nil {
		return 0, receipt, err
	}

	ev, err := m.ParseBetCreated(receipt)
	if err != nil {
		return 0, receipt, err
	}

	return ev.BetID, receipt, nil
}

// PlaceBet wagers amount on option. The signer must have approved the contract.
func (m *MultiBet) PlaceBet(ctx context.Context, betID uint64, option string, amount *big.Int) (*types.Receipt, error) {
	return m.client.transact(ctx, m.contract, m.abis(), "placeBet", new(big.Int).SetUint64(betID), option, amount)
}

// ResolveBet declares the winning option.
func (m *MultiBet) ResolveBet(ctx context.Context, betID uint64, winningOption string) (*types.Receipt, error) {
	return m.client.transact(ctx, m.contract, m.abis(), "resolveBet", new(big.Int).SetUint64(betID), winningOption)
}

// GetBet reads the bet view. Works with both flat named outputs and a single
// struct output.
func (m *MultiBet) GetBet(ctx context.Context, betID uint64) (*hbtypes.BetInfo, error) {
	out, err := m.client.call(ctx, m.contract, m.abis(), "getBet", new(big.Int).SetUint64(betID))
	if err != nil {
		return nil, err
	}

	fields := namedOutputs(m.abi.Methods["getBet"], out)

	info := &hbtypes.BetInfo{ID: betID}
	if v, ok := fields["topic"].(string); ok {
		info.Topic = v
	}
	if v, ok := fields["options"].([]string); ok {
		info.Options = v
	}
	if v, ok := fields["isResolved"].(bool); ok {
		info.IsResolved = v
	}
	if v, ok := fields["winningOption"].(string); ok {
		info.WinningOption = v
	}
	if v, ok := fields["totalPool"].(*big.Int); ok {
		info.TotalPool = v
	}

	return info, nil
}

// GetBetOptionInfos returns option labels and their wager totals.
func (m *MultiBet) GetBetOptionInfos(ctx context.Context, betID uint64) ([]string, []*big.Int, error) {
	out, err := m.client.call(ctx, m.contract, m.abis(), "getBetOptionInfos", new(big.Int).SetUint64(betID))
	if err != nil {
		return nil, nil, err
	}

	if len(out) != 2 {
		return nil, nil, fmt.Errorf("getBetOptionInfos: expected 2 outputs, got %d", len(out))
	}

	options, ok := out[0].([]string)
	if !ok {
		return nil, nil, fmt.Errorf("getBetOptionInfos: unexpected options type %T", out[0])
	}

	amounts, ok := out[1].([]*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("getBetOptionInfos: unexpected amounts type %T", out[1])
	}

	return options, amounts, nil
}

// GetUserBet returns the option indexes and amounts user staked.
func (m *MultiBet) GetUserBet(ctx context.Context, betID uint64, user common.Address) (*hbtypes.UserBet, error) {
	out, err := m.client.call(ctx, m.contract, m.abis(), "getUserBet", new(big.Int).SetUint64(betID), user)
	if err != nil {
		return nil, err
	}

	if len(out) != 2 {
		return nil, fmt.Errorf("getUserBet: expected 2 outputs, got %d", len(out))
	}

	indexes, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getUserBet: unexpected indexes type %T", out[0])
	}

	amounts, ok := out[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getUserBet: unexpected amounts type %T", out[1])
	}

	result := &hbtypes.UserBet{
		OptionIndexes: make([]uint64, 0, len(indexes)),
		Amounts:       amounts,
	}
	for _, idx := range indexes {
		result.OptionIndexes = append(result.OptionIndexes, idx.Uint64())
	}

	return result, nil
}

// ParseBetCreated finds the BetCreated log in a receipt.
func (m *MultiBet) ParseBetCreated(receipt *types.Receipt) (*hbtypes.BetCreatedEvent, error) {
	fields, err := m.findEvent(receipt, hbtypes.EventBetCreated)
	if err != nil {
		return nil, err
	}

	id, err := toUint64(fields["betId"])
	if err != nil {
		return nil, fmt.Errorf("BetCreated betId: %w", err)
	}

	ev := &hbtypes.BetCreatedEvent{BetID: id}
	if v, ok := fields["topic"].(string); ok {
		ev.Topic = v
	}
	if v, ok := fields["options"].([]string); ok {
		ev.Options = v
	}
	return ev, nil
}

// ParseBetPlaced finds the BetPlaced log in a receipt.
func (m *MultiBet) ParseBetPlaced(receipt *types.Receipt) (*hbtypes.BetPlacedEvent, error) {
	fields, err := m.findEvent(receipt, hbtypes.EventBetPlaced)
	if err != nil {
		return nil, err
	}

	id, err := toUint64(fields["betId"])
	if err != nil {
		return nil, fmt.Errorf("BetPlaced betId: %w", err)
	}

	ev := &hbtypes.BetPlacedEvent{BetID: id}
	if v, ok := fields["user"].(common.Address); ok {
		ev.User = v
	}
	if v, ok := fields["amount"].(*big.Int); ok {
		ev.Amount = v
	}
	if v, ok := fields["option"].(string); ok {
		ev.Option = v
	}
	return ev, nil
}

func (m *MultiBet) findEvent(receipt *types.Receipt, name string) (map[string]interface{}, error) {
	event, ok := m.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("event %s not in ABI", name)
	}

	if receipt == nil {
		return nil, errors.New("receipt cannot be nil")
	}

	for _, log := range receipt.Logs {
		if log.Address != m.address || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		fields := make(map[string]interface{})
		if len(log.Data) > 0 {
			err := m.abi.UnpackIntoMap(fields, name, log.Data)
			if err != nil {
				return nil, fmt.Errorf("unpack %s: %w", name, err)
			}
		}

		var indexed abi.Arguments
		for _, arg := range event.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:])
		if err != nil {
			return nil, fmt.Errorf("parse %s topics: %w", name, err)
		}

		return fields, nil
	}

	return nil, fmt.Errorf("%s log not found in tx %s", name, receipt.TxHash.Hex())
}

func (m *MultiBet) callAddress(ctx context.Context, method string) (common.Address, error) {
	out, err := m.client.call(ctx, m.contract, m.abis(), method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected type %T", method, out[0])
	}
	return addr, nil
}

// namedOutputs maps output names to values. A single tuple output is
// flattened into its fields.
func namedOutputs(method abi.Method, values []interface{}) map[string]interface{} {
	fields := make(map[string]interface{})

	if len(method.Outputs) == 1 && method.Outputs[0].Type.T == abi.TupleTy && len(values) == 1 {
		v := reflect.Indirect(reflect.ValueOf(values[0]))
		if v.Kind() == reflect.Struct {
			for i, name := range method.Outputs[0].Type.TupleRawNames {
				if i < v.NumField() {
					fields[name] = v.Field(i).Interface()
				}
			}
			return fields
		}
	}

	for i, arg := range method.Outputs {
		if i < len(values) {
			fields[arg.Name] = values[i]
		}
	}
	return fields
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case *big.Int:
		if !n.IsUint64() {
			return 0, fmt.Errorf("value %s overflows uint64", n)
		}
		return n.Uint64(), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
