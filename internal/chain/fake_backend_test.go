package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// fakeBackend implements the calls the tests exercise. Anything else hits the
// nil embedded interface and panics, which flags an unexpected RPC.
type fakeBackend struct {
	Backend

	mu       sync.Mutex
	chainID  *big.Int
	head     uint64
	headStep uint64
	balance  *big.Int
	code     map[common.Address][]byte
	receipts map[common.Hash]*types.Receipt
	calls    map[common.Address]callHandler

	// Transaction submission. estimateErrs is keyed by method selector, or
	// deploySelector for contract creation. onSend may adjust the receipt.
	nonce        uint64
	sent         []*types.Transaction
	estimateErrs map[string]error
	onSend       func(tx *types.Transaction, receipt *types.Receipt)
}

const deploySelector = "deploy"

type callHandler func(method string, args []interface{}) ([]byte, error)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(31337),
		balance:  big.NewInt(0),
		code:     make(map[common.Address][]byte),
		receipts: make(map[common.Hash]*types.Receipt),
		calls:    make(map[common.Address]callHandler),

		estimateErrs: make(map[string]error),
	}
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head += f.headStep
	return f.head, nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeBackend) CodeAt(ctx context.Context, account common.Address, block *big.Int) ([]byte, error) {
	return f.code[account], nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	handler, ok := f.calls[*msg.To]
	if !ok {
		return nil, errors.New("no contract at address")
	}
	return handler(string(msg.Data[:4]), nil)
}

// HeaderByNumber returns a pre-London header, so bind builds legacy transactions.
func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(f.head)}, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return f.code[account], nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	key := deploySelector
	if msg.To != nil && len(msg.Data) >= 4 {
		key = string(msg.Data[:4])
	}
	if err, ok := f.estimateErrs[key]; ok {
		return 0, err
	}
	return 100_000, nil
}

// SendTransaction mines tx immediately in the next block.
func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(f.chainID), tx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, tx)
	f.nonce++
	f.head++

	receipt := &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).SetUint64(f.head),
		GasUsed:           tx.Gas() / 2,
		EffectiveGasPrice: tx.GasPrice(),
	}
	if tx.To() == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
	}
	if f.onSend != nil {
		f.onSend(tx, receipt)
	}
	f.receipts[tx.Hash()] = receipt
	return nil
}

func (f *fakeBackend) sentTxs() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

func (f *fakeBackend) Close() {}

// abiResponder answers eth_call by selector with packed outputs.
func abiResponder(contractABI abi.ABI, results map[string][]interface{}) callHandler {
	bySelector := make(map[string]abi.Method)
	for _, method := range contractABI.Methods {
		bySelector[string(method.ID)] = method
	}

	return func(selector string, _ []interface{}) ([]byte, error) {
		method, ok := bySelector[selector]
		if !ok {
			return nil, errors.New("unknown selector")
		}
		values, ok := results[method.Name]
		if !ok {
			return nil, errors.New("no canned result for " + method.Name)
		}
		return method.Outputs.Pack(values...)
	}
}

// encodeRevert encodes a custom error or Error(string) revert as geth returns it.
func encodeRevert(id []byte, args []byte) string {
	return hexutil.Encode(append(append([]byte{}, id[:4]...), args...))
}

// revertRPCError mimics the JSON-RPC error geth returns for a reverted call.
type revertRPCError struct {
	data string
}

func (e *revertRPCError) Error() string          { return "execution reverted" }
func (e *revertRPCError) ErrorCode() int         { return 3 }
func (e *revertRPCError) ErrorData() interface{} { return e.data }
