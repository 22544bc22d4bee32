package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	hbtypes "github.com/hyblock/hyblock-contracts/pkg/types"
	"go.uber.org/zap"
)

// Client submits transactions for one signer on one network.
type Client struct {
	backend      Backend
	signer       *Signer
	chainID      *big.Int
	txTimeout    time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// Config holds client configuration.
type Config struct {
	Backend Backend
	Signer  *Signer
	Logger  *zap.Logger

	// TxTimeout bounds each wait for a receipt or confirmations.
	TxTimeout time.Duration

	// PollInterval is how often block height is polled while waiting for confirmations.
	PollInterval time.Duration
}

// NewClient creates a client and resolves the network chain id.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	chainID, err := cfg.Backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}

	txTimeout := cfg.TxTimeout
	if txTimeout <= 0 {
		txTimeout = 5 * time.Minute
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Client{
		backend:      cfg.Backend,
		signer:       cfg.Signer,
		chainID:      chainID,
		txTimeout:    txTimeout,
		pollInterval: pollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Backend returns the underlying RPC backend.
func (c *Client) Backend() Backend { return c.backend }

// ChainID returns the network chain id.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// Address returns the signer address, or the zero address for read-only clients.
func (c *Client) Address() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

// Balance returns the signer's native balance in wei.
func (c *Client) Balance(ctx context.Context) (*big.Int, error) {
	if c.signer == nil {
		return nil, errors.New("client has no signer")
	}

	balance, err := c.backend.BalanceAt(ctx, c.signer.Address(), nil)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.signer == nil {
		return nil, errors.New("client has no signer")
	}
	return c.signer.TransactOpts(ctx, c.chainID)
}

// DeployResult describes a mined contract creation.
type DeployResult struct {
	Address         common.Address
	Tx              *types.Transaction
	Receipt         *types.Receipt
	Contract        *bind.BoundContract
	ConstructorArgs []byte
}

// Deploy creates the artifact's contract with constructor args and waits
// until the creation is mined.
func (c *Client) Deploy(ctx context.Context, art *Artifact, args ...interface{}) (*DeployResult, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	packedArgs, err := art.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args for %s: %w", art.ContractName, err)
	}

	c.logger.Info("contract-deploying",
		zap.String("contract", art.ContractName),
		zap.String("deployer", c.signer.Address().Hex()),
		zap.Int("constructor-args", len(args)))

	address, tx, contract, err := bind.DeployContract(opts, art.ABI, art.Bytecode, c.backend, args...)
	if err != nil {
		TransactionsFailedTotal.WithLabelValues("deploy").Inc()
		return nil, fmt.Errorf("deploy %s: %w", art.ContractName, DecodeRevert(err, art.ABI))
	}
	TransactionsSentTotal.WithLabelValues("deploy").Inc()

	c.logger.Info("deployment-transaction-sent",
		zap.String("contract", art.ContractName),
		zap.String("tx-hash", tx.Hash().Hex()),
		zap.String("address", address.Hex()))

	receipt, err := c.WaitMined(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s deployment: %w", art.ContractName, err)
	}

	if receipt.ContractAddress != (common.Address{}) {
		address = receipt.ContractAddress
	}

	return &DeployResult{
		Address:         address,
		Tx:              tx,
		Receipt:         receipt,
		Contract:        contract,
		ConstructorArgs: packedArgs,
	}, nil
}

// WaitMined blocks until tx has a receipt, failing if it reverted.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	MineWaitDuration.Observe(time.Since(start).Seconds())

	if receipt.Status != types.ReceiptStatusSuccessful {
		TransactionsFailedTotal.WithLabelValues("reverted").Inc()
		c.logger.Error("transaction-reverted",
			zap.String("tx-hash", tx.Hash().Hex()),
			zap.Uint64("gas-used", receipt.GasUsed))
		return receipt, fmt.Errorf("%s: %w", tx.Hash().Hex(), hbtypes.ErrTxReverted)
	}

	c.logger.Debug("transaction-mined",
		zap.String("tx-hash", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas-used", receipt.GasUsed))

	return receipt, nil
}

// WaitConfirmations blocks until the receipt's block has n confirmations,
// counting the inclusion block as the first.
func (c *Client) WaitConfirmations(ctx context.Context, receipt *types.Receipt, n uint64) error {
	if n <= 1 || receipt == nil || receipt.BlockNumber == nil {
		return nil
	}

	target := receipt.BlockNumber.Uint64() + n - 1

	waitCtx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		head, err := c.backend.BlockNumber(waitCtx)
		if err != nil {
			c.logger.Warn("block-number-poll-failed", zap.Error(err))
		} else if head >= target {
			c.logger.Info("confirmations-reached",
				zap.String("tx-hash", receipt.TxHash.Hex()),
				zap.Uint64("confirmations", n),
				zap.Uint64("head", head))
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("wait for %d confirmations: %w", n, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// transact sends a contract call and waits for it to be mined.
func (c *Client) transact(
	ctx context.Context,
	contract *bind.BoundContract,
	abis []abi.ABI,
	method string,
	params ...interface{},
) (*types.Receipt, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		TransactionsFailedTotal.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("%s: %w", method, DecodeRevert(err, abis...))
	}
	TransactionsSentTotal.WithLabelValues(method).Inc()

	c.logger.Info("transaction-sent",
		zap.String("method", method),
		zap.String("tx-hash", tx.Hash().Hex()))

	return c.WaitMined(ctx, tx)
}

// call performs a read-only contract call.
func (c *Client) call(
	ctx context.Context,
	contract *bind.BoundContract,
	abis []abi.ABI,
	method string,
	params ...interface{},
) ([]interface{}, error) {
	var out []interface{}
	err := contract.Call(&bind.CallOpts{Context: ctx, From: c.Address()}, &out, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, DecodeRevert(err, abis...))
	}
	return out, nil
}

// EnsureCode returns ErrNotDeployed when address has no contract code.
func (c *Client) EnsureCode(ctx context.Context, address common.Address) error {
	code, err := c.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return fmt.Errorf("get code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%s: %w", address.Hex(), hbtypes.ErrNotDeployed)
	}
	return nil
}
