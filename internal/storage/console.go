package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"go.uber.org/zap"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return NewConsoleStorageWithWriter(os.Stdout, logger)
}

// NewConsoleStorageWithWriter creates a console storage writing to out.
func NewConsoleStorageWithWriter(out io.Writer, logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		out:    out,
		logger: logger,
	}
}

// StoreDeployment pretty-prints a deployment.
func (c *ConsoleStorage) StoreDeployment(ctx context.Context, d *types.Deployment) error {
	chainID := "?"
	if d.ChainID != nil {
		chainID = d.ChainID.String()
	}

	fmt.Fprintln(c.out, "\n"+rule)
	fmt.Fprintf(c.out, "CONTRACT DEPLOYED: %s\n", d.Contract)
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "Address:  %s\n", d.Address.Hex())
	fmt.Fprintf(c.out, "Network:  %s (chain %s)\n", d.Network, chainID)
	fmt.Fprintf(c.out, "Deployer: %s\n", d.Deployer.Hex())
	fmt.Fprintf(c.out, "Tx:       %s\n", d.TxHash.Hex())
	fmt.Fprintf(c.out, "Block:    %d (gas used %d)\n", d.BlockNumber, d.GasUsed)
	if d.Cost != nil {
		fmt.Fprintf(c.out, "Cost:     %s ETH\n", units.FormatEther(d.Cost))
	}
	if len(d.ConstructorArgs) > 0 {
		fmt.Fprintf(c.out, "Args:     %s\n", strings.Join(d.ConstructorArgs, ", "))
	}
	fmt.Fprintf(c.out, "Time:     %s\n", d.DeployedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(c.out, rule)

	return nil
}

// MarkVerified prints the verification notice.
func (c *ConsoleStorage) MarkVerified(ctx context.Context, id string) error {
	fmt.Fprintf(c.out, "Deployment %s verified on block explorer\n", id)
	return nil
}

// RecentDeployments returns nothing: console storage keeps no history.
func (c *ConsoleStorage) RecentDeployments(ctx context.Context, network string, deployer common.Address, limit int) ([]*types.Deployment, error) {
	return nil, nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
