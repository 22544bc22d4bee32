// Package storage records contract deployments.
package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/types"
)

// Storage is the interface for storing deployment records.
type Storage interface {
	// StoreDeployment stores a deployment record.
	StoreDeployment(ctx context.Context, d *types.Deployment) error

	// MarkVerified flags a stored deployment as source-verified.
	MarkVerified(ctx context.Context, id string) error

	// RecentDeployments returns up to limit deployments sent by deployer on
	// network, newest first.
	RecentDeployments(ctx context.Context, network string, deployer common.Address, limit int) ([]*types.Deployment, error)

	// Close closes the storage connection.
	Close() error
}
