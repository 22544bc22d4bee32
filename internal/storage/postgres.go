package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

const createDeploymentsTable = `
	CREATE TABLE IF NOT EXISTS contract_deployments (
		id               UUID PRIMARY KEY,
		network          TEXT NOT NULL,
		chain_id         BIGINT NOT NULL,
		contract         TEXT NOT NULL,
		address          TEXT NOT NULL,
		tx_hash          TEXT NOT NULL,
		deployer         TEXT NOT NULL,
		block_number     BIGINT NOT NULL,
		gas_used         BIGINT NOT NULL,
		cost_wei         NUMERIC(78, 0),
		constructor_args TEXT[] NOT NULL DEFAULT '{}',
		verified         BOOLEAN NOT NULL DEFAULT FALSE,
		deployed_at      TIMESTAMPTZ NOT NULL
	)
`

// Tables created before deployment costs were recorded lack cost_wei.
const addCostColumn = `
	ALTER TABLE contract_deployments ADD COLUMN IF NOT EXISTS cost_wei NUMERIC(78, 0)
`

const createDeployerIndex = `
	CREATE INDEX IF NOT EXISTS contract_deployments_deployer_idx
		ON contract_deployments (network, deployer, deployed_at DESC)
`

// NewPostgresStorage connects to PostgreSQL and ensures the deployments table exists.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: cfg.Logger}

	err = storage.migrate(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return storage, nil
}

func (p *PostgresStorage) migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, createDeploymentsTable)
	if err != nil {
		return fmt.Errorf("create contract_deployments table: %w", err)
	}

	_, err = p.db.ExecContext(ctx, addCostColumn)
	if err != nil {
		return fmt.Errorf("add cost_wei column: %w", err)
	}

	_, err = p.db.ExecContext(ctx, createDeployerIndex)
	if err != nil {
		return fmt.Errorf("create deployer index: %w", err)
	}
	return nil
}

// StoreDeployment inserts a deployment record.
func (p *PostgresStorage) StoreDeployment(ctx context.Context, d *types.Deployment) error {
	var chainID int64
	if d.ChainID != nil {
		chainID = d.ChainID.Int64()
	}

	args := d.ConstructorArgs
	if args == nil {
		args = []string{}
	}

	query := `
		INSERT INTO contract_deployments (
			id, network, chain_id, contract, address, tx_hash, deployer,
			block_number, gas_used, cost_wei, constructor_args, verified, deployed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		d.ID,
		d.Network,
		chainID,
		d.Contract,
		d.Address.Hex(),
		d.TxHash.Hex(),
		d.Deployer.Hex(),
		d.BlockNumber,
		d.GasUsed,
		costValue(d.Cost),
		pq.Array(args),
		d.Verified,
		d.DeployedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}

	p.logger.Debug("deployment-stored",
		zap.String("deployment-id", d.ID),
		zap.String("contract", d.Contract),
		zap.String("address", d.Address.Hex()))

	return nil
}

// MarkVerified sets verified on a stored deployment.
func (p *PostgresStorage) MarkVerified(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE contract_deployments SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deployment %s not found", id)
	}

	return nil
}

// RecentDeployments returns up to limit deployments sent by deployer on
// network, newest first.
func (p *PostgresStorage) RecentDeployments(ctx context.Context, network string, deployer common.Address, limit int) ([]*types.Deployment, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, chain_id, contract, address, tx_hash, block_number, gas_used,
			cost_wei::TEXT, constructor_args, verified, deployed_at
		FROM contract_deployments
		WHERE network = $1 AND deployer = $2
		ORDER BY deployed_at DESC
		LIMIT $3
	`

	rows, err := p.db.QueryContext(ctx, query, network, deployer.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var out []*types.Deployment
	for rows.Next() {
		var (
			d        = &types.Deployment{Network: network, Deployer: deployer}
			chainID  int64
			address  string
			txHash   string
			cost     sql.NullString
			ctorArgs []string
		)

		err = rows.Scan(&d.ID, &chainID, &d.Contract, &address, &txHash, &d.BlockNumber,
			&d.GasUsed, &cost, pq.Array(&ctorArgs), &d.Verified, &d.DeployedAt)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}

		d.ChainID = big.NewInt(chainID)
		d.Address = common.HexToAddress(address)
		d.TxHash = common.HexToHash(txHash)
		d.ConstructorArgs = ctorArgs
		if cost.Valid {
			c, ok := new(big.Int).SetString(cost.String, 10)
			if !ok {
				return nil, fmt.Errorf("deployment %s: invalid cost_wei %q", d.ID, cost.String)
			}
			d.Cost = c
		}

		out = append(out, d)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}

	return out, nil
}

func costValue(cost *big.Int) interface{} {
	if cost == nil {
		return nil
	}
	return cost.String()
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
