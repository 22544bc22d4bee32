// Package deploy drives contract deployments: deploy, record, wait for
// confirmations and verify on the block explorer.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/hyblock/hyblock-contracts/internal/chain"
	"github.com/hyblock/hyblock-contracts/internal/circuitbreaker"
	"github.com/hyblock/hyblock-contracts/internal/storage"
	"github.com/hyblock/hyblock-contracts/internal/verify"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"go.uber.org/zap"
)

// Contract artifact names.
const (
	ContractHYBLOCKToken   = "HYBLOCKToken"
	ContractMultiBetERC    = "MultiBetERC"
	ContractMultiBetERCExp = "MultiBetERCExp"
)

// Deployer sends deployments from one account.
type Deployer interface {
	Address() common.Address
	ChainID() *big.Int
	Balance(ctx context.Context) (*big.Int, error)
	Deploy(ctx context.Context, art *chain.Artifact, args ...interface{}) (*chain.DeployResult, error)
	WaitConfirmations(ctx context.Context, receipt *ethtypes.Receipt, n uint64) error
	TokenDetails(ctx context.Context, address common.Address) (*types.TokenDetails, error)
}

// Artifacts loads compiled contracts.
type Artifacts interface {
	Load(name string) (*chain.Artifact, error)
	BuildInfo(art *chain.Artifact) (*chain.BuildInfo, error)
}

// Verifier submits sources to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, req *verify.Request) (*verify.Result, error)
}

// FundsGuard refuses deployments the deployer cannot afford.
type FundsGuard interface {
	Allow(ctx context.Context) error
	RecordDeployment(costWei *big.Int)
	Seed(costsWei []*big.Int) int
}

var (
	_ Deployer   = (*chain.Client)(nil)
	_ Artifacts  = (*chain.ArtifactStore)(nil)
	_ Verifier   = (*verify.Client)(nil)
	_ FundsGuard = (*circuitbreaker.BalanceCircuitBreaker)(nil)
)

// Runner deploys contracts and records each deployment.
type Runner struct {
	deployer      Deployer
	artifacts     Artifacts
	verifier      Verifier
	guard         FundsGuard
	storage       storage.Storage
	network       string
	localNetwork  bool
	skipVerify    bool
	confirmations uint64
	logger        *zap.Logger

	seedOnce sync.Once
}

// Config holds runner configuration.
type Config struct {
	Deployer  Deployer
	Artifacts Artifacts

	// Verifier may be nil, in which case verification is skipped.
	Verifier Verifier

	// Guard may be nil, in which case balances are not checked.
	Guard FundsGuard

	Storage storage.Storage

	Network string

	// LocalNetwork disables confirmation waits and verification.
	LocalNetwork bool

	// SkipVerify stops after the deployment is recorded on public networks too.
	SkipVerify bool

	// Confirmations to wait before submitting verification.
	Confirmations uint64

	Logger *zap.Logger
}

// TokenDeployment is a deployed token with the metadata read back from it.
type TokenDeployment struct {
	Deployment *types.Deployment
	Details    *types.TokenDetails
}

// NewRunner creates a deployment runner.
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Deployer == nil {
		return nil, errors.New("deployer cannot be nil")
	}

	if cfg.Artifacts == nil {
		return nil, errors.New("artifacts cannot be nil")
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Runner{
		deployer:      cfg.Deployer,
		artifacts:     cfg.Artifacts,
		verifier:      cfg.Verifier,
		guard:         cfg.Guard,
		storage:       cfg.Storage,
		network:       cfg.Network,
		localNetwork:  cfg.LocalNetwork,
		skipVerify:    cfg.SkipVerify,
		confirmations: cfg.Confirmations,
		logger:        cfg.Logger,
	}, nil
}

// DeployToken deploys HYBLOCKToken, verifies it on public networks and logs
// the token details.
func (r *Runner) DeployToken(ctx context.Context) (*TokenDeployment, error) {
	dep, err := r.deploy(ctx, ContractHYBLOCKToken, nil)
	if err != nil {
		return nil, err
	}

	details, err := r.deployer.TokenDetails(ctx, dep.Address)
	if err != nil {
		return &TokenDeployment{Deployment: dep}, fmt.Errorf("read token details: %w", err)
	}

	r.logger.Info("token-details",
		zap.String("name", details.Name),
		zap.String("symbol", details.Symbol),
		zap.Uint8("decimals", details.Decimals),
		zap.String("total-supply", units.FormatUnits(details.TotalSupply, int32(details.Decimals))+" "+details.Symbol))

	return &TokenDeployment{Deployment: dep, Details: details}, nil
}

// DeployMultiBet deploys the native-currency MultiBetERC contract.
func (r *Runner) DeployMultiBet(ctx context.Context) (*types.Deployment, error) {
	return r.deploy(ctx, ContractMultiBetERC, nil)
}

// DeployMultiBetExp deploys MultiBetERCExp bound to the given token.
func (r *Runner) DeployMultiBetExp(ctx context.Context, token common.Address) (*types.Deployment, error) {
	if token == (common.Address{}) {
		return nil, errors.New("token address cannot be empty")
	}
	return r.deploy(ctx, ContractMultiBetERCExp, []string{token.Hex()})
}

// Suite is the token and the MultiBetERCExp contract bound to it.
type Suite struct {
	Token    *TokenDeployment
	MultiBet *types.Deployment
}

// DeployAll deploys HYBLOCKToken and then MultiBetERCExp bound to it. The
// cost of the token deployment feeds the funds guard before the second one.
func (r *Runner) DeployAll(ctx context.Context) (*Suite, error) {
	token, err := r.DeployToken(ctx)
	if token == nil || token.Deployment == nil {
		return nil, err
	}

	suite := &Suite{Token: token}
	if err != nil {
		return suite, err
	}

	suite.MultiBet, err = r.DeployMultiBetExp(ctx, token.Deployment.Address)
	if err != nil {
		return suite, err
	}

	return suite, nil
}

// Verify submits source verification for an already deployed contract.
func (r *Runner) Verify(ctx context.Context, name string, address common.Address, rawArgs []string) (*verify.Result, error) {
	if r.verifier == nil {
		return nil, errors.New("verification is not configured (set ETHERSCAN_API_KEY)")
	}

	art, err := r.artifacts.Load(name)
	if err != nil {
		return nil, err
	}

	args, err := chain.ParseConstructorArgs(art, rawArgs)
	if err != nil {
		return nil, err
	}

	packed, err := art.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}

	return r.verify(ctx, art, address, packed)
}

func (r *Runner) deploy(ctx context.Context, name string, rawArgs []string) (*types.Deployment, error) {
	art, err := r.artifacts.Load(name)
	if err != nil {
		return nil, err
	}

	args, err := chain.ParseConstructorArgs(art, rawArgs)
	if err != nil {
		return nil, err
	}

	deployer := r.deployer.Address()
	balance, err := r.deployer.Balance(ctx)
	if err != nil {
		return nil, err
	}

	r.logger.Info("deploying-contract",
		zap.String("contract", name),
		zap.String("network", r.network),
		zap.String("deployer", deployer.Hex()),
		zap.String("balance", units.FormatEther(balance)+" ETH"))

	if r.guard != nil {
		r.seedGuard(ctx)

		err = r.guard.Allow(ctx)
		if err != nil {
			DeploymentFailuresTotal.WithLabelValues(name).Inc()
			return nil, err
		}
	}

	res, err := r.deployer.Deploy(ctx, art, args...)
	if err != nil {
		DeploymentFailuresTotal.WithLabelValues(name).Inc()
		return nil, err
	}
	DeploymentsTotal.WithLabelValues(name, r.network).Inc()

	dep := &types.Deployment{
		ID:              uuid.NewString(),
		Network:         r.network,
		ChainID:         r.deployer.ChainID(),
		Contract:        name,
		Address:         res.Address,
		TxHash:          res.Tx.Hash(),
		Deployer:        deployer,
		ConstructorArgs: rawArgs,
		DeployedAt:      time.Now().UTC(),
	}
	if res.Receipt != nil {
		dep.GasUsed = res.Receipt.GasUsed
		if res.Receipt.BlockNumber != nil {
			dep.BlockNumber = res.Receipt.BlockNumber.Uint64()
		}
		if res.Receipt.EffectiveGasPrice != nil {
			dep.Cost = new(big.Int).Mul(new(big.Int).SetUint64(res.Receipt.GasUsed), res.Receipt.EffectiveGasPrice)
		}
	}
	if r.guard != nil && dep.Cost != nil {
		r.guard.RecordDeployment(dep.Cost)
	}

	r.logger.Info("contract-deployed",
		zap.String("contract", name),
		zap.String("address", dep.Address.Hex()),
		zap.String("tx-hash", dep.TxHash.Hex()),
		zap.Uint64("gas-used", dep.GasUsed))

	err = r.storage.StoreDeployment(ctx, dep)
	if err != nil {
		return dep, fmt.Errorf("store deployment: %w", err)
	}

	if r.localNetwork {
		r.logger.Info("verification-skipped-local-network", zap.String("network", r.network))
		return dep, nil
	}

	if r.skipVerify {
		r.logger.Info("verification-skipped", zap.String("contract", name))
		return dep, nil
	}

	if r.verifier == nil {
		r.logger.Warn("verification-skipped-no-api-key", zap.String("contract", name))
		return dep, nil
	}

	r.logger.Info("waiting-for-confirmations",
		zap.String("tx-hash", dep.TxHash.Hex()),
		zap.Uint64("confirmations", r.confirmations))

	err = r.deployer.WaitConfirmations(ctx, res.Receipt, r.confirmations)
	if err != nil {
		return dep, err
	}

	_, err = r.verify(ctx, art, dep.Address, res.ConstructorArgs)
	if err != nil {
		return dep, err
	}

	dep.Verified = true
	err = r.storage.MarkVerified(ctx, dep.ID)
	if err != nil {
		return dep, fmt.Errorf("mark deployment verified: %w", err)
	}

	return dep, nil
}

// seedGuard loads the cost history of earlier deployments into the guard once
// per runner. A storage failure leaves the guard at its minimum threshold.
func (r *Runner) seedGuard(ctx context.Context) {
	r.seedOnce.Do(func() {
		recent, err := r.storage.RecentDeployments(ctx, r.network, r.deployer.Address(), circuitbreaker.CostWindow)
		if err != nil {
			r.logger.Warn("deployment-history-unavailable", zap.Error(err))
			return
		}

		// Newest first from storage; the guard wants oldest first.
		costs := make([]*big.Int, 0, len(recent))
		for i := len(recent) - 1; i >= 0; i-- {
			costs = append(costs, recent[i].Cost)
		}

		r.logger.Info("deployment-costs-seeded",
			zap.Int("history", len(recent)),
			zap.Int("accepted", r.guard.Seed(costs)))
	})
}

func (r *Runner) verify(ctx context.Context, art *chain.Artifact, address common.Address, constructorArgs []byte) (*verify.Result, error) {
	info, err := r.artifacts.BuildInfo(art)
	if err != nil {
		return nil, err
	}

	r.logger.Info("verifying-contract",
		zap.String("contract", art.FullyQualifiedName()),
		zap.String("address", address.Hex()),
		zap.String("compiler", info.SolcLongVersion))

	result, err := r.verifier.Verify(ctx, &verify.Request{
		ChainID:           r.deployer.ChainID(),
		Address:           address,
		ContractName:      art.FullyQualifiedName(),
		CompilerVersion:   info.SolcLongVersion,
		StandardJSONInput: info.Input,
		ConstructorArgs:   constructorArgs,
	})
	if err != nil {
		VerificationFailuresTotal.WithLabelValues(art.ContractName).Inc()
		return nil, fmt.Errorf("verify %s at %s: %w", art.ContractName, address.Hex(), err)
	}

	return result, nil
}
