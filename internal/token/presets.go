package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"go.uber.org/zap"
)

// HYBLOCK token metadata.
const (
	HYBLOCKName     = "HYBLOCK Token"
	HYBLOCKSymbol   = "HYB"
	HYBLOCKDecimals = 18
)

// HYBLOCKInitialSupply is minted to the deployer at construction.
func HYBLOCKInitialSupply() *big.Int {
	return units.MustParseEther("1000000000")
}

// NewHYBLOCKToken builds the HYBLOCKToken ledger, which takes no constructor arguments.
func NewHYBLOCKToken(address, deployer common.Address, logger *zap.Logger) (*Ledger, error) {
	return New(&Config{
		Address:       address,
		Name:          HYBLOCKName,
		Symbol:        HYBLOCKSymbol,
		Decimals:      HYBLOCKDecimals,
		Deployer:      deployer,
		InitialSupply: HYBLOCKInitialSupply(),
		Logger:        logger,
	})
}

// NewTestToken builds the TestToken ledger used by the betting fixtures.
func NewTestToken(address, deployer common.Address, initialSupply *big.Int, logger *zap.Logger) (*Ledger, error) {
	return New(&Config{
		Address:       address,
		Name:          "TestToken",
		Symbol:        "TST",
		Decimals:      18,
		Deployer:      deployer,
		InitialSupply: initialSupply,
		Logger:        logger,
	})
}
