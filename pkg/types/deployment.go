package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment is a record of one contract deployment.
type Deployment struct {
	ID              string
	Network         string
	ChainID         *big.Int
	Contract        string
	Address         common.Address
	TxHash          common.Hash
	Deployer        common.Address
	BlockNumber     uint64
	GasUsed         uint64
	Cost            *big.Int // wei, gas used * effective gas price; nil when unknown
	ConstructorArgs []string
	Verified        bool
	DeployedAt      time.Time
}

// TokenDetails holds the ERC20 metadata read after deployment.
type TokenDetails struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
}
