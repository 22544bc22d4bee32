package chain

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hyblock/hyblock-contracts/pkg/types"
)

//nolint:gochecknoglobals // selectors
var (
	errorStringSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	panicSelector       = crypto.Keccak256([]byte("Panic(uint256)"))[:4]
)

// DecodeRevert converts an RPC error carrying revert data into a
// *types.RevertError or *types.CustomError, trying each ABI for custom errors.
// Errors without revert data are returned unchanged.
func DecodeRevert(err error, abis ...abi.ABI) error {
	if err == nil {
		return nil
	}

	data, ok := revertData(err)
	if !ok || len(data) < 4 {
		return err
	}

	decoded := decodeRevertData(data, abis...)
	if decoded == nil {
		return err
	}
	return decoded
}

func revertData(err error) ([]byte, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}

	switch v := dataErr.ErrorData().(type) {
	case string:
		data, decodeErr := hexutil.Decode(v)
		if decodeErr != nil {
			return nil, false
		}
		return data, true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

func decodeRevertData(data []byte, abis ...abi.ABI) error {
	selector := data[:4]

	if bytes.Equal(selector, errorStringSelector) {
		reason, err := abi.UnpackRevert(data)
		if err != nil {
			return nil
		}
		return &types.RevertError{Reason: reason}
	}

	if bytes.Equal(selector, panicSelector) && len(data) >= 36 {
		code := new(big.Int).SetBytes(data[4:36])
		return &types.RevertError{Reason: fmt.Sprintf("panic code 0x%x", code)}
	}

	var id [4]byte
	copy(id[:], selector)

	for _, contractABI := range abis {
		abiErr, err := contractABI.ErrorByID(id)
		if err != nil {
			continue
		}

		unpacked, err := abiErr.Unpack(data)
		if err != nil {
			return &types.CustomError{Name: abiErr.Name}
		}

		args, _ := unpacked.([]interface{})
		return &types.CustomError{Name: abiErr.Name, Args: args}
	}

	return nil
}
