package chain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ParseConstructorArgs converts command-line strings into values matching
// the artifact's constructor inputs. Supported types are address, bool,
// string, bytes32 and the integer types.
func ParseConstructorArgs(art *Artifact, raw []string) ([]interface{}, error) {
	inputs := art.ABI.Constructor.Inputs
	if len(raw) != len(inputs) {
		return nil, fmt.Errorf("%s constructor takes %d args, got %d", art.ContractName, len(inputs), len(raw))
	}

	values := make([]interface{}, 0, len(raw))
	for i, input := range inputs {
		value, err := parseArg(input.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d (%s %s): %w", i, input.Type.String(), input.Name, err)
		}
		values = append(values, value)
	}

	return values, nil
}

func parseArg(t abi.Type, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)

	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.BoolTy:
		return strconv.ParseBool(raw)
	case abi.StringTy:
		return raw, nil
	case abi.FixedBytesTy:
		if t.Size != 32 {
			return nil, fmt.Errorf("unsupported type %s", t.String())
		}
		return common.HexToHash(raw), nil
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %q for %s", raw, t.String())
		}
		return fitInteger(t, n)
	default:
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}
}

// fitInteger returns n in the Go type go-ethereum packs for t.
func fitInteger(t abi.Type, n *big.Int) (interface{}, error) {
	if t.Size > 64 {
		if t.T == abi.UintTy {
			if n.BitLen() > t.Size {
				return nil, fmt.Errorf("%s overflows %s", n, t.String())
			}
			return n, nil
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
		return n, nil
	}

	if t.T == abi.UintTy {
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
		v := n.Uint64()
		switch t.Size {
		case 8:
			return uint8(v), nil
		case 16:
			return uint16(v), nil
		case 32:
			return uint32(v), nil
		case 64:
			return v, nil
		}
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}

	if !n.IsInt64() {
		return nil, fmt.Errorf("%s overflows %s", n, t.String())
	}
	v := n.Int64()
	limit := int64(1) << (t.Size - 1)
	if v < -limit || v >= limit {
		return nil, fmt.Errorf("%s overflows %s", n, t.String())
	}
	switch t.Size {
	case 8:
		return int8(v), nil
	case 16:
		return int16(v), nil
	case 32:
		return int32(v), nil
	case 64:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t.String())
}
