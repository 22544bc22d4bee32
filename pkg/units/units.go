// Package units converts between human-readable token amounts and base units.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the decimal precision of ETH and of 18-decimal ERC20 tokens.
const EtherDecimals = 18

// maxUint256Digits is the number of decimal digits in 2^256-1.
const maxUint256Digits = 78

// ParseUnits converts a decimal string such as "100.5" into base units.
func ParseUnits(value string, decimals int32) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("amount cannot be empty")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}

	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q cannot be negative", value)
	}

	if -d.Exponent() > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", value, decimals)
	}

	if d.IsZero() {
		return new(big.Int), nil
	}

	// Bound the exponent before Shift materializes the integer.
	if int64(d.Exponent())+int64(decimals) > maxUint256Digits {
		return nil, fmt.Errorf("amount %q exceeds uint256", value)
	}

	amount := d.Shift(decimals).BigInt()
	if amount.BitLen() > 256 {
		return nil, fmt.Errorf("amount %q exceeds uint256", value)
	}
	return amount, nil
}

// ParseAllowance is ParseUnits that also accepts "unlimited" or "max" for
// the max-uint256 allowance.
func ParseAllowance(value string, decimals int32) (*big.Int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "unlimited", "max":
		return MaxUint256(), nil
	}
	return ParseUnits(value, decimals)
}

// FormatUnits renders base units as a decimal string with trailing zeros trimmed.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseEther parses an 18-decimal amount.
func ParseEther(value string) (*big.Int, error) {
	return ParseUnits(value, EtherDecimals)
}

// MustParseEther is ParseEther for constants and tests.
func MustParseEther(value string) *big.Int {
	amount, err := ParseEther(value)
	if err != nil {
		panic(err)
	}
	return amount
}

// FormatEther renders an 18-decimal amount.
func FormatEther(amount *big.Int) string {
	return FormatUnits(amount, EtherDecimals)
}

// MaxUint256 returns 2^256 - 1, the "unlimited" allowance value.
func MaxUint256() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}
