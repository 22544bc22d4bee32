package units

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int32
		want     string
		wantErr  bool
	}{
		{name: "whole-ether", value: "100", decimals: 18, want: "100000000000000000000"},
		{name: "fractional-ether", value: "0.5", decimals: 18, want: "500000000000000000"},
		{name: "usdc-six-decimals", value: "10.25", decimals: 6, want: "10250000"},
		{name: "zero", value: "0", decimals: 18, want: "0"},
		{name: "surrounding-whitespace", value: " 1 ", decimals: 18, want: "1000000000000000000"},
		{name: "too-precise", value: "0.0000001", decimals: 6, wantErr: true},
		{name: "negative", value: "-1", decimals: 18, wantErr: true},
		{name: "garbage", value: "abc", decimals: 18, wantErr: true},
		{name: "empty", value: "", decimals: 18, wantErr: true},
		{name: "exponent-notation", value: "1e3", decimals: 6, want: "1000000000"},
		{name: "zero-huge-exponent", value: "0e100", decimals: 18, want: "0"},
		{name: "max-uint256", value: "115792089237316195423570985008687907853269984665640564039457584007913129639935", decimals: 0,
			want: "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
		{name: "max-uint256-plus-one", value: "115792089237316195423570985008687907853269984665640564039457584007913129639936", decimals: 0, wantErr: true},
		{name: "above-uint256", value: "1e60", decimals: 18, wantErr: true},
		{name: "far-above-uint256", value: "1e100", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.value, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseUnits_HugeExponentRejectedQuickly(t *testing.T) {
	start := time.Now()
	_, err := ParseUnits("1e20000000", 18)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds uint256")
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseAllowance(t *testing.T) {
	for _, raw := range []string{"unlimited", "max", " MAX "} {
		amount, err := ParseAllowance(raw, 18)
		require.NoError(t, err, raw)
		assert.Equal(t, MaxUint256(), amount)
	}

	amount, err := ParseAllowance("2.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2_500_000), amount)

	_, err = ParseAllowance("1e60", 18)
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1000000", FormatEther(MustParseEther("1000000")))
	assert.Equal(t, "0.5", FormatEther(big.NewInt(500000000000000000)))
	assert.Equal(t, "10.25", FormatUnits(big.NewInt(10250000), 6))
	assert.Equal(t, "0", FormatEther(nil))
}

func TestMaxUint256(t *testing.T) {
	assert.Equal(t, 256, MaxUint256().BitLen())
	assert.Equal(t,
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
		MaxUint256().String())
}
