package cmd

import (
	"math/big"
	"testing"

	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(t *testing.T, path ...string) *cobra.Command {
	t.Helper()
	c, _, err := rootCmd.Find(path)
	require.NoError(t, err)
	return c
}

func TestCommandTree(t *testing.T) {
	tests := []struct {
		path []string
		use  string
	}{
		{[]string{"deploy-token"}, "deploy-token"},
		{[]string{"deploy-multibet"}, "deploy-multibet"},
		{[]string{"deploy-all"}, "deploy-all"},
		{[]string{"verify"}, "verify <contract> <address> [constructor-args...]"},
		{[]string{"token-info"}, "token-info [address]"},
		{[]string{"balance"}, "balance [address]"},
		{[]string{"approve"}, "approve <spender> <amount>"},
		{[]string{"bet", "create"}, "create <topic> <option> <option> [option...]"},
		{[]string{"bet", "place"}, "place <bet-id> <option> <amount>"},
		{[]string{"bet", "resolve"}, "resolve <bet-id> <winning-option>"},
		{[]string{"bet", "show"}, "show <bet-id>"},
		{[]string{"bet", "options"}, "options <bet-id>"},
		{[]string{"bet", "user"}, "user <bet-id> [address]"},
		{[]string{"devnet"}, "devnet"},
		{[]string{"events"}, "events"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			c := findCommand(t, tt.path...)
			assert.Equal(t, tt.use, c.Use)
			assert.NotNil(t, c.RunE)
		})
	}
}

func TestCommandFlags(t *testing.T) {
	exp := findCommand(t, "deploy-multibet").Flags().Lookup("exp")
	require.NotNil(t, exp)
	assert.Equal(t, "false", exp.DefValue)

	token := findCommand(t, "deploy-multibet").Flags().Lookup("token")
	require.NotNil(t, token)
	assert.Equal(t, "t", token.Shorthand)

	for _, name := range []string{"deploy-token", "deploy-multibet", "deploy-all"} {
		noVerify := findCommand(t, name).Flags().Lookup("no-verify")
		require.NotNil(t, noVerify, name)
		assert.Equal(t, "false", noVerify.DefValue)
	}
	assert.Nil(t, findCommand(t, "verify").Flags().Lookup("no-verify"))

	contract := findCommand(t, "bet", "place").InheritedFlags().Lookup("contract")
	require.NotNil(t, contract)

	url := findCommand(t, "events").Flags().Lookup("url")
	require.NotNil(t, url)
	assert.Equal(t, "ws://127.0.0.1:8080/ws/events", url.DefValue)
}

func TestCommandArgs(t *testing.T) {
	assert.Error(t, findCommand(t, "bet", "create").Args(nil, []string{"topic", "only-one"}))
	assert.NoError(t, findCommand(t, "bet", "create").Args(nil, []string{"topic", "A", "B"}))
	assert.Error(t, findCommand(t, "verify").Args(nil, []string{"HYBLOCKToken"}))
	assert.Error(t, findCommand(t, "approve").Args(nil, []string{"0xabc"}))
}

func TestParseTokenAmount(t *testing.T) {
	amount, err := parseTokenAmount("unlimited", 18)
	require.NoError(t, err)
	assert.Equal(t, units.MaxUint256(), amount)

	amount, err = parseTokenAmount("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), amount)

	_, err = parseTokenAmount("-1", 18)
	assert.Error(t, err)
}

func TestParseBetID(t *testing.T) {
	id, err := parseBetID("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = parseBetID("x")
	assert.Error(t, err)
}
