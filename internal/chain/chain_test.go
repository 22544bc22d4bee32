package chain

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hyblock/hyblock-contracts/pkg/cache"
	hbtypes "github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Hardhat account #0.
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

const testMultiBetABI = `[
	{"type":"constructor","inputs":[{"name":"_hyblockToken","type":"address"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"hyblockToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"createBet","stateMutability":"nonpayable","inputs":[{"name":"_topic","type":"string"},{"name":"_options","type":"string[]"}],"outputs":[]},
	{"type":"function","name":"placeBet","stateMutability":"nonpayable","inputs":[{"name":"_betId","type":"uint256"},{"name":"_option","type":"string"},{"name":"_amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"resolveBet","stateMutability":"nonpayable","inputs":[{"name":"_betId","type":"uint256"},{"name":"_winningOption","type":"string"}],"outputs":[]},
	{"type":"function","name":"getBet","stateMutability":"view","inputs":[{"name":"_betId","type":"uint256"}],"outputs":[{"name":"topic","type":"string"},{"name":"options","type":"string[]"},{"name":"isResolved","type":"bool"},{"name":"winningOption","type":"string"}]},
	{"type":"function","name":"getBetOptionInfos","stateMutability":"view","inputs":[{"name":"_betId","type":"uint256"}],"outputs":[{"name":"","type":"string[]"},{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getUserBet","stateMutability":"view","inputs":[{"name":"_betId","type":"uint256"},{"name":"_user","type":"address"}],"outputs":[{"name":"","type":"uint256[]"},{"name":"","type":"uint256[]"}]},
	{"type":"event","name":"BetCreated","anonymous":false,"inputs":[{"name":"betId","type":"uint256","indexed":true},{"name":"topic","type":"string","indexed":false},{"name":"options","type":"string[]","indexed":false}]},
	{"type":"event","name":"BetPlaced","anonymous":false,"inputs":[{"name":"betId","type":"uint256","indexed":true},{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"option","type":"string","indexed":false}]}
]`

func newTestClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()

	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	client, err := NewClient(context.Background(), &Config{
		Backend:      backend,
		Signer:       signer,
		Logger:       zap.NewNop(),
		TxTimeout:    2 * time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestNewSigner(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "with-0x-prefix", key: testPrivateKey},
		{name: "without-prefix", key: testPrivateKey[2:]},
		{name: "surrounding-whitespace", key: " " + testPrivateKey + "\n"},
		{name: "empty", key: "", wantErr: true},
		{name: "not-hex", key: "0xzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewSigner(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testAddress, signer.Address())
		})
	}
}

func TestSigner_TransactOpts(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	ctx := context.Background()
	opts, err := signer.TransactOpts(ctx, big.NewInt(17000))
	require.NoError(t, err)
	assert.Equal(t, testAddress, opts.From)
	assert.Equal(t, ctx, opts.Context)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), &Config{Logger: zap.NewNop()})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), &Config{Backend: newFakeBackend()})
	assert.Error(t, err)
}

func TestClient_Balance(t *testing.T) {
	backend := newFakeBackend()
	backend.balance = units.MustParseEther("1.5")
	client := newTestClient(t, backend)

	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.5", units.FormatEther(balance))
	assert.Equal(t, big.NewInt(31337), client.ChainID())
}

func TestClient_WaitMined(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})

	t.Run("success", func(t *testing.T) {
		backend.receipts[tx.Hash()] = &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(10),
			TxHash:      tx.Hash(),
		}
		receipt, err := client.WaitMined(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), receipt.BlockNumber.Uint64())
	})

	t.Run("reverted", func(t *testing.T) {
		backend.receipts[tx.Hash()] = &types.Receipt{
			Status:      types.ReceiptStatusFailed,
			BlockNumber: big.NewInt(11),
			TxHash:      tx.Hash(),
		}
		_, err := client.WaitMined(context.Background(), tx)
		assert.ErrorIs(t, err, hbtypes.ErrTxReverted)
	})
}

func TestClient_WaitConfirmations(t *testing.T) {
	t.Run("reaches-target", func(t *testing.T) {
		backend := newFakeBackend()
		backend.head = 100
		backend.headStep = 1
		client := newTestClient(t, backend)

		receipt := &types.Receipt{BlockNumber: big.NewInt(100)}
		require.NoError(t, client.WaitConfirmations(context.Background(), receipt, 5))
		assert.GreaterOrEqual(t, backend.head, uint64(104))
	})

	t.Run("single-confirmation-returns-immediately", func(t *testing.T) {
		client := newTestClient(t, newFakeBackend())
		require.NoError(t, client.WaitConfirmations(context.Background(), &types.Receipt{BlockNumber: big.NewInt(1)}, 1))
	})

	t.Run("context-cancelled", func(t *testing.T) {
		backend := newFakeBackend()
		backend.head = 1
		client := newTestClient(t, backend)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := client.WaitConfirmations(ctx, &types.Receipt{BlockNumber: big.NewInt(1)}, 5)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_EnsureCode(t *testing.T) {
	backend := newFakeBackend()
	deployed := common.HexToAddress("0x0000000000000000000000000000000000000abc")
	backend.code[deployed] = []byte{0x60, 0x80}
	client := newTestClient(t, backend)

	require.NoError(t, client.EnsureCode(context.Background(), deployed))

	err := client.EnsureCode(context.Background(), common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, hbtypes.ErrNotDeployed)
}

func TestDecodeRevert(t *testing.T) {
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	reasonData, err := abi.Arguments{{Type: stringType}}.Pack("Bet amount must be greater than zero")
	require.NoError(t, err)
	errorString := hexutil.Encode(append(append([]byte{}, errorStringSelector...), reasonData...))

	allowanceErr := erc20ABI.Errors["ERC20InsufficientAllowance"]
	spender := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	allowanceArgs, err := allowanceErr.Inputs.Pack(spender, big.NewInt(0), units.MustParseEther("100"))
	require.NoError(t, err)
	customData := hexutil.Encode(append(append([]byte{}, allowanceErr.ID[:4]...), allowanceArgs...))

	t.Run("error-string", func(t *testing.T) {
		err := DecodeRevert(&revertRPCError{data: errorString})
		assert.True(t, hbtypes.IsRevertReason(err, "Bet amount must be greater than zero"))
	})

	t.Run("wrapped-error-string", func(t *testing.T) {
		wrapped := errors.Join(errors.New("estimate gas"), &revertRPCError{data: errorString})
		err := DecodeRevert(wrapped)
		assert.True(t, hbtypes.IsRevertReason(err, "Bet amount must be greater than zero"))
	})

	t.Run("custom-error", func(t *testing.T) {
		err := DecodeRevert(&revertRPCError{data: customData}, erc20ABI)
		require.True(t, hbtypes.IsCustomError(err, "ERC20InsufficientAllowance"))

		var customErr *hbtypes.CustomError
		require.ErrorAs(t, err, &customErr)
		require.Len(t, customErr.Args, 3)
		assert.Equal(t, spender, customErr.Args[0])
		assert.Equal(t, units.MustParseEther("100"), customErr.Args[2])
	})

	t.Run("custom-error-unknown-abi", func(t *testing.T) {
		original := &revertRPCError{data: customData}
		err := DecodeRevert(original, mustParseABI(testMultiBetABI))
		assert.Equal(t, error(original), err)
	})

	t.Run("no-revert-data", func(t *testing.T) {
		original := errors.New("connection refused")
		assert.Equal(t, original, DecodeRevert(original, erc20ABI))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, DecodeRevert(nil))
	})
}

func TestToken_Details(t *testing.T) {
	backend := newFakeBackend()
	tokenAddr := common.HexToAddress("0x220634d3d55DE21c5F0C5Ec37C1CC0c247dcc866")
	supply := units.MustParseEther("1000000000")
	backend.calls[tokenAddr] = abiResponder(erc20ABI, map[string][]interface{}{
		"name":        {"HYBLOCK Token"},
		"symbol":      {"HYB"},
		"decimals":    {uint8(18)},
		"totalSupply": {supply},
		"balanceOf":   {units.MustParseEther("42")},
		"allowance":   {units.MustParseEther("7")},
	})
	client := newTestClient(t, backend)
	token := client.Token(tokenAddr)

	details, err := token.Details(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HYBLOCK Token", details.Name)
	assert.Equal(t, "HYB", details.Symbol)
	assert.Equal(t, uint8(18), details.Decimals)
	assert.Equal(t, supply, details.TotalSupply)

	balance, err := token.BalanceOf(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, "42", units.FormatEther(balance))

	allowance, err := token.Allowance(context.Background(), testAddress, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, "7", units.FormatEther(allowance))
}

func TestMultiBet_Reads(t *testing.T) {
	backend := newFakeBackend()
	betAddr := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	tokenAddr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	art := &Artifact{ContractName: "MultiBetERCExp", ABI: mustParseABI(testMultiBetABI)}

	hundred := units.MustParseEther("100")
	backend.calls[betAddr] = abiResponder(art.ABI, map[string][]interface{}{
		"owner":             {testAddress},
		"hyblockToken":      {tokenAddr},
		"getBet":            {"Test Topic", []string{"Option1", "Option2"}, true, "Option1"},
		"getBetOptionInfos": {[]string{"Option1", "Option2"}, []*big.Int{hundred, hundred}},
		"getUserBet":        {[]*big.Int{big.NewInt(0)}, []*big.Int{hundred}},
	})

	client := newTestClient(t, backend)
	mb := client.MultiBet(betAddr, art)
	ctx := context.Background()

	owner, err := mb.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAddress, owner)

	token, err := mb.HyblockToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, token)

	info, err := mb.GetBet(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Test Topic", info.Topic)
	assert.Equal(t, []string{"Option1", "Option2"}, info.Options)
	assert.True(t, info.IsResolved)
	assert.Equal(t, "Option1", info.WinningOption)

	options, amounts, err := mb.GetBetOptionInfos(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Option1", "Option2"}, options)
	assert.Equal(t, hundred, amounts[0])

	userBet, err := mb.GetUserBet(ctx, 0, testAddress)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, userBet.OptionIndexes)
	assert.Equal(t, []*big.Int{hundred}, userBet.Amounts)
}

func TestMultiBet_ParseEvents(t *testing.T) {
	betAddr := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	art := &Artifact{ContractName: "MultiBetERCExp", ABI: mustParseABI(testMultiBetABI)}
	client := newTestClient(t, newFakeBackend())
	mb := client.MultiBet(betAddr, art)

	created := art.ABI.Events["BetCreated"]
	createdData, err := created.Inputs.NonIndexed().Pack("Test Topic", []string{"Option1", "Option2"})
	require.NoError(t, err)

	placed := art.ABI.Events["BetPlaced"]
	placedData, err := placed.Inputs.NonIndexed().Pack(units.MustParseEther("100"), "Option1")
	require.NoError(t, err)

	receipt := &types.Receipt{
		Logs: []*types.Log{
			{Address: common.HexToAddress("0x01"), Topics: []common.Hash{created.ID}},
			{
				Address: betAddr,
				Topics:  []common.Hash{created.ID, common.BigToHash(big.NewInt(3))},
				Data:    createdData,
			},
			{
				Address: betAddr,
				Topics:  []common.Hash{placed.ID, common.BigToHash(big.NewInt(3)), common.BytesToHash(testAddress.Bytes())},
				Data:    placedData,
			},
		},
	}

	ev, err := mb.ParseBetCreated(receipt)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), ev.BetID)
	assert.Equal(t, "Test Topic", ev.Topic)
	assert.Equal(t, []string{"Option1", "Option2"}, ev.Options)

	placedEv, err := mb.ParseBetPlaced(receipt)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), placedEv.BetID)
	assert.Equal(t, testAddress, placedEv.User)
	assert.Equal(t, "Option1", placedEv.Option)
	assert.Equal(t, units.MustParseEther("100"), placedEv.Amount)

	_, err = mb.ParseBetCreated(&types.Receipt{})
	assert.Error(t, err)
}

func TestArtifactStore(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "MultiBetERCExp.sol", "MultiBetERCExp", testMultiBetABI, "0x6080604052")
	writeArtifact(t, dir, "HYBLOCK.sol", "HYBLOCKToken", ERC20ABI, "0x60806040")
	writeArtifact(t, dir, "IBet.sol", "IBet", `[]`, "0x")

	c, err := cache.NewRistrettoCache(cache.DefaultConfig(zap.NewNop()))
	require.NoError(t, err)
	defer c.Close()

	store, err := NewArtifactStore(dir, c, zap.NewNop())
	require.NoError(t, err)

	t.Run("direct-path", func(t *testing.T) {
		art, err := store.Load("MultiBetERCExp")
		require.NoError(t, err)
		assert.Equal(t, "contracts/MultiBetERCExp.sol:MultiBetERCExp", art.FullyQualifiedName())
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, art.Bytecode)
		assert.Contains(t, art.ABI.Methods, "placeBet")
	})

	t.Run("source-name-differs", func(t *testing.T) {
		art, err := store.Load("HYBLOCKToken")
		require.NoError(t, err)
		assert.Equal(t, "contracts/HYBLOCK.sol:HYBLOCKToken", art.FullyQualifiedName())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Load("Nope")
		assert.Error(t, err)
	})

	t.Run("no-bytecode", func(t *testing.T) {
		_, err := store.Load("IBet")
		assert.Error(t, err)
	})

	t.Run("build-info", func(t *testing.T) {
		art, err := store.Load("MultiBetERCExp")
		require.NoError(t, err)

		info, err := store.BuildInfo(art)
		require.NoError(t, err)
		assert.Equal(t, "0.8.0+commit.c7dfd78e", info.SolcLongVersion)
		assert.JSONEq(t, `{"language":"Solidity","sources":{}}`, string(info.Input))
	})
}

func TestNewArtifactStore_Validation(t *testing.T) {
	c, err := cache.NewRistrettoCache(cache.DefaultConfig(zap.NewNop()))
	require.NoError(t, err)
	defer c.Close()

	_, err = NewArtifactStore("", c, zap.NewNop())
	assert.Error(t, err)
	_, err = NewArtifactStore("artifacts", nil, zap.NewNop())
	assert.Error(t, err)
	_, err = NewArtifactStore("artifacts", c, nil)
	assert.Error(t, err)
}

func writeArtifact(t *testing.T, dir, sourceFile, name, abiJSON, bytecode string) {
	t.Helper()

	contractDir := filepath.Join(dir, "contracts", sourceFile)
	require.NoError(t, os.MkdirAll(contractDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build-info"), 0o755))

	artifact := `{"_format":"hh-sol-artifact-1","contractName":"` + name +
		`","sourceName":"contracts/` + sourceFile + `","abi":` + abiJSON +
		`,"bytecode":"` + bytecode + `","deployedBytecode":"0x","linkReferences":{},"deployedLinkReferences":{}}`
	require.NoError(t, os.WriteFile(filepath.Join(contractDir, name+".json"), []byte(artifact), 0o600))

	dbg := `{"_format":"hh-sol-dbg-1","buildInfo":"../../build-info/abc123.json"}`
	require.NoError(t, os.WriteFile(filepath.Join(contractDir, name+".dbg.json"), []byte(dbg), 0o600))

	buildInfo := `{"_format":"hh-sol-build-info-1","id":"abc123","solcVersion":"0.8.0",` +
		`"solcLongVersion":"0.8.0+commit.c7dfd78e","input":{"language":"Solidity","sources":{}},"output":{}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build-info", "abc123.json"), []byte(buildInfo), 0o600))
}
