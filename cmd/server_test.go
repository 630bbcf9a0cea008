package cmd

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/token"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerConfig() *HtlcServerConfig {
	return &HtlcServerConfig{
		Custodian:     CUSTODIAN_LEDGER,
		EscrowAccount: common.RandEthAddress().Hex(),
		ClockSource:   CLOCK_SYSTEM,
		HttpIp:        "127.0.0.1",
		HttpPort:      "0",
	}
}

func TestNewHtlcServerConfigErrors(t *testing.T) {
	cfg := ledgerConfig()
	cfg.Custodian = "bank"
	_, err := NewHtlcServer(cfg)
	assert.ErrorIs(t, err, ErrUnknownCustodian)

	cfg = ledgerConfig()
	cfg.ClockSource = CLOCK_CHAIN
	_, err = NewHtlcServer(cfg)
	assert.ErrorIs(t, err, ErrChainClockNoChain)

	cfg = ledgerConfig()
	cfg.ClockSource = "sundial"
	_, err = NewHtlcServer(cfg)
	assert.ErrorIs(t, err, ErrUnknownClock)

	cfg = ledgerConfig()
	cfg.EscrowAccount = "nope"
	_, err = NewHtlcServer(cfg)
	assert.Error(t, err)

	cfg = ledgerConfig()
	cfg.DbFilePath = filepath.Join(t.TempDir(), "htlc.db")
	cfg.LedgerDbFilePath = cfg.DbFilePath
	_, err = NewHtlcServer(cfg)
	assert.ErrorIs(t, err, ErrSharedDatabaseFile)

	cfg = ledgerConfig()
	cfg.Custodian = CUSTODIAN_ETHEREUM
	cfg.EthEscrowAccountPriv = "zz"
	_, err = NewHtlcServer(cfg)
	assert.Error(t, err)
}

func TestHtlcServerLedgerMode(t *testing.T) {
	dir := t.TempDir()
	tokenContract := common.RandEthAddress()
	sender, receiver := common.RandEthAddress(), common.RandEthAddress()

	cfg := ledgerConfig()
	cfg.DbFilePath = filepath.Join(dir, "htlc.db")
	cfg.LedgerDbFilePath = filepath.Join(dir, "ledger.db")
	cfg.Genesis = []token.GenesisAlloc{{Token: tokenContract, Account: sender, Amount: big.NewInt(100)}}

	srv, err := NewHtlcServer(cfg)
	require.NoError(t, err)
	defer srv.Close()

	balance, err := srv.MyLedger.BalanceOf(tokenContract, sender)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance.Int64())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- srv.Run(ctx) }()

	engine := srv.MyEngine
	require.NoError(t, srv.MyLedger.Approve(tokenContract, sender, ethcommon.HexToAddress(cfg.EscrowAccount), big.NewInt(40)))
	preimage, hashlock := htlc.RandPreimage()
	id, err := engine.NewContract(sender, receiver, hashlock, engine.Now()+3600, tokenContract, big.NewInt(40))
	require.NoError(t, err)
	require.NoError(t, engine.Withdraw(id, preimage, receiver))

	balance, err = srv.MyLedger.BalanceOf(tokenContract, receiver)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance.Int64())

	// both events reach the metrics observer
	assert.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(srv.MyMetrics.Registry(), "htlc_events_total")
		return err == nil && n == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestHtlcServerReopen(t *testing.T) {
	dir := t.TempDir()
	tokenContract := common.RandEthAddress()
	sender := common.RandEthAddress()

	cfg := ledgerConfig()
	cfg.DbFilePath = filepath.Join(dir, "htlc.db")
	cfg.LedgerDbFilePath = filepath.Join(dir, "ledger.db")
	cfg.Genesis = []token.GenesisAlloc{{Token: tokenContract, Account: sender, Amount: big.NewInt(5)}}

	srv, err := NewHtlcServer(cfg)
	require.NoError(t, err)
	srv.Close()

	// the genesis is not minted twice
	srv, err = NewHtlcServer(cfg)
	require.NoError(t, err)
	defer srv.Close()
	supply, err := srv.MyLedger.TotalSupply(tokenContract)
	require.NoError(t, err)
	assert.Equal(t, int64(5), supply.Int64())
}

func TestParseGenesis(t *testing.T) {
	tokenContract, account := common.RandEthAddress(), common.RandEthAddress()
	allocs, err := ParseGenesis([]GenesisEntry{
		{Token: tokenContract.Hex(), Account: account.Hex(), Amount: "0x10"},
		{Token: tokenContract.Hex(), Account: account.Hex(), Amount: "7"},
	})
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, int64(16), allocs[0].Amount.Int64())
	assert.Equal(t, account, allocs[1].Account)

	_, err = ParseGenesis([]GenesisEntry{{Token: "x", Account: account.Hex(), Amount: "1"}})
	assert.Error(t, err)
	_, err = ParseGenesis([]GenesisEntry{{Token: tokenContract.Hex(), Account: account.Hex(), Amount: "-1"}})
	assert.Error(t, err)
}
