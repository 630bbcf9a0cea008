package client

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/database"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/reporter"
	"github.com/TEENet-io/htlc-go/state"
	"github.com/TEENet-io/htlc-go/token"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startTime = uint64(1_700_000_000)

func newServer(t *testing.T) (*httptest.Server, *token.LedgerDB, *htlc.ManualClock) {
	gin.SetMode(gin.TestMode)

	sqlDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	ledger, err := token.NewLedgerDB(sqlDB)
	require.NoError(t, err)
	// The escrow store holds its tx open while the ledger moves funds, so
	// the two cannot share a database: sqlite allows one writer.
	stateDB, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	st, err := state.NewStateDB(stateDB)
	require.NoError(t, err)

	clock := htlc.NewManualClock(startTime)
	escrow := common.RandEthAddress()
	registry := token.NewRegistry(token.LedgerFactory(ledger, escrow))
	engine, err := htlc.NewEngine(&htlc.Config{Store: st, Custodians: registry, Clock: clock})
	require.NoError(t, err)

	router := reporter.NewHttpReporter("", "", engine, registry, escrow).WithLedger(ledger).SetupRouter()
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		st.Close()
		stateDB.Close()
		ledger.Close()
		sqlDB.Close()
	})
	return srv, ledger, clock
}

func TestClientSwap(t *testing.T) {
	srv, ledger, clock := newServer(t)
	ctx := context.Background()
	keys := common.GenPrivateKeys(2)
	alice := NewHtlcClient(srv.URL, keys[0])
	bob := NewHtlcClient(srv.URL+"/", keys[1])
	aliceAddr, err := alice.Address()
	require.NoError(t, err)
	bobAddr, err := bob.Address()
	require.NoError(t, err)
	tokenContract := common.RandEthAddress()
	require.NoError(t, ledger.Mint(tokenContract, aliceAddr, big.NewInt(50)))

	msg, err := alice.GetHello(ctx)
	require.NoError(t, err)
	assert.Equal(t, "world", msg)

	now, err := alice.Time(ctx)
	require.NoError(t, err)
	assert.Equal(t, startTime, now.Now)

	require.NoError(t, alice.Approve(ctx, tokenContract, [20]byte{}, big.NewInt(50)))

	preimage, hashlock := htlc.RandPreimage()
	timelock := startTime + 600
	id, err := alice.NewContract(ctx, bobAddr, hashlock, timelock, tokenContract, big.NewInt(20))
	require.NoError(t, err)
	assert.Equal(t, htlc.ComputeContractId(aliceAddr, bobAddr, tokenContract, big.NewInt(20), hashlock, timelock), id)

	ok, err := bob.HaveContract(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	err = alice.Withdraw(ctx, id, preimage)
	assert.True(t, errors.Is(err, htlc.ErrUnauthorized))
	apiErr := &APIError{}
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Status)

	require.NoError(t, bob.Withdraw(ctx, id, preimage))

	ct, err := bob.GetContract(ctx, id)
	require.NoError(t, err)
	assert.True(t, ct.Withdrawn)
	assert.Equal(t, preimage, ct.Preimage)

	balance, err := bob.Balance(ctx, tokenContract, bobAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.Int64())

	clock.Set(timelock)
	err = alice.Refund(ctx, id)
	assert.True(t, errors.Is(err, htlc.ErrAlreadySettled))

	events, err := bob.Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events.Events, 2)
	more, err := bob.Events(ctx, events.Next, 10)
	require.NoError(t, err)
	assert.Empty(t, more.Events)
	assert.Equal(t, events.Next, more.Next)
}

func TestReadOnlyClient(t *testing.T) {
	srv, _, _ := newServer(t)
	c := NewHtlcClient(srv.URL, nil)

	_, err := c.Address()
	assert.ErrorIs(t, err, ErrNoSigningKey)
	err = c.Refund(context.Background(), htlc.ContractId{})
	assert.ErrorIs(t, err, ErrNoSigningKey)

	ct, err := c.GetContract(context.Background(), htlc.ContractId(common.RandBytes32()))
	require.NoError(t, err)
	assert.True(t, ct.IsEmpty())
}

func TestPendingNewContract(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	keys := common.GenPrivateKeys(2)
	alice := NewHtlcClient("", keys[0])
	sender, err := alice.Address()
	require.NoError(t, err)
	bob := NewHtlcClient("", keys[1])
	receiver, err := bob.Address()
	require.NoError(t, err)

	tokenAddress, escrow := common.RandEthAddress(), common.RandEthAddress()
	custodian := htlc.NewSimCustodian(escrow)
	custodian.Mint(sender, big.NewInt(100))
	custodian.Approve(sender, big.NewInt(100))
	custodian.StallTransferFrom = true
	registry := htlc.NewSimRegistry()
	registry.Register(tokenAddress, custodian)
	engine, err := htlc.NewEngine(&htlc.Config{
		Store:      state.NewMemDB(),
		Custodians: registry,
		Clock:      htlc.NewManualClock(startTime),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(reporter.NewHttpReporter("", "", engine, registry, escrow).SetupRouter())
	defer srv.Close()
	alice = NewHtlcClient(srv.URL, keys[0])

	_, hashlock := htlc.RandPreimage()
	timelock := startTime + 100
	id, err := alice.NewContract(ctx, receiver, hashlock, timelock, tokenAddress, big.NewInt(30))
	assert.ErrorIs(t, err, htlc.ErrTransferPending)
	assert.Equal(t, htlc.ComputeContractId(sender, receiver, tokenAddress, big.NewInt(30), hashlock, timelock), id)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 202, apiErr.Status)
	assert.NotEmpty(t, apiErr.TxHash)

	exists, err := alice.HaveContract(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}
