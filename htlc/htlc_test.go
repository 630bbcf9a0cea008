package htlc_test

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/database"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	startTime = uint64(1_700_000_000)
	supply    = int64(1000)
)

type testEnv struct {
	engine    *htlc.Engine
	clock     *htlc.ManualClock
	custodian *htlc.SimCustodian
	sink      *htlc.RecordingSink
	registry  *htlc.SimRegistry
	token     ethcommon.Address
	sender    ethcommon.Address
	receiver  ethcommon.Address
	escrow    ethcommon.Address
}

func newTestEnv(t *testing.T, store htlc.Store) *testEnv {
	env := &testEnv{
		clock:    htlc.NewManualClock(startTime),
		sink:     &htlc.RecordingSink{},
		token:    common.RandEthAddress(),
		sender:   common.RandEthAddress(),
		receiver: common.RandEthAddress(),
		escrow:   common.RandEthAddress(),
	}
	env.custodian = htlc.NewSimCustodian(env.escrow)
	env.custodian.Mint(env.sender, big.NewInt(supply))
	env.custodian.Approve(env.sender, big.NewInt(supply))

	env.registry = htlc.NewSimRegistry()
	env.registry.Register(env.token, env.custodian)

	engine, err := htlc.NewEngine(&htlc.Config{
		Store:      store,
		Custodians: env.registry,
		Clock:      env.clock,
		Sink:       env.sink,
	})
	require.NoError(t, err)
	env.engine = engine
	return env
}

// forEachStore runs fn against the sqlite and the in-memory store.
func forEachStore(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Run("sqlite", func(t *testing.T) {
		sqlDB, err := database.OpenSQLite(":memory:")
		require.NoError(t, err)
		st, err := state.NewStateDB(sqlDB)
		require.NoError(t, err)
		defer func() {
			st.Close()
			sqlDB.Close()
		}()
		fn(t, newTestEnv(t, st))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, newTestEnv(t, state.NewMemDB()))
	})
}

func (env *testEnv) balance(t *testing.T, account ethcommon.Address) int64 {
	b, err := env.custodian.BalanceOf(account)
	require.NoError(t, err)
	return b.Int64()
}

func (env *testEnv) totalSupply(t *testing.T) int64 {
	return env.balance(t, env.sender) + env.balance(t, env.receiver) + env.balance(t, env.escrow)
}

func (env *testEnv) create(t *testing.T, amount int64, timelock uint64) (htlc.ContractId, [32]byte) {
	preimage, hashlock := htlc.RandPreimage()
	id, err := env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(amount))
	require.NoError(t, err)
	return id, preimage
}

func TestNewEngine(t *testing.T) {
	_, err := htlc.NewEngine(nil)
	assert.Error(t, err)
	_, err = htlc.NewEngine(&htlc.Config{Store: state.NewMemDB()})
	assert.Error(t, err)
	_, err = htlc.NewEngine(&htlc.Config{Store: state.NewMemDB(), Custodians: htlc.NewSimRegistry()})
	assert.Error(t, err)
}

func TestWithdrawScenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		timelock := startTime + 3600
		preimage, hashlock := htlc.RandPreimage()
		id, err := env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(5))
		require.NoError(t, err)
		assert.Equal(t, htlc.ComputeContractId(env.sender, env.receiver, env.token, big.NewInt(5), hashlock, timelock), id)
		assert.True(t, env.engine.HaveContract(id))

		c := env.engine.GetContract(id)
		assert.False(t, c.Withdrawn)
		assert.False(t, c.Refunded)
		assert.Equal(t, [32]byte{}, c.Preimage)
		assert.Equal(t, env.sender, c.Sender)
		assert.Equal(t, int64(supply-5), env.balance(t, env.sender))
		assert.Equal(t, int64(5), env.balance(t, env.escrow))
		assert.Equal(t, int64(supply-5), env.custodian.Allowance(env.sender).Int64())

		err = env.engine.Withdraw(id, preimage, env.receiver)
		require.NoError(t, err)
		assert.Equal(t, int64(5), env.balance(t, env.receiver))
		assert.Equal(t, int64(0), env.balance(t, env.escrow))

		c = env.engine.GetContract(id)
		assert.True(t, c.Withdrawn)
		assert.False(t, c.Refunded)
		assert.Equal(t, preimage, c.Preimage)

		err = env.engine.Refund(id, env.sender)
		assert.ErrorIs(t, err, htlc.ErrAlreadySettled)
		env.clock.Advance(7200)
		err = env.engine.Refund(id, env.sender)
		assert.ErrorIs(t, err, htlc.ErrAlreadySettled)
		err = env.engine.Withdraw(id, preimage, env.receiver)
		assert.ErrorIs(t, err, htlc.ErrAlreadySettled)

		assert.Equal(t, supply, env.totalSupply(t))

		events := env.sink.Events()
		require.Len(t, events, 2)
		assert.Equal(t, htlc.EventContractCreated, events[0].Kind)
		assert.Equal(t, id, events[0].Id)
		assert.Equal(t, hashlock, events[0].Hashlock)
		assert.Equal(t, htlc.EventContractWithdrawn, events[1].Kind)
		assert.Equal(t, preimage, events[1].Preimage)

		stored, err := env.engine.Events(0, 0)
		assert.NoError(t, err)
		assert.Equal(t, events, stored)
	})
}

func TestRefundScenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		id, preimage := env.create(t, 10, startTime+1)

		env.clock.Advance(2)
		err := env.engine.Withdraw(id, preimage, env.receiver)
		assert.ErrorIs(t, err, htlc.ErrTiming)
		assert.ErrorIs(t, err, htlc.ErrExpired)

		err = env.engine.Refund(id, env.sender)
		require.NoError(t, err)
		assert.Equal(t, supply, env.balance(t, env.sender))
		assert.Equal(t, int64(0), env.balance(t, env.escrow))

		c := env.engine.GetContract(id)
		assert.True(t, c.Refunded)
		assert.False(t, c.Withdrawn)
		assert.Equal(t, [32]byte{}, c.Preimage)

		err = env.engine.Withdraw(id, preimage, env.receiver)
		assert.ErrorIs(t, err, htlc.ErrAlreadySettled)
		err = env.engine.Refund(id, env.sender)
		assert.ErrorIs(t, err, htlc.ErrAlreadySettled)

		events := env.sink.Events()
		require.Len(t, events, 2)
		assert.Equal(t, htlc.EventContractRefunded, events[1].Kind)
	})
}

func TestPreimageMismatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		id, _ := env.create(t, 10, startTime+100)
		before := env.engine.GetContract(id)

		err := env.engine.Withdraw(id, common.RandBytes32(), env.receiver)
		assert.ErrorIs(t, err, htlc.ErrPreimageMismatch)
		assert.Equal(t, before, env.engine.GetContract(id))
		assert.Equal(t, int64(10), env.balance(t, env.escrow))
	})
}

func TestNewContractValidation(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		_, hashlock := htlc.RandPreimage()
		timelock := startTime + 100

		_, err := env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(0))
		assert.ErrorIs(t, err, htlc.ErrInvalidAmount)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(-1))
		assert.ErrorIs(t, err, htlc.ErrInvalidAmount)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, nil)
		assert.ErrorIs(t, err, htlc.ErrInvalidAmount)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, new(big.Int).Lsh(big.NewInt(1), 256))
		assert.ErrorIs(t, err, htlc.ErrInvalidAmount)

		// amount is checked before the timelock
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, startTime, env.token, big.NewInt(0))
		assert.ErrorIs(t, err, htlc.ErrInvalidAmount)

		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, startTime, env.token, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrTimelockInPast)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, startTime-1, env.token, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrValidation)

		_, err = env.engine.NewContract(ethcommon.Address{}, env.receiver, hashlock, timelock, env.token, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrInvalidSender)
		assert.Equal(t, htlc.KindValidation, htlc.ErrorKind(err))
		_, err = env.engine.NewContract(ethcommon.Address{}, ethcommon.Address{}, hashlock, timelock, env.token, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrInvalidSender)
		_, err = env.engine.NewContract(env.sender, ethcommon.Address{}, hashlock, timelock, env.token, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrInvalidReceiver)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, ethcommon.Address{}, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrInvalidToken)
		_, err = env.engine.NewContract(env.sender, env.receiver, htlc.Hashlock([32]byte{}), timelock, env.token, big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrInvalidHashlock)

		assert.Equal(t, supply, env.balance(t, env.sender))
		assert.Empty(t, env.sink.Events())
	})
}

func TestDuplicateContract(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		_, hashlock := htlc.RandPreimage()
		timelock := startTime + 100

		id, err := env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(10))
		require.NoError(t, err)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(10))
		assert.ErrorIs(t, err, htlc.ErrDuplicateContract)
		assert.Equal(t, int64(supply-10), env.balance(t, env.sender))

		// still a duplicate after settlement
		env.clock.Advance(100)
		require.NoError(t, env.engine.Refund(id, env.sender))
		env.clock.Set(startTime)
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(10))
		assert.ErrorIs(t, err, htlc.ErrDuplicateContract)

		// any field change gives a fresh id
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock+1, env.token, big.NewInt(10))
		assert.NoError(t, err)
	})
}

func TestUnauthorized(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		id, preimage := env.create(t, 10, startTime+100)
		before := env.engine.GetContract(id)
		stranger := common.RandEthAddress()

		assert.ErrorIs(t, env.engine.Withdraw(id, preimage, env.sender), htlc.ErrUnauthorized)
		assert.ErrorIs(t, env.engine.Withdraw(id, preimage, stranger), htlc.ErrUnauthorized)

		env.clock.Advance(100)
		assert.ErrorIs(t, env.engine.Refund(id, env.receiver), htlc.ErrUnauthorized)
		assert.ErrorIs(t, env.engine.Refund(id, stranger), htlc.ErrUnauthorized)

		assert.Equal(t, before, env.engine.GetContract(id))
		assert.Equal(t, int64(10), env.balance(t, env.escrow))
	})
}

func TestTimelockBoundary(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		timelock := startTime + 100
		id, preimage := env.create(t, 10, timelock)

		env.clock.Set(timelock - 1)
		assert.ErrorIs(t, env.engine.Refund(id, env.sender), htlc.ErrNotYetExpired)

		// withdraw is closed and refund open at exactly the timelock
		env.clock.Set(timelock)
		assert.ErrorIs(t, env.engine.Withdraw(id, preimage, env.receiver), htlc.ErrExpired)
		assert.NoError(t, env.engine.Refund(id, env.sender))
	})
}

func TestWithdrawJustBeforeTimelock(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		timelock := startTime + 100
		id, preimage := env.create(t, 10, timelock)

		env.clock.Set(timelock - 1)
		assert.NoError(t, env.engine.Withdraw(id, preimage, env.receiver))
		assert.Equal(t, int64(10), env.balance(t, env.receiver))
	})
}

func TestUnknownContract(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		id := htlc.ContractId(common.RandBytes32())

		c := env.engine.GetContract(id)
		assert.True(t, c.IsEmpty())
		assert.Equal(t, ethcommon.Address{}, c.Sender)
		assert.False(t, env.engine.HaveContract(id))

		assert.ErrorIs(t, env.engine.Withdraw(id, common.RandBytes32(), env.receiver), htlc.ErrNotFound)
		assert.ErrorIs(t, env.engine.Refund(id, env.sender), htlc.ErrNotFound)
	})
}

func TestCustodianFailure(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		_, hashlock := htlc.RandPreimage()

		// no allowance left
		env.custodian.Approve(env.sender, big.NewInt(5))
		_, err := env.engine.NewContract(env.sender, env.receiver, hashlock, startTime+100, env.token, big.NewInt(10))
		assert.ErrorIs(t, err, htlc.ErrCustodian)
		assert.ErrorIs(t, err, htlc.ErrSimInsufficientAllowance)
		id := htlc.ComputeContractId(env.sender, env.receiver, env.token, big.NewInt(10), hashlock, startTime+100)
		assert.False(t, env.engine.HaveContract(id))

		// unknown token
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, startTime+100, common.RandEthAddress(), big.NewInt(1))
		assert.ErrorIs(t, err, htlc.ErrCustodian)

		env.custodian.Approve(env.sender, big.NewInt(supply))
		id, preimage := env.create(t, 10, startTime+100)

		env.custodian.FailTransfer = true
		err = env.engine.Withdraw(id, preimage, env.receiver)
		assert.ErrorIs(t, err, htlc.ErrCustodian)
		c := env.engine.GetContract(id)
		assert.False(t, c.Withdrawn)
		assert.Equal(t, [32]byte{}, c.Preimage)

		env.custodian.FailTransfer = false
		assert.NoError(t, env.engine.Withdraw(id, preimage, env.receiver))

		// only the successful calls were logged
		events, err := env.engine.Events(0, 0)
		assert.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, htlc.EventContractCreated, events[0].Kind)
		assert.Equal(t, htlc.EventContractWithdrawn, events[1].Kind)
	})
}

func TestStalledRelease(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		timelock := startTime + 100
		id, preimage := env.create(t, 100, timelock)

		env.custodian.StallTransfer = true
		err := env.engine.Withdraw(id, preimage, env.receiver)
		assert.ErrorIs(t, err, htlc.ErrTransferPending)
		assert.NotErrorIs(t, err, htlc.ErrCustodian)
		assert.Equal(t, htlc.KindTransferPending, htlc.ErrorKind(err))
		txHash, ok := htlc.PendingTxHash(err)
		require.True(t, ok)
		env.custodian.StallTransfer = false

		// the release is not undone
		c := env.engine.GetContract(id)
		assert.True(t, c.Withdrawn)
		assert.Equal(t, preimage, c.Preimage)

		env.clock.Set(timelock)
		assert.ErrorIs(t, env.engine.Refund(id, env.sender), htlc.ErrAlreadySettled)

		assert.Equal(t, supply-100, env.balance(t, env.sender))
		assert.Equal(t, int64(100), env.balance(t, env.receiver))
		assert.Equal(t, int64(0), env.balance(t, env.escrow))
		assert.Equal(t, supply, env.totalSupply(t))

		events, err := env.engine.Events(0, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, htlc.EventContractWithdrawn, events[1].Kind)
		assert.Equal(t, txHash, events[1].PendingTx)
		assert.Equal(t, ethcommon.Hash{}, events[0].PendingTx)

		emitted := env.sink.Events()
		require.Len(t, emitted, 2)
		assert.Equal(t, txHash, emitted[1].PendingTx)
	})
}

func TestStalledPull(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		preimage, hashlock := htlc.RandPreimage()
		timelock := startTime + 100

		env.custodian.StallTransferFrom = true
		id, err := env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(100))
		assert.ErrorIs(t, err, htlc.ErrTransferPending)
		assert.Equal(t, htlc.ComputeContractId(env.sender, env.receiver, env.token, big.NewInt(100), hashlock, timelock), id)
		txHash, ok := htlc.PendingTxHash(err)
		require.True(t, ok)
		env.custodian.StallTransferFrom = false

		// kept, since the funds may be in escrow
		assert.True(t, env.engine.HaveContract(id))
		assert.Equal(t, int64(100), env.balance(t, env.escrow))

		events, err := env.engine.Events(0, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, txHash, events[0].PendingTx)

		// a retry is a duplicate, not a second pull
		_, err = env.engine.NewContract(env.sender, env.receiver, hashlock, timelock, env.token, big.NewInt(100))
		assert.ErrorIs(t, err, htlc.ErrDuplicateContract)
		assert.Equal(t, supply-100, env.balance(t, env.sender))

		require.NoError(t, env.engine.Withdraw(id, preimage, env.receiver))
		assert.Equal(t, int64(100), env.balance(t, env.receiver))
	})
}

// blockingCustodian holds every pull until release is closed.
type blockingCustodian struct {
	*htlc.SimCustodian
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCustodian) TransferFrom(owner ethcommon.Address, amount *big.Int) error {
	close(c.entered)
	<-c.release
	return c.SimCustodian.TransferFrom(owner, amount)
}

func TestReadsDuringSlowPull(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		existing, _ := env.create(t, 10, startTime+100)

		slowToken := common.RandEthAddress()
		slow := &blockingCustodian{
			SimCustodian: env.custodian,
			entered:      make(chan struct{}),
			release:      make(chan struct{}),
		}
		env.registry.Register(slowToken, slow)

		_, hashlock := htlc.RandPreimage()
		done := make(chan error, 1)
		go func() {
			_, err := env.engine.NewContract(env.sender, env.receiver, hashlock, startTime+100, slowToken, big.NewInt(20))
			done <- err
		}()
		<-slow.entered

		read := make(chan *htlc.Contract, 1)
		go func() {
			read <- env.engine.GetContract(existing)
		}()
		select {
		case c := <-read:
			assert.Equal(t, int64(10), c.Amount.Int64())
		case <-time.After(time.Second):
			t.Fatal("read blocked behind the pending creation")
		}

		events, err := env.engine.Events(0, 0)
		require.NoError(t, err)
		assert.Len(t, events, 1)

		pendingId := htlc.ComputeContractId(env.sender, env.receiver, slowToken, big.NewInt(20), hashlock, startTime+100)
		assert.False(t, env.engine.HaveContract(pendingId))

		close(slow.release)
		require.NoError(t, <-done)
		assert.True(t, env.engine.HaveContract(pendingId))
	})
}

// failingCommitStore fails every commit after the first n.
type failingCommitStore struct {
	htlc.Store
	mu sync.Mutex
	n  int
}

type failingCommitTx struct {
	htlc.StoreTx
	store *failingCommitStore
}

var errCommit = errors.New("disk full")

func (s *failingCommitStore) Begin() (htlc.StoreTx, error) {
	tx, err := s.Store.Begin()
	if err != nil {
		return nil, err
	}
	return &failingCommitTx{StoreTx: tx, store: s}, nil
}

func (tx *failingCommitTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.store.n == 0 {
		_ = tx.StoreTx.Rollback()
		return errCommit
	}
	tx.store.n--
	return tx.StoreTx.Commit()
}

func TestCommitFailureCompensates(t *testing.T) {
	store := &failingCommitStore{Store: state.NewMemDB(), n: 0}
	env := newTestEnv(t, store)

	_, hashlock := htlc.RandPreimage()
	_, err := env.engine.NewContract(env.sender, env.receiver, hashlock, startTime+100, env.token, big.NewInt(10))
	assert.ErrorIs(t, err, errCommit)

	// funds returned, nothing recorded
	assert.Equal(t, supply, env.balance(t, env.sender))
	assert.Equal(t, int64(0), env.balance(t, env.escrow))
	assert.Empty(t, env.sink.Events())
	events, err := env.engine.Events(0, 0)
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestConcurrentSettlement(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		timelock := startTime + 100
		id, preimage := env.create(t, 10, timelock)
		env.clock.Set(timelock - 1)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := env.engine.Withdraw(id, preimage, env.receiver)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					success++
				} else {
					assert.ErrorIs(t, err, htlc.ErrAlreadySettled)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, success)
		assert.Equal(t, int64(10), env.balance(t, env.receiver))
		assert.Equal(t, supply, env.totalSupply(t))
	})
}

func TestConcurrentCreation(t *testing.T) {
	forEachStore(t, func(t *testing.T, env *testEnv) {
		_, hashlock := htlc.RandPreimage()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.engine.NewContract(env.sender, env.receiver, hashlock, startTime+100, env.token, big.NewInt(10))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					success++
				} else {
					assert.ErrorIs(t, err, htlc.ErrDuplicateContract)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, success)
		assert.Equal(t, int64(supply-10), env.balance(t, env.sender))
	})
}

type countingRecorder struct {
	mu    sync.Mutex
	kinds map[string][]string
}

func (r *countingRecorder) RecordOp(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kinds == nil {
		r.kinds = make(map[string][]string)
	}
	r.kinds[op] = append(r.kinds[op], htlc.ErrorKind(err))
}

func TestRecorder(t *testing.T) {
	recorder := &countingRecorder{}
	custodian := htlc.NewSimCustodian(common.RandEthAddress())
	sender, receiver, token := common.RandEthAddress(), common.RandEthAddress(), common.RandEthAddress()
	custodian.Mint(sender, big.NewInt(10))
	custodian.Approve(sender, big.NewInt(10))
	registry := htlc.NewSimRegistry()
	registry.Register(token, custodian)

	engine, err := htlc.NewEngine(&htlc.Config{
		Store:      state.NewMemDB(),
		Custodians: registry,
		Clock:      htlc.NewManualClock(startTime),
		Recorder:   recorder,
	})
	require.NoError(t, err)

	preimage, hashlock := htlc.RandPreimage()
	id, err := engine.NewContract(sender, receiver, hashlock, startTime+10, token, big.NewInt(10))
	require.NoError(t, err)
	assert.ErrorIs(t, engine.Refund(id, sender), htlc.ErrNotYetExpired)
	assert.NoError(t, engine.Withdraw(id, preimage, receiver))

	assert.Equal(t, map[string][]string{
		htlc.OpNewContract: {""},
		htlc.OpRefund:      {htlc.KindTiming},
		htlc.OpWithdraw:    {""},
	}, recorder.kinds)
}
