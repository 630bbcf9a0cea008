package htlc

import (
	"math/big"
	"sync"

	"github.com/TEENet-io/htlc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

const (
	OpNewContract = "newContract"
	OpWithdraw    = "withdraw"
	OpRefund      = "refund"
)

type Config struct {
	Store      Store
	Custodians CustodianRegistry
	Clock      Clock

	// Optional
	Sink     EventSink
	Recorder OpRecorder
}

// Engine runs the escrow lifecycle. Mutating calls are serialized by one
// writer lock and each runs inside a store transaction that also spans the
// token movement. Reads go to the store directly.
type Engine struct {
	mu sync.Mutex

	store      Store
	custodians CustodianRegistry
	clock      Clock
	sink       EventSink
	recorder   OpRecorder
}

func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, errors.New("htlc: store is required")
	}
	if cfg.Custodians == nil {
		return nil, errors.New("htlc: custodian registry is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("htlc: clock is required")
	}

	e := &Engine{
		store:      cfg.Store,
		custodians: cfg.Custodians,
		clock:      cfg.Clock,
		sink:       cfg.Sink,
		recorder:   cfg.Recorder,
	}
	if e.sink == nil {
		e.sink = NopSink{}
	}
	return e, nil
}

// NewContract escrows amount of tokenContract from sender. The funds are
// pulled with the allowance sender granted to the escrow account. When the
// pull is sent but unconfirmed the contract is still stored and its id is
// returned along with an error matching ErrTransferPending.
func (e *Engine) NewContract(
	sender, receiver ethcommon.Address,
	hashlock [32]byte,
	timelock uint64,
	tokenContract ethcommon.Address,
	amount *big.Int,
) (id ContractId, err error) {
	defer func() { e.record(OpNewContract, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 || amount.BitLen() > 256 {
		return ContractId{}, ErrInvalidAmount
	}
	if now := e.clock.Now(); timelock <= now {
		return ContractId{}, errors.Wrapf(ErrTimelockInPast, "timelock=%d, now=%d", timelock, now)
	}
	if sender == (ethcommon.Address{}) {
		return ContractId{}, ErrInvalidSender
	}
	if receiver == (ethcommon.Address{}) {
		return ContractId{}, ErrInvalidReceiver
	}
	if tokenContract == (ethcommon.Address{}) {
		return ContractId{}, ErrInvalidToken
	}
	if hashlock == zeroPreimageHashlock {
		return ContractId{}, ErrInvalidHashlock
	}

	c := &Contract{
		Sender:        sender,
		Receiver:      receiver,
		TokenContract: tokenContract,
		Amount:        new(big.Int).Set(amount),
		Hashlock:      hashlock,
		Timelock:      timelock,
	}
	id = c.Id()

	newLogger := logger.WithFields(logger.Fields{
		"id":     common.Shorten(id.Hex(), 8),
		"sender": sender.Hex(),
		"amount": amount.String(),
	})

	tx, err := e.store.Begin()
	if err != nil {
		return ContractId{}, errors.Wrap(err, "failed to begin store tx")
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx)
		}
	}()

	_, ok, err := tx.GetContract(id)
	if err != nil {
		return ContractId{}, errors.Wrap(err, "failed to check contract existence")
	}
	if ok {
		return ContractId{}, errors.Wrapf(ErrDuplicateContract, "id=%s", id.Hex())
	}

	custodian, err := e.custodians.Custodian(tokenContract)
	if err != nil {
		return ContractId{}, custodianError(err, "no custodian for token %s", tokenContract.Hex())
	}

	if err := tx.InsertContract(id, c); err != nil {
		return ContractId{}, errors.Wrap(err, "failed to insert contract")
	}

	// A pull with an unknown outcome still stores the contract.
	ev := newCreatedEvent(id, c)
	transferErr := custodian.TransferFrom(sender, amount)
	pendingTx, pending := PendingTxHash(transferErr)
	if transferErr != nil && !pending {
		newLogger.Debugf("failed to pull funds: err=%v", transferErr)
		return ContractId{}, custodianError(transferErr, "failed to pull funds from %s", sender.Hex())
	}
	ev.PendingTx = pendingTx

	committed = true
	if err := finish(tx, ev); err != nil {
		if pending {
			newLogger.WithField("tx", pendingTx.Hex()).Errorf(
				"pull pending but contract not stored, manual reconciliation required: err=%v", err)
			return ContractId{}, errors.Wrap(err, "failed to store new contract")
		}
		newLogger.Errorf("failed to store new contract after funds were pulled, returning funds: err=%v", err)
		if cerr := custodian.Transfer(sender, amount); cerr != nil {
			newLogger.Errorf("failed to return pulled funds, manual reconciliation required: err=%v", cerr)
		}
		return ContractId{}, errors.Wrap(err, "failed to store new contract")
	}

	e.sink.Emit(ev)
	if pending {
		newLogger.WithField("tx", pendingTx.Hex()).Warn("contract created, pull pending")
		return id, custodianError(transferErr, "pull from %s pending", sender.Hex())
	}
	newLogger.Info("contract created")

	return id, nil
}

// Withdraw releases the escrowed funds to the receiver against the preimage
// of the hashlock, strictly before the timelock. An ErrTransferPending error
// means the contract is settled but the release is unconfirmed.
func (e *Engine) Withdraw(id ContractId, preimage [32]byte, caller ethcommon.Address) (err error) {
	defer func() { e.record(OpWithdraw, err) }()

	return e.settle(id, caller, func(c *Contract, now uint64) (ethcommon.Address, *Event, error) {
		if caller != c.Receiver {
			return ethcommon.Address{}, nil, errors.Wrapf(ErrUnauthorized, "caller %s is not the receiver", caller.Hex())
		}
		if Hashlock(preimage) != c.Hashlock {
			return ethcommon.Address{}, nil, ErrPreimageMismatch
		}
		if now >= c.Timelock {
			return ethcommon.Address{}, nil, errors.Wrapf(ErrExpired, "timelock=%d, now=%d", c.Timelock, now)
		}
		c.Withdrawn = true
		c.Preimage = preimage
		return c.Receiver, newWithdrawnEvent(id, preimage), nil
	})
}

// Refund returns the escrowed funds to the sender once the timelock has
// passed.
func (e *Engine) Refund(id ContractId, caller ethcommon.Address) (err error) {
	defer func() { e.record(OpRefund, err) }()

	return e.settle(id, caller, func(c *Contract, now uint64) (ethcommon.Address, *Event, error) {
		if caller != c.Sender {
			return ethcommon.Address{}, nil, errors.Wrapf(ErrUnauthorized, "caller %s is not the sender", caller.Hex())
		}
		if now < c.Timelock {
			return ethcommon.Address{}, nil, errors.Wrapf(ErrNotYetExpired, "timelock=%d, now=%d", c.Timelock, now)
		}
		c.Refunded = true
		return c.Sender, newRefundedEvent(id), nil
	})
}

// settleFunc checks the caller's claim on c, marks c as settled and returns
// the account to pay.
type settleFunc func(c *Contract, now uint64) (ethcommon.Address, *Event, error)

func (e *Engine) settle(id ContractId, caller ethcommon.Address, fn settleFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newLogger := logger.WithFields(logger.Fields{
		"id":     common.Shorten(id.Hex(), 8),
		"caller": caller.Hex(),
	})

	tx, err := e.store.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin store tx")
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx)
		}
	}()

	c, ok, err := tx.GetContract(id)
	if err != nil {
		return errors.Wrap(err, "failed to get contract")
	}
	if !ok {
		return errors.Wrapf(ErrNotFound, "id=%s", id.Hex())
	}
	if c.IsSettled() {
		return errors.Wrapf(ErrAlreadySettled, "id=%s", id.Hex())
	}

	updated := c.Clone()
	recipient, ev, err := fn(updated, e.clock.Now())
	if err != nil {
		newLogger.Debugf("settlement rejected: err=%v", err)
		return err
	}

	custodian, err := e.custodians.Custodian(c.TokenContract)
	if err != nil {
		return custodianError(err, "no custodian for token %s", c.TokenContract.Hex())
	}

	if err := tx.UpdateContract(id, updated); err != nil {
		return errors.Wrap(err, "failed to update contract")
	}

	// A release with an unknown outcome still settles the record.
	transferErr := custodian.Transfer(recipient, c.Amount)
	pendingTx, pending := PendingTxHash(transferErr)
	if transferErr != nil && !pending {
		newLogger.Debugf("failed to release funds: err=%v", transferErr)
		return custodianError(transferErr, "failed to release funds to %s", recipient.Hex())
	}
	ev.PendingTx = pendingTx

	committed = true
	if err := finish(tx, ev); err != nil {
		newLogger.WithFields(logger.Fields{
			"recipient": recipient.Hex(),
			"tx":        pendingTx.Hex(),
		}).Errorf("funds released but settlement not stored, manual reconciliation required: err=%v", err)
		return errors.Wrap(err, "failed to store settlement")
	}

	e.sink.Emit(ev)
	if pending {
		newLogger.WithFields(logger.Fields{
			"event": ev.Kind,
			"tx":    pendingTx.Hex(),
		}).Warn("contract settled, release pending")
		return custodianError(transferErr, "release to %s pending", recipient.Hex())
	}
	newLogger.WithField("event", ev.Kind).Info("contract settled")

	return nil
}

// GetContract returns the stored record, or a zero-valued one when id is
// unknown or cannot be read.
func (e *Engine) GetContract(id ContractId) *Contract {
	c, ok, err := e.store.GetContract(id)
	if err != nil {
		logger.WithField("id", id.Hex()).Errorf("failed to read contract: err=%v", err)
		return emptyContract()
	}
	if !ok {
		return emptyContract()
	}
	return c
}

func (e *Engine) HaveContract(id ContractId) bool {
	return !e.GetContract(id).IsEmpty()
}

func (e *Engine) Events(from uint64, limit int) ([]*Event, error) {
	return e.store.Events(from, limit)
}

func (e *Engine) Now() uint64 {
	return e.clock.Now()
}

func (e *Engine) record(op string, err error) {
	if e.recorder != nil {
		e.recorder.RecordOp(op, err)
	}
}

// finish appends ev and commits tx. tx is closed either way.
func finish(tx StoreTx, ev *Event) error {
	if err := tx.AppendEvent(ev); err != nil {
		rollback(tx)
		return errors.Wrap(err, "failed to append event")
	}
	return errors.Wrap(tx.Commit(), "failed to commit")
}

func rollback(tx StoreTx) {
	if err := tx.Rollback(); err != nil {
		logger.Warnf("failed to roll back store tx: err=%v", err)
	}
}
