package htlc

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Store keeps escrow records and the event log. Records are never deleted.
type Store interface {
	// GetContract reads a committed snapshot without taking the writer lock.
	GetContract(id ContractId) (*Contract, bool, error)
	// Events returns at most limit persisted events with Seq >= from.
	Events(from uint64, limit int) ([]*Event, error)
	Begin() (StoreTx, error)
}

// StoreTx stages writes that become visible together on Commit.
type StoreTx interface {
	GetContract(id ContractId) (*Contract, bool, error)
	// InsertContract fails with ErrDuplicateContract if id is present in any state.
	InsertContract(id ContractId, c *Contract) error
	// UpdateContract may only set Withdrawn, Refunded and Preimage.
	UpdateContract(id ContractId, c *Contract) error
	// AppendEvent assigns ev.Seq.
	AppendEvent(ev *Event) error
	Commit() error
	Rollback() error
}

// TokenCustodian moves one token between accounts and the escrow account.
// A transfer whose outcome is unknown fails with a *PendingTransferError;
// any other error means nothing moved.
type TokenCustodian interface {
	BalanceOf(account ethcommon.Address) (*big.Int, error)
	// TransferFrom pulls amount from owner into the escrow account using the
	// allowance owner granted to it.
	TransferFrom(owner ethcommon.Address, amount *big.Int) error
	// Transfer pushes amount from the escrow account to recipient.
	Transfer(recipient ethcommon.Address, amount *big.Int) error
	EscrowAccount() ethcommon.Address
}

type CustodianRegistry interface {
	Custodian(tokenContract ethcommon.Address) (TokenCustodian, error)
}

// EventSink receives committed events. Emit must not block.
type EventSink interface {
	Emit(ev *Event)
}

// OpRecorder observes the outcome of every mutating call.
type OpRecorder interface {
	RecordOp(op string, err error)
}

type Clock interface {
	// Now returns unix seconds.
	Now() uint64
}
