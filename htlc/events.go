package htlc

import (
	"math/big"

	"github.com/TEENet-io/htlc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventContractCreated   EventKind = "ContractCreated"
	EventContractWithdrawn EventKind = "ContractWithdrawn"
	EventContractRefunded  EventKind = "ContractRefunded"
)

// Event is a log entry. Creation events carry the full tuple, withdraw
// events the revealed preimage, refund events only the id. PendingTx is set
// when the token transfer of the operation was broadcast without a receipt.
type Event struct {
	Seq  uint64
	Kind EventKind
	Id   ContractId

	Sender        ethcommon.Address
	Receiver      ethcommon.Address
	TokenContract ethcommon.Address
	Amount        *big.Int
	Hashlock      [32]byte
	Timelock      uint64

	Preimage [32]byte

	PendingTx ethcommon.Hash
}

func newCreatedEvent(id ContractId, c *Contract) *Event {
	return &Event{
		Kind:          EventContractCreated,
		Id:            id,
		Sender:        c.Sender,
		Receiver:      c.Receiver,
		TokenContract: c.TokenContract,
		Amount:        common.BigIntClone(c.Amount),
		Hashlock:      c.Hashlock,
		Timelock:      c.Timelock,
	}
}

func newWithdrawnEvent(id ContractId, preimage [32]byte) *Event {
	return &Event{Kind: EventContractWithdrawn, Id: id, Preimage: preimage}
}

func newRefundedEvent(id ContractId) *Event {
	return &Event{Kind: EventContractRefunded, Id: id}
}

func (ev *Event) Clone() *Event {
	if ev == nil {
		return nil
	}
	clone := *ev
	if ev.Amount != nil {
		clone.Amount = new(big.Int).Set(ev.Amount)
	}
	return &clone
}

type JSONEvent struct {
	Seq           uint64 `json:"seq"`
	Kind          string `json:"kind"`
	Id            string `json:"id"`
	Sender        string `json:"sender,omitempty"`
	Receiver      string `json:"receiver,omitempty"`
	TokenContract string `json:"tokenContract,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Hashlock      string `json:"hashlock,omitempty"`
	Timelock      uint64 `json:"timelock,omitempty"`
	Preimage      string `json:"preimage,omitempty"`
	PendingTx     string `json:"pendingTx,omitempty"`
}

func (ev *Event) ToJSON() *JSONEvent {
	j := &JSONEvent{
		Seq:  ev.Seq,
		Kind: string(ev.Kind),
		Id:   ev.Id.Hex(),
	}
	switch ev.Kind {
	case EventContractCreated:
		j.Sender = ev.Sender.Hex()
		j.Receiver = ev.Receiver.Hex()
		j.TokenContract = ev.TokenContract.Hex()
		j.Amount = common.BigIntClone(ev.Amount).String()
		j.Hashlock = ethcommon.Hash(ev.Hashlock).Hex()
		j.Timelock = ev.Timelock
	case EventContractWithdrawn:
		j.Preimage = ethcommon.Hash(ev.Preimage).Hex()
	}
	if ev.PendingTx != (ethcommon.Hash{}) {
		j.PendingTx = ev.PendingTx.Hex()
	}
	return j
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(*Event) {}
