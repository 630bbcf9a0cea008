package state

import (
	"encoding/json"
	"math/big"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type sqlContract struct {
	Id            string
	Sender        string
	Receiver      string
	TokenContract string
	Amount        string
	Hashlock      string
	Timelock      int64 // bit pattern of the uint64 timelock
	Withdrawn     bool
	Refunded      bool
	Preimage      string
}

func (s *sqlContract) encode(id htlc.ContractId, c *htlc.Contract) *sqlContract {
	s.Id = common.ByteSliceToPureHexStr(id[:])
	s.Sender = common.ByteSliceToPureHexStr(c.Sender[:])
	s.Receiver = common.ByteSliceToPureHexStr(c.Receiver[:])
	s.TokenContract = common.ByteSliceToPureHexStr(c.TokenContract[:])
	s.Amount = common.ByteSliceToPureHexStr(common.Uint256Bytes(c.Amount))
	s.Hashlock = common.ByteSliceToPureHexStr(c.Hashlock[:])
	s.Timelock = int64(c.Timelock)
	s.Withdrawn = c.Withdrawn
	s.Refunded = c.Refunded
	s.Preimage = common.ByteSliceToPureHexStr(c.Preimage[:])
	return s
}

func (s *sqlContract) decode() (*htlc.Contract, error) {
	amount, err := common.ParseBytes32(s.Amount)
	if err != nil {
		return nil, err
	}
	hashlock, err := common.ParseBytes32(s.Hashlock)
	if err != nil {
		return nil, err
	}
	preimage, err := common.ParseBytes32(s.Preimage)
	if err != nil {
		return nil, err
	}

	return &htlc.Contract{
		Sender:        ethcommon.HexToAddress(s.Sender),
		Receiver:      ethcommon.HexToAddress(s.Receiver),
		TokenContract: ethcommon.HexToAddress(s.TokenContract),
		Amount:        new(big.Int).SetBytes(amount[:]),
		Hashlock:      hashlock,
		Timelock:      uint64(s.Timelock),
		Withdrawn:     s.Withdrawn,
		Refunded:      s.Refunded,
		Preimage:      preimage,
	}, nil
}

func encodeEvent(ev *htlc.Event) ([]byte, error) {
	return json.Marshal(ev.ToJSON())
}

func decodeEvent(seq uint64, payload []byte) (*htlc.Event, error) {
	var j htlc.JSONEvent
	if err := json.Unmarshal(payload, &j); err != nil {
		return nil, err
	}
	id, err := htlc.ParseContractId(j.Id)
	if err != nil {
		return nil, err
	}

	ev := &htlc.Event{
		Seq:  seq,
		Kind: htlc.EventKind(j.Kind),
		Id:   id,
	}
	switch ev.Kind {
	case htlc.EventContractCreated:
		amount, err := common.ParseAmount(j.Amount)
		if err != nil {
			return nil, err
		}
		hashlock, err := common.ParseBytes32(j.Hashlock)
		if err != nil {
			return nil, err
		}
		ev.Sender = ethcommon.HexToAddress(j.Sender)
		ev.Receiver = ethcommon.HexToAddress(j.Receiver)
		ev.TokenContract = ethcommon.HexToAddress(j.TokenContract)
		ev.Amount = amount
		ev.Hashlock = hashlock
		ev.Timelock = j.Timelock
	case htlc.EventContractWithdrawn:
		preimage, err := common.ParseBytes32(j.Preimage)
		if err != nil {
			return nil, err
		}
		ev.Preimage = preimage
	}
	if j.PendingTx != "" {
		ev.PendingTx = ethcommon.HexToHash(j.PendingTx)
	}
	return ev, nil
}
