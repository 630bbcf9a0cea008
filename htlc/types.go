package htlc

import (
	"encoding/json"
	"math/big"

	"github.com/TEENet-io/htlc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ContractId identifies an escrow record. See ComputeContractId.
type ContractId [32]byte

func (id ContractId) Hex() string {
	return common.Prepend0xPrefix(common.ByteSliceToPureHexStr(id[:]))
}

func (id ContractId) String() string {
	return id.Hex()
}

func (id ContractId) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

func (id *ContractId) UnmarshalText(text []byte) error {
	b, err := common.ParseBytes32(string(text))
	if err != nil {
		return err
	}
	*id = b
	return nil
}

// ParseContractId accepts a 64 character hex string with or without 0x.
func ParseContractId(str string) (ContractId, error) {
	b, err := common.ParseBytes32(str)
	if err != nil {
		return ContractId{}, err
	}
	return ContractId(b), nil
}

// Contract is one escrow record. Everything except Withdrawn, Refunded and
// Preimage is fixed at creation.
type Contract struct {
	Sender        ethcommon.Address
	Receiver      ethcommon.Address
	TokenContract ethcommon.Address
	Amount        *big.Int
	Hashlock      [32]byte
	Timelock      uint64
	Withdrawn     bool
	Refunded      bool
	Preimage      [32]byte
}

// IsEmpty reports whether c is the zero-valued record returned for an
// unknown id. A stored record never has a zero sender.
func (c *Contract) IsEmpty() bool {
	return c == nil || c.Sender == (ethcommon.Address{})
}

func (c *Contract) IsSettled() bool {
	return c.Withdrawn || c.Refunded
}

func (c *Contract) Id() ContractId {
	return ComputeContractId(c.Sender, c.Receiver, c.TokenContract, c.Amount, c.Hashlock, c.Timelock)
}

func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Amount = common.BigIntClone(c.Amount)
	return &clone
}

// JSONContract keeps the field order of the getContract tuple.
type JSONContract struct {
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	TokenContract string `json:"tokenContract"`
	Amount        string `json:"amount"`
	Hashlock      string `json:"hashlock"`
	Timelock      uint64 `json:"timelock"`
	Withdrawn     bool   `json:"withdrawn"`
	Refunded      bool   `json:"refunded"`
	Preimage      string `json:"preimage"`
}

func (c *Contract) ToJSON() *JSONContract {
	return &JSONContract{
		Sender:        c.Sender.Hex(),
		Receiver:      c.Receiver.Hex(),
		TokenContract: c.TokenContract.Hex(),
		Amount:        common.BigIntClone(c.Amount).String(),
		Hashlock:      ethcommon.Hash(c.Hashlock).Hex(),
		Timelock:      c.Timelock,
		Withdrawn:     c.Withdrawn,
		Refunded:      c.Refunded,
		Preimage:      ethcommon.Hash(c.Preimage).Hex(),
	}
}

func (c *Contract) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

func (c *Contract) UnmarshalJSON(data []byte) error {
	var jc JSONContract
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}
	amount, err := common.ParseAmount(jc.Amount)
	if err != nil {
		return err
	}
	hashlock, err := common.ParseBytes32(jc.Hashlock)
	if err != nil {
		return err
	}
	preimage, err := common.ParseBytes32(jc.Preimage)
	if err != nil {
		return err
	}
	*c = Contract{
		Sender:        ethcommon.HexToAddress(jc.Sender),
		Receiver:      ethcommon.HexToAddress(jc.Receiver),
		TokenContract: ethcommon.HexToAddress(jc.TokenContract),
		Amount:        amount,
		Hashlock:      hashlock,
		Timelock:      jc.Timelock,
		Withdrawn:     jc.Withdrawn,
		Refunded:      jc.Refunded,
		Preimage:      preimage,
	}
	return nil
}

// emptyContract is what readers get for an unknown id.
func emptyContract() *Contract {
	return &Contract{Amount: new(big.Int)}
}
