package state

import (
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/pkg/errors"
)

var (
	ErrContractInvalid       = errors.New("contract is invalid")
	ErrImmutableFieldChanged = errors.New("immutable contract field changed")
	ErrSettlementReverted    = errors.New("settled contract cannot be reverted")
	ErrTxDone                = errors.New("transaction has already been committed or rolled back")
)

// checkInsert enforces the shape of a freshly created record.
func checkInsert(id htlc.ContractId, c *htlc.Contract) error {
	if c == nil || c.IsEmpty() || c.Amount == nil || c.Amount.Sign() <= 0 {
		return ErrContractInvalid
	}
	if c.IsSettled() || c.Preimage != [32]byte{} {
		return ErrContractInvalid
	}
	if c.Id() != id {
		return errors.Wrapf(ErrContractInvalid, "id does not match contract tuple")
	}
	return nil
}

// checkUpdate only lets the settlement fields move forward: a flag once set
// stays set, at most one flag is set and the preimage is non-zero exactly
// when the record is withdrawn.
func checkUpdate(old, c *htlc.Contract) error {
	if c == nil || c.Amount == nil {
		return ErrContractInvalid
	}
	if old.Sender != c.Sender ||
		old.Receiver != c.Receiver ||
		old.TokenContract != c.TokenContract ||
		old.Hashlock != c.Hashlock ||
		old.Timelock != c.Timelock ||
		old.Amount.Cmp(c.Amount) != 0 {
		return ErrImmutableFieldChanged
	}
	if (old.Withdrawn && !c.Withdrawn) || (old.Refunded && !c.Refunded) {
		return ErrSettlementReverted
	}
	if old.Preimage != [32]byte{} && old.Preimage != c.Preimage {
		return ErrSettlementReverted
	}
	if c.Withdrawn && c.Refunded {
		return ErrContractInvalid
	}
	if (c.Preimage != [32]byte{}) != c.Withdrawn {
		return ErrContractInvalid
	}
	return nil
}
