package token

import (
	"math/big"

	"github.com/TEENet-io/htlc-go/htlc"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

// Custodian holds one ledger token on behalf of the escrow account.
type Custodian struct {
	ledger *LedgerDB
	token  ethcommon.Address
	escrow ethcommon.Address
}

var _ htlc.TokenCustodian = (*Custodian)(nil)

func NewCustodian(ledger *LedgerDB, token, escrow ethcommon.Address) *Custodian {
	return &Custodian{ledger: ledger, token: token, escrow: escrow}
}

func (c *Custodian) BalanceOf(account ethcommon.Address) (*big.Int, error) {
	return c.ledger.BalanceOf(c.token, account)
}

func (c *Custodian) TransferFrom(owner ethcommon.Address, amount *big.Int) error {
	if err := c.ledger.TransferFrom(c.token, c.escrow, owner, c.escrow, amount); err != nil {
		return err
	}
	logger.WithFields(logger.Fields{
		"token":  c.token.Hex(),
		"owner":  owner.Hex(),
		"amount": amount.String(),
	}).Debug("pulled into escrow")
	return nil
}

func (c *Custodian) Transfer(recipient ethcommon.Address, amount *big.Int) error {
	if err := c.ledger.Transfer(c.token, c.escrow, recipient, amount); err != nil {
		return err
	}
	logger.WithFields(logger.Fields{
		"token":     c.token.Hex(),
		"recipient": recipient.Hex(),
		"amount":    amount.String(),
	}).Debug("released from escrow")
	return nil
}

func (c *Custodian) EscrowAccount() ethcommon.Address {
	return c.escrow
}
