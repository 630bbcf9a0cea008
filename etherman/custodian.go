package etherman

import (
	"context"
	"math/big"
	"time"

	"github.com/TEENet-io/htlc-go/contracts/ERC20"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrNoContractCode = errors.New("no contract code at address")
	ErrTxReverted     = errors.New("transaction reverted")
)

// ERC20Custodian moves one ERC20 token on behalf of the escrow account. Every
// transfer waits until its transaction is mined. A transfer that was sent but
// not mined in time fails with a htlc.PendingTransferError, since it may
// still land.
type ERC20Custodian struct {
	client  ethereumClient
	token   *ERC20.ERC20
	address ethcommon.Address
	auth    *bind.TransactOpts
	timeout time.Duration
}

var _ htlc.TokenCustodian = (*ERC20Custodian)(nil)

func NewERC20Custodian(
	client ethereumClient,
	tokenAddress ethcommon.Address,
	auth *bind.TransactOpts,
	timeout time.Duration,
) (*ERC20Custodian, error) {
	token, err := ERC20.NewERC20(tokenAddress, client)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	return &ERC20Custodian{
		client:  client,
		token:   token,
		address: tokenAddress,
		auth:    auth,
		timeout: timeout,
	}, nil
}

func (c *ERC20Custodian) BalanceOf(account ethcommon.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.token.BalanceOf(&bind.CallOpts{Context: ctx}, account)
}

func (c *ERC20Custodian) Allowance(owner ethcommon.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.token.Allowance(&bind.CallOpts{Context: ctx}, owner, c.auth.From)
}

func (c *ERC20Custodian) TransferFrom(owner ethcommon.Address, amount *big.Int) error {
	return c.send("transferFrom", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.token.TransferFrom(opts, owner, c.auth.From, amount)
	})
}

func (c *ERC20Custodian) Transfer(recipient ethcommon.Address, amount *big.Int) error {
	return c.send("transfer", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.token.Transfer(opts, recipient, amount)
	})
}

func (c *ERC20Custodian) EscrowAccount() ethcommon.Address {
	return c.auth.From
}

func (c *ERC20Custodian) send(method string, fn func(opts *bind.TransactOpts) (*types.Transaction, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	opts := *c.auth
	opts.Context = ctx

	tx, err := fn(&opts)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s", method)
	}

	newLogger := logger.WithFields(logger.Fields{
		"token":  c.address.Hex(),
		"method": method,
		"tx":     tx.Hash().Hex(),
	})
	newLogger.Debug("sent tx")

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		newLogger.Warnf("no receipt for sent tx: err=%v", err)
		return &htlc.PendingTransferError{
			TxHash: tx.Hash(),
			Err:    errors.Wrapf(err, "failed to wait for %s", method),
		}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.Wrapf(ErrTxReverted, "tx=%s", tx.Hash().Hex())
	}

	newLogger.WithField("block", receipt.BlockNumber.String()).Debug("tx mined")
	return nil
}
