package etherman

import (
	"context"
	"math/big"

	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
)

type ethereumClient interface {
	ethereum.ChainReader
	ChainID(ctx context.Context) (*big.Int, error)

	bind.DeployBackend
	bind.ContractBackend
}

// Etherman connects the escrow account to an Ethereum node. It hands out
// ERC20 custodians for any token contract and reads the chain clock.
type Etherman struct {
	ethClient ethereumClient
	auth      *bind.TransactOpts
	cfg       *Config
	closeFn   func()
}

func NewEtherman(cfg *Config) (*Etherman, error) {
	if cfg.EscrowPrivateKey == nil {
		return nil, errors.New("escrow private key is required")
	}

	client, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", cfg.URL)
	}

	chainId, err := client.ChainID(context.Background())
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to get chain id")
	}

	auth, err := bind.NewKeyedTransactorWithChainID(cfg.EscrowPrivateKey, chainId)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"url":     cfg.URL,
		"chainId": chainId.String(),
		"escrow":  auth.From.Hex(),
	}).Info("connected to ethereum node")

	e := NewEthermanWithClient(client, auth, cfg)
	e.closeFn = client.Close
	return e, nil
}

// NewEthermanWithClient wraps an existing client, e.g. a simulated one.
func NewEthermanWithClient(client ethereumClient, auth *bind.TransactOpts, cfg *Config) *Etherman {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = DefaultTxTimeout
	}
	return &Etherman{
		ethClient: client,
		auth:      auth,
		cfg:       cfg,
	}
}

func (e *Etherman) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

func (e *Etherman) EscrowAccount() ethcommon.Address {
	return e.auth.From
}

// Custodian binds the ERC20 token at tokenAddress. It checks that code is
// deployed there.
func (e *Etherman) Custodian(tokenAddress ethcommon.Address) (htlc.TokenCustodian, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.TxTimeout)
	defer cancel()

	code, err := e.ethClient.CodeAt(ctx, tokenAddress, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get code at %s", tokenAddress.Hex())
	}
	if len(code) == 0 {
		return nil, errors.Wrapf(ErrNoContractCode, "token=%s", tokenAddress.Hex())
	}

	return NewERC20Custodian(e.ethClient, tokenAddress, e.auth, e.cfg.TxTimeout)
}

func (e *Etherman) LatestBlockTime(ctx context.Context) (uint64, error) {
	header, err := e.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}

func (e *Etherman) ChainID(ctx context.Context) (*big.Int, error) {
	return e.ethClient.ChainID(ctx)
}
