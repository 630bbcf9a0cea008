package etherman

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/TEENet-io/htlc-go/contracts/ERC20"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
)

var (
	simulatedChainID = big.NewInt(1337)
	blockGasLimit    = uint64(999999999999999999)
)

type SimulatedChain struct {
	Backend  *simulated.Backend
	Accounts []*bind.TransactOpts
	Keys     []*ecdsa.PrivateKey

	// Client mines a block after every sent transaction.
	Client *AutoCommitClient
}

func NewSimulatedChain() *SimulatedChain {
	// create accounts
	nAccount := 10
	accounts := make([]*bind.TransactOpts, nAccount)
	keys := make([]*ecdsa.PrivateKey, nAccount)
	for i := 0; i < nAccount; i++ {
		keys[i], _ = crypto.GenerateKey()
		accounts[i], _ = bind.NewKeyedTransactorWithChainID(keys[i], simulatedChainID)
	}

	// allocate funds to accounts
	genesisAlloc := map[common.Address]types.Account{}
	for _, account := range accounts {
		balance, _ := new(big.Int).SetString("100000000000000000000", 10)
		genesisAlloc[account.From] = types.Account{
			Balance: balance,
		}
	}

	// create simulated backend
	backend := simulated.NewBackend(genesisAlloc, simulated.WithBlockGasLimit(blockGasLimit))

	return &SimulatedChain{
		Backend:  backend,
		Accounts: accounts,
		Keys:     keys,
		Client:   &AutoCommitClient{Client: backend.Client(), backend: backend},
	}
}

func (sim *SimulatedChain) Close() error {
	return sim.Backend.Close()
}

// Etherman returns an Etherman whose escrow account is Accounts[idx].
func (sim *SimulatedChain) Etherman(idx int) *Etherman {
	return NewEthermanWithClient(sim.Client, sim.Accounts[idx], &Config{})
}

// DeployERC20 deploys a token owned, and thus mintable, by Accounts[owner].
func (sim *SimulatedChain) DeployERC20(owner int) (common.Address, *ERC20.ERC20, error) {
	address, _, token, err := ERC20.DeployERC20(sim.Accounts[owner], sim.Client, sim.Accounts[owner].From)
	if err != nil {
		return common.Address{}, nil, err
	}
	return address, token, nil
}

// AutoCommitClient is a simulated client that mines every transaction right
// away so that callers waiting for receipts do not block.
type AutoCommitClient struct {
	simulated.Client
	backend *simulated.Backend
}

func (c *AutoCommitClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	c.backend.Commit()
	return nil
}
