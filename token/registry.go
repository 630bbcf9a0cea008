package token

import (
	"sync"

	"github.com/TEENet-io/htlc-go/htlc"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var ErrUnknownToken = errors.New("unknown token contract")

// Factory builds the custodian for a token not registered explicitly.
type Factory func(token ethcommon.Address) (htlc.TokenCustodian, error)

// Registry maps token contracts to custodians. Custodians produced by the
// factory are cached.
type Registry struct {
	mu         sync.RWMutex
	custodians map[ethcommon.Address]htlc.TokenCustodian
	factory    Factory
}

var _ htlc.CustodianRegistry = (*Registry)(nil)

// NewRegistry creates a registry. factory may be nil, in which case only
// registered tokens are served.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		custodians: make(map[ethcommon.Address]htlc.TokenCustodian),
		factory:    factory,
	}
}

// LedgerFactory serves every token of ledger with escrow as the escrow account.
func LedgerFactory(ledger *LedgerDB, escrow ethcommon.Address) Factory {
	return func(token ethcommon.Address) (htlc.TokenCustodian, error) {
		return NewCustodian(ledger, token, escrow), nil
	}
}

func (r *Registry) Register(token ethcommon.Address, c htlc.TokenCustodian) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custodians[token] = c
}

func (r *Registry) Custodian(token ethcommon.Address) (htlc.TokenCustodian, error) {
	r.mu.RLock()
	c, ok := r.custodians[token]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	if r.factory == nil {
		return nil, errors.Wrapf(ErrUnknownToken, "token=%s", token.Hex())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.custodians[token]; ok {
		return c, nil
	}
	c, err := r.factory(token)
	if err != nil {
		return nil, err
	}
	r.custodians[token] = c
	return c, nil
}
