package htlc

import (
	"math/big"
	"sync"

	"github.com/TEENet-io/htlc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// RandPreimage returns a random preimage and its hashlock.
func RandPreimage() (preimage [32]byte, hashlock [32]byte) {
	preimage = common.RandBytes32()
	return preimage, Hashlock(preimage)
}

// RandContract returns an active record with random parties.
func RandContract(timelock uint64) *Contract {
	_, hashlock := RandPreimage()
	return &Contract{
		Sender:        common.RandEthAddress(),
		Receiver:      common.RandEthAddress(),
		TokenContract: common.RandEthAddress(),
		Amount:        big.NewInt(100),
		Hashlock:      hashlock,
		Timelock:      timelock,
	}
}

var (
	ErrSimInsufficientBalance   = errors.New("insufficient balance")
	ErrSimInsufficientAllowance = errors.New("insufficient allowance")
	ErrSimFailure               = errors.New("simulated custodian failure")
)

// SimCustodian is an in-memory custodian for one token with switches to
// make pulls or pushes fail, or land without confirming.
type SimCustodian struct {
	mu sync.Mutex

	escrow     ethcommon.Address
	balances   map[ethcommon.Address]*big.Int
	allowances map[ethcommon.Address]*big.Int

	FailTransferFrom bool
	FailTransfer     bool

	// Stalled moves go through but report a PendingTransferError.
	StallTransferFrom bool
	StallTransfer     bool
}

var _ TokenCustodian = (*SimCustodian)(nil)

func NewSimCustodian(escrow ethcommon.Address) *SimCustodian {
	return &SimCustodian{
		escrow:     escrow,
		balances:   make(map[ethcommon.Address]*big.Int),
		allowances: make(map[ethcommon.Address]*big.Int),
	}
}

func (s *SimCustodian) Mint(account ethcommon.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(account, amount)
}

// Approve sets the allowance owner grants to the escrow account.
func (s *SimCustodian) Approve(owner ethcommon.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances[owner] = new(big.Int).Set(amount)
}

func (s *SimCustodian) Allowance(owner ethcommon.Address) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return common.BigIntClone(s.allowances[owner])
}

func (s *SimCustodian) BalanceOf(account ethcommon.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return common.BigIntClone(s.balances[account]), nil
}

func (s *SimCustodian) TransferFrom(owner ethcommon.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailTransferFrom {
		return ErrSimFailure
	}
	if common.BigIntClone(s.allowances[owner]).Cmp(amount) < 0 {
		return ErrSimInsufficientAllowance
	}
	if err := s.move(owner, s.escrow, amount); err != nil {
		return err
	}
	s.allowances[owner] = new(big.Int).Sub(s.allowances[owner], amount)
	if s.StallTransferFrom {
		return stalled()
	}
	return nil
}

func (s *SimCustodian) Transfer(recipient ethcommon.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailTransfer {
		return ErrSimFailure
	}
	if err := s.move(s.escrow, recipient, amount); err != nil {
		return err
	}
	if s.StallTransfer {
		return stalled()
	}
	return nil
}

func stalled() error {
	return &PendingTransferError{
		TxHash: common.RandBytes32(),
		Err:    errors.New("receipt not available"),
	}
}

func (s *SimCustodian) EscrowAccount() ethcommon.Address {
	return s.escrow
}

func (s *SimCustodian) move(from, to ethcommon.Address, amount *big.Int) error {
	if common.BigIntClone(s.balances[from]).Cmp(amount) < 0 {
		return ErrSimInsufficientBalance
	}
	s.add(from, new(big.Int).Neg(amount))
	s.add(to, amount)
	return nil
}

func (s *SimCustodian) add(account ethcommon.Address, amount *big.Int) {
	s.balances[account] = new(big.Int).Add(common.BigIntClone(s.balances[account]), amount)
}

// SimRegistry maps token contracts to custodians.
type SimRegistry struct {
	mu         sync.RWMutex
	custodians map[ethcommon.Address]TokenCustodian
}

func NewSimRegistry() *SimRegistry {
	return &SimRegistry{custodians: make(map[ethcommon.Address]TokenCustodian)}
}

func (r *SimRegistry) Register(token ethcommon.Address, c TokenCustodian) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custodians[token] = c
}

func (r *SimRegistry) Custodian(token ethcommon.Address) (TokenCustodian, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.custodians[token]
	if !ok {
		return nil, errors.Errorf("unknown token %s", token.Hex())
	}
	return c, nil
}

// RecordingSink keeps every emitted event.
type RecordingSink struct {
	mu     sync.Mutex
	events []*Event
}

func (s *RecordingSink) Emit(ev *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev.Clone())
}

func (s *RecordingSink) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Event(nil), s.events...)
}
