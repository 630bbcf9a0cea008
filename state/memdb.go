package state

import (
	"sync"

	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/pkg/errors"
)

// MemDB is an in-memory escrow store. Only one transaction is open at a
// time; reads outside a transaction see committed data only.
type MemDB struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	contracts map[htlc.ContractId]*htlc.Contract
	events    []*htlc.Event
}

var _ htlc.Store = (*MemDB)(nil)

func NewMemDB() *MemDB {
	return &MemDB{
		contracts: make(map[htlc.ContractId]*htlc.Contract),
	}
}

func (db *MemDB) GetContract(id htlc.ContractId) (*htlc.Contract, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	c, ok := db.contracts[id]
	if !ok {
		return nil, false, nil
	}
	return c.Clone(), true, nil
}

func (db *MemDB) Events(from uint64, limit int) ([]*htlc.Event, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	events := []*htlc.Event{}
	for _, ev := range db.events {
		if ev.Seq < from {
			continue
		}
		if limit > 0 && len(events) >= limit {
			break
		}
		events = append(events, ev.Clone())
	}
	return events, nil
}

func (db *MemDB) Begin() (htlc.StoreTx, error) {
	db.txMu.Lock()
	return &memTx{
		db:     db,
		staged: make(map[htlc.ContractId]*htlc.Contract),
	}, nil
}

type memTx struct {
	db     *MemDB
	staged map[htlc.ContractId]*htlc.Contract
	events []*htlc.Event
	done   bool
}

func (t *memTx) GetContract(id htlc.ContractId) (*htlc.Contract, bool, error) {
	if t.done {
		return nil, false, ErrTxDone
	}
	if c, ok := t.staged[id]; ok {
		return c.Clone(), true, nil
	}
	return t.db.GetContract(id)
}

func (t *memTx) InsertContract(id htlc.ContractId, c *htlc.Contract) error {
	if t.done {
		return ErrTxDone
	}
	if err := checkInsert(id, c); err != nil {
		return err
	}
	_, ok, _ := t.GetContract(id)
	if ok {
		return errors.Wrapf(htlc.ErrDuplicateContract, "id=%s", id.Hex())
	}
	t.staged[id] = c.Clone()
	return nil
}

func (t *memTx) UpdateContract(id htlc.ContractId, c *htlc.Contract) error {
	if t.done {
		return ErrTxDone
	}
	old, ok, _ := t.GetContract(id)
	if !ok {
		return errors.Wrapf(htlc.ErrNotFound, "id=%s", id.Hex())
	}
	if err := checkUpdate(old, c); err != nil {
		return err
	}
	t.staged[id] = c.Clone()
	return nil
}

func (t *memTx) AppendEvent(ev *htlc.Event) error {
	if t.done {
		return ErrTxDone
	}
	t.db.mu.RLock()
	ev.Seq = uint64(len(t.db.events) + len(t.events) + 1)
	t.db.mu.RUnlock()

	t.events = append(t.events, ev.Clone())
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.db.txMu.Unlock()

	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for id, c := range t.staged {
		t.db.contracts[id] = c
	}
	t.db.events = append(t.db.events, t.events...)
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.db.txMu.Unlock()
	return nil
}
