package state

import (
	"database/sql"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/database"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	queryGetContract    = `SELECT` + contractColumns + `FROM contracts WHERE id = ?`
	queryInsertContract = `INSERT INTO contracts (` + contractParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	queryUpdateContract = `UPDATE contracts SET withdrawn = ?, refunded = ?, preimage = ? WHERE id = ?`
	queryAppendEvent    = `INSERT INTO events (kind, id, payload) VALUES (?, ?, ?)`
	queryEvents         = `SELECT seq, payload FROM events WHERE seq >= ? ORDER BY seq LIMIT ?`
)

// StateDB is the sqlite backed escrow store.
type StateDB struct {
	stmtCache *database.StmtCache
}

var _ htlc.Store = (*StateDB)(nil)

func NewStateDB(db *sql.DB) (*StateDB, error) {
	// 1. Create the tables.
	if _, err := db.Exec(contractTable + eventTable); err != nil {
		return nil, err
	}

	// 2. Warm up the stmt cache so that transactions can reuse the statements
	// even when the pool holds a single connection.
	stmtCache := database.NewStmtCache(db)
	for _, query := range []string{
		queryGetContract, queryInsertContract, queryUpdateContract, queryAppendEvent, queryEvents,
	} {
		if _, err := stmtCache.Prepare(query); err != nil {
			stmtCache.Clear()
			return nil, err
		}
	}

	return &StateDB{
		stmtCache: stmtCache,
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) GetContract(id htlc.ContractId) (*htlc.Contract, bool, error) {
	stmt, err := st.stmtCache.Prepare(queryGetContract)
	if err != nil {
		return nil, false, err
	}
	return getContract(stmt, id)
}

func (st *StateDB) Events(from uint64, limit int) ([]*htlc.Event, error) {
	stmt, err := st.stmtCache.Prepare(queryEvents)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // no limit in sqlite
	}
	rows, err := stmt.Query(int64(from), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*htlc.Event{}
	for rows.Next() {
		var (
			seq     int64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, err
		}
		ev, err := decodeEvent(uint64(seq), payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

func (st *StateDB) Begin() (htlc.StoreTx, error) {
	tx, err := st.stmtCache.Begin()
	if err != nil {
		return nil, err
	}
	return &stateTx{tx: tx, stmtCache: st.stmtCache}, nil
}

type stateTx struct {
	tx        *sql.Tx
	stmtCache *database.StmtCache
}

func (t *stateTx) GetContract(id htlc.ContractId) (*htlc.Contract, bool, error) {
	stmt, err := t.stmtCache.PrepareTx(t.tx, queryGetContract)
	if err != nil {
		return nil, false, err
	}
	return getContract(stmt, id)
}

func (t *stateTx) InsertContract(id htlc.ContractId, c *htlc.Contract) error {
	if err := checkInsert(id, c); err != nil {
		return err
	}

	stmt, err := t.stmtCache.PrepareTx(t.tx, queryInsertContract)
	if err != nil {
		return err
	}

	s := (&sqlContract{}).encode(id, c)
	if _, err := stmt.Exec(
		s.Id,
		s.Sender,
		s.Receiver,
		s.TokenContract,
		s.Amount,
		s.Hashlock,
		s.Timelock,
		s.Withdrawn,
		s.Refunded,
		s.Preimage,
	); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return errors.Wrapf(htlc.ErrDuplicateContract, "id=%s", id.Hex())
		}
		return err
	}

	return nil
}

func (t *stateTx) UpdateContract(id htlc.ContractId, c *htlc.Contract) error {
	old, ok, err := t.GetContract(id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(htlc.ErrNotFound, "id=%s", id.Hex())
	}
	if err := checkUpdate(old, c); err != nil {
		return err
	}

	stmt, err := t.stmtCache.PrepareTx(t.tx, queryUpdateContract)
	if err != nil {
		return err
	}

	s := (&sqlContract{}).encode(id, c)
	_, err = stmt.Exec(s.Withdrawn, s.Refunded, s.Preimage, s.Id)
	return err
}

func (t *stateTx) AppendEvent(ev *htlc.Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	stmt, err := t.stmtCache.PrepareTx(t.tx, queryAppendEvent)
	if err != nil {
		return err
	}

	res, err := stmt.Exec(string(ev.Kind), common.ByteSliceToPureHexStr(ev.Id[:]), payload)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.Seq = uint64(seq)

	return nil
}

func (t *stateTx) Commit() error {
	return t.tx.Commit()
}

func (t *stateTx) Rollback() error {
	return t.tx.Rollback()
}

func getContract(stmt *sql.Stmt, id htlc.ContractId) (*htlc.Contract, bool, error) {
	s := &sqlContract{}
	if err := stmt.QueryRow(common.ByteSliceToPureHexStr(id[:])).Scan(
		&s.Sender,
		&s.Receiver,
		&s.TokenContract,
		&s.Amount,
		&s.Hashlock,
		&s.Timelock,
		&s.Withdrawn,
		&s.Refunded,
		&s.Preimage,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	c, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}
