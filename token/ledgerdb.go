package token

import (
	"database/sql"
	"math/big"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInvalidAmount         = errors.New("amount must be positive and fit in 256 bits")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrSupplyOverflow        = errors.New("token supply overflows 256 bits")
	ErrZeroAddress           = errors.New("zero address")
	ErrGenesisMismatch       = errors.New("a different genesis has already been applied")
)

// LedgerDB is a sqlite backed fungible-token ledger holding any number of
// tokens, each identified by a contract address. Balances and allowances
// follow ERC20 semantics.
type LedgerDB struct {
	stmtCache *database.StmtCache
}

func NewLedgerDB(db *sql.DB) (*LedgerDB, error) {
	if _, err := db.Exec(balanceTable + allowanceTable + kvTable); err != nil {
		return nil, err
	}

	stmtCache := database.NewStmtCache(db)
	for _, query := range []string{
		queryGetBalance, querySetBalance, queryAllBalances,
		queryGetAllowance, querySetAllowance, queryGetKV, querySetKV,
	} {
		if _, err := stmtCache.Prepare(query); err != nil {
			stmtCache.Clear()
			return nil, err
		}
	}

	return &LedgerDB{stmtCache: stmtCache}, nil
}

func (l *LedgerDB) Close() {
	l.stmtCache.Clear()
}

func (l *LedgerDB) BalanceOf(token, account ethcommon.Address) (*big.Int, error) {
	stmt, err := l.stmtCache.Prepare(queryGetBalance)
	if err != nil {
		return nil, err
	}
	return queryAmount(stmt, hexAddr(token), hexAddr(account))
}

func (l *LedgerDB) Allowance(token, owner, spender ethcommon.Address) (*big.Int, error) {
	stmt, err := l.stmtCache.Prepare(queryGetAllowance)
	if err != nil {
		return nil, err
	}
	return queryAmount(stmt, hexAddr(token), hexAddr(owner), hexAddr(spender))
}

func (l *LedgerDB) TotalSupply(token ethcommon.Address) (*big.Int, error) {
	stmt, err := l.stmtCache.Prepare(queryAllBalances)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(hexAddr(token))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := new(big.Int)
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		v, err := decodeAmount(amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, rows.Err()
}

// Mint credits account with amount new tokens.
func (l *LedgerDB) Mint(token, account ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if account == (ethcommon.Address{}) {
		return ErrZeroAddress
	}

	return l.withTx(func(tx *ledgerTx) error {
		supply, err := tx.totalSupply(token)
		if err != nil {
			return err
		}
		if new(big.Int).Add(supply, amount).BitLen() > 256 {
			return ErrSupplyOverflow
		}
		return tx.credit(token, account, amount)
	})
}

// Approve sets the amount spender may move out of owner's balance.
func (l *LedgerDB) Approve(token, owner, spender ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return ErrInvalidAmount
	}
	if spender == (ethcommon.Address{}) {
		return ErrZeroAddress
	}

	return l.withTx(func(tx *ledgerTx) error {
		return tx.setAllowance(token, owner, spender, amount)
	})
}

func (l *LedgerDB) Transfer(token, from, to ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (ethcommon.Address{}) {
		return ErrZeroAddress
	}

	return l.withTx(func(tx *ledgerTx) error {
		return tx.transfer(token, from, to, amount)
	})
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming spender's allowance.
func (l *LedgerDB) TransferFrom(token, spender, owner, recipient ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if recipient == (ethcommon.Address{}) {
		return ErrZeroAddress
	}

	return l.withTx(func(tx *ledgerTx) error {
		allowance, err := tx.allowance(token, owner, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return errors.Wrapf(ErrInsufficientAllowance, "allowance=%s, amount=%s", allowance, amount)
		}
		if err := tx.transfer(token, owner, recipient, amount); err != nil {
			return err
		}
		return tx.setAllowance(token, owner, spender, allowance.Sub(allowance, amount))
	})
}

func (l *LedgerDB) withTx(fn func(tx *ledgerTx) error) error {
	sqlTx, err := l.stmtCache.Begin()
	if err != nil {
		return err
	}

	if err := fn(&ledgerTx{tx: sqlTx, stmtCache: l.stmtCache}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

type ledgerTx struct {
	tx        *sql.Tx
	stmtCache *database.StmtCache
}

func (t *ledgerTx) balance(token, account ethcommon.Address) (*big.Int, error) {
	stmt, err := t.stmtCache.PrepareTx(t.tx, queryGetBalance)
	if err != nil {
		return nil, err
	}
	return queryAmount(stmt, hexAddr(token), hexAddr(account))
}

func (t *ledgerTx) allowance(token, owner, spender ethcommon.Address) (*big.Int, error) {
	stmt, err := t.stmtCache.PrepareTx(t.tx, queryGetAllowance)
	if err != nil {
		return nil, err
	}
	return queryAmount(stmt, hexAddr(token), hexAddr(owner), hexAddr(spender))
}

func (t *ledgerTx) totalSupply(token ethcommon.Address) (*big.Int, error) {
	stmt, err := t.stmtCache.PrepareTx(t.tx, queryAllBalances)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(hexAddr(token))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	total := new(big.Int)
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		v, err := decodeAmount(amount)
		if err != nil {
			return nil, err
		}
		total.Add(total, v)
	}
	return total, rows.Err()
}

func (t *ledgerTx) setBalance(token, account ethcommon.Address, amount *big.Int) error {
	stmt, err := t.stmtCache.PrepareTx(t.tx, querySetBalance)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(hexAddr(token), hexAddr(account), encodeAmount(amount))
	return err
}

func (t *ledgerTx) setAllowance(token, owner, spender ethcommon.Address, amount *big.Int) error {
	stmt, err := t.stmtCache.PrepareTx(t.tx, querySetAllowance)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(hexAddr(token), hexAddr(owner), hexAddr(spender), encodeAmount(amount))
	return err
}

func (t *ledgerTx) credit(token, account ethcommon.Address, amount *big.Int) error {
	bal, err := t.balance(token, account)
	if err != nil {
		return err
	}
	return t.setBalance(token, account, bal.Add(bal, amount))
}

func (t *ledgerTx) transfer(token, from, to ethcommon.Address, amount *big.Int) error {
	bal, err := t.balance(token, from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "balance=%s, amount=%s", bal, amount)
	}
	if err := t.setBalance(token, from, bal.Sub(bal, amount)); err != nil {
		return err
	}
	return t.credit(token, to, amount)
}

func queryAmount(stmt *sql.Stmt, args ...interface{}) (*big.Int, error) {
	var amount string
	if err := stmt.QueryRow(args...).Scan(&amount); err != nil {
		if err == sql.ErrNoRows {
			return new(big.Int), nil
		}
		return nil, err
	}
	return decodeAmount(amount)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 || amount.BitLen() > 256 {
		return ErrInvalidAmount
	}
	return nil
}

func hexAddr(addr ethcommon.Address) string {
	return common.ByteSliceToPureHexStr(addr[:])
}

func encodeAmount(amount *big.Int) string {
	return common.ByteSliceToPureHexStr(common.Uint256Bytes(amount))
}

func decodeAmount(str string) (*big.Int, error) {
	b, err := common.ParseBytes32(str)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b[:]), nil
}
