package token

import (
	"database/sql"
	"math/big"

	"github.com/TEENet-io/htlc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var KeyGenesis = crypto.Keccak256Hash([]byte("KeyGenesis"))

// GenesisAlloc is an initial balance minted once when the ledger is created.
type GenesisAlloc struct {
	Token   ethcommon.Address
	Account ethcommon.Address
	Amount  *big.Int
}

func genesisHash(allocs []GenesisAlloc) ethcommon.Hash {
	var values []interface{}
	for _, a := range allocs {
		values = append(values, a.Token, a.Account, a.Amount)
	}
	return crypto.Keccak256Hash(common.EncodePacked(values...))
}

// ApplyGenesis mints allocs unless they have been applied before. Applying
// a different list to a ledger that already has a genesis fails. It reports
// whether anything was minted.
func (l *LedgerDB) ApplyGenesis(allocs []GenesisAlloc) (bool, error) {
	for _, a := range allocs {
		if err := checkAmount(a.Amount); err != nil {
			return false, err
		}
		if a.Account == (ethcommon.Address{}) || a.Token == (ethcommon.Address{}) {
			return false, ErrZeroAddress
		}
	}
	hash := genesisHash(allocs)

	applied := false
	err := l.withTx(func(tx *ledgerTx) error {
		stmt, err := tx.stmtCache.PrepareTx(tx.tx, queryGetKV)
		if err != nil {
			return err
		}
		var stored string
		err = stmt.QueryRow(hexHash(KeyGenesis)).Scan(&stored)
		if err == nil {
			if stored != hexHash(hash) {
				return ErrGenesisMismatch
			}
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		supplies := map[ethcommon.Address]*big.Int{}
		for _, a := range allocs {
			supply, ok := supplies[a.Token]
			if !ok {
				if supply, err = tx.totalSupply(a.Token); err != nil {
					return err
				}
				supplies[a.Token] = supply
			}
			if supply.Add(supply, a.Amount).BitLen() > 256 {
				return ErrSupplyOverflow
			}
			if err := tx.credit(a.Token, a.Account, a.Amount); err != nil {
				return err
			}
		}

		stmt, err = tx.stmtCache.PrepareTx(tx.tx, querySetKV)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(hexHash(KeyGenesis), hexHash(hash)); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func hexHash(h ethcommon.Hash) string {
	return common.ByteSliceToPureHexStr(h[:])
}
