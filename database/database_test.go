package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStmtCache(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`)
	require.NoError(t, err)

	sc := NewStmtCache(db)
	defer sc.Clear()

	insert := `INSERT INTO kv (k, v) VALUES (?, ?)`
	stmt1, err := sc.Prepare(insert)
	require.NoError(t, err)
	stmt2, err := sc.Prepare(insert)
	require.NoError(t, err)
	assert.Same(t, stmt1, stmt2)

	_, err = sc.Prepare(`SELECT * FROM missing`)
	assert.Error(t, err)

	// rolled back writes are not visible
	tx, err := sc.Begin()
	require.NoError(t, err)
	stmt, err := sc.PrepareTx(tx, insert)
	require.NoError(t, err)
	_, err = stmt.Exec("a", "1")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	assert.Equal(t, 0, n)

	tx, err = sc.Begin()
	require.NoError(t, err)
	stmt, err = sc.PrepareTx(tx, insert)
	require.NoError(t, err)
	_, err = stmt.Exec("a", "1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenSQLitePrivate(t *testing.T) {
	db1, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	db2, err := OpenSQLite("")
	require.NoError(t, err)
	defer db2.Close()

	_, err = db1.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`)
	require.NoError(t, err)
	_, err = db1.Exec(`INSERT INTO kv (k, v) VALUES ('a', '1')`)
	require.NoError(t, err)

	// separate databases
	_, err = db2.Exec(`SELECT * FROM kv`)
	assert.Error(t, err)

	// a reader sees the last commit while a writer holds its tx open
	tx, err := db1.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO kv (k, v) VALUES ('b', '2')`)
	require.NoError(t, err)

	count := make(chan int, 1)
	go func() {
		var n int
		if err := db1.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
			n = -1
		}
		count <- n
	}()
	select {
	case n := <-count:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("read blocked by the open write tx")
	}
	require.NoError(t, tx.Commit())

	var file string
	var seq int
	var name string
	require.NoError(t, db1.QueryRow(`PRAGMA database_list`).Scan(&seq, &name, &file))
	require.NotEmpty(t, file)
	dir := filepath.Dir(file)
	assert.DirExists(t, dir)

	require.NoError(t, db1.Close())
	assert.NoDirExists(t, dir)
}
