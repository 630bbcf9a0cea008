package token

var (
	// Hex columns carry no 0x prefix; amounts are 32-byte big endian values.
	balanceTable = `CREATE TABLE IF NOT EXISTS balances (
		token CHAR(40) NOT NULL,
		account CHAR(40) NOT NULL,
		amount CHAR(64) NOT NULL,
		PRIMARY KEY (token, account)
	);`

	allowanceTable = `CREATE TABLE IF NOT EXISTS allowances (
		token CHAR(40) NOT NULL,
		owner CHAR(40) NOT NULL,
		spender CHAR(40) NOT NULL,
		amount CHAR(64) NOT NULL,
		PRIMARY KEY (token, owner, spender)
	);`

	// table stores key-value pairs. Both key and value are a 32-byte hex string without prefix '0x'
	kvTable = `CREATE TABLE IF NOT EXISTS kv (
		key CHAR(64) PRIMARY KEY NOT NULL,
		value CHAR(64) NOT NULL
	);`

	queryGetBalance   = `SELECT amount FROM balances WHERE token = ? AND account = ?`
	querySetBalance   = `INSERT OR REPLACE INTO balances (token, account, amount) VALUES (?, ?, ?)`
	queryAllBalances  = `SELECT amount FROM balances WHERE token = ?`
	queryGetAllowance = `SELECT amount FROM allowances WHERE token = ? AND owner = ? AND spender = ?`
	querySetAllowance = `INSERT OR REPLACE INTO allowances (token, owner, spender, amount) VALUES (?, ?, ?, ?)`
	queryGetKV        = `SELECT value FROM kv WHERE key = ?`
	querySetKV        = `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
)
