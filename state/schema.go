package state

import "strings"

var (
	strZeroBytes32 = strings.Repeat("0", 64)
	strZeroBytes20 = strings.Repeat("0", 40)

	// One row per escrow record. Hex columns carry no 0x prefix. amount is the
	// 32-byte big endian value so that the full uint256 range survives.
	contractTable = `CREATE TABLE IF NOT EXISTS contracts (
		id CHAR(64) PRIMARY KEY NOT NULL,
		sender CHAR(40) NOT NULL,
		receiver CHAR(40) NOT NULL,
		tokenContract CHAR(40) NOT NULL,
		amount CHAR(64) NOT NULL,
		hashlock CHAR(64) NOT NULL,
		timelock BIGINT NOT NULL,
		withdrawn BOOLEAN NOT NULL DEFAULT 0,
		refunded BOOLEAN NOT NULL DEFAULT 0,
		preimage CHAR(64) NOT NULL DEFAULT '` + strZeroBytes32 + `',
		CONSTRAINT chk_sender CHECK (sender != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_amount CHECK (amount != '` + strZeroBytes32 + `'),
		CONSTRAINT chk_settled CHECK (NOT (withdrawn AND refunded)),
		CONSTRAINT chk_preimage CHECK ((preimage != '` + strZeroBytes32 + `') = withdrawn)
	);`

	// Append-only log of lifecycle events.
	eventTable = `CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind VARCHAR(20) NOT NULL,
		id CHAR(64) NOT NULL,
		payload BLOB NOT NULL,
		CONSTRAINT chk_kind CHECK (kind IN ('ContractCreated', 'ContractWithdrawn', 'ContractRefunded'))
	);`

	contractParamList = " id, sender, receiver, tokenContract, amount, hashlock, timelock, withdrawn, refunded, preimage "
	contractColumns   = " sender, receiver, tokenContract, amount, hashlock, timelock, withdrawn, refunded, preimage "
)
