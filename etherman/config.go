package etherman

import (
	"crypto/ecdsa"
	"time"
)

const DefaultTxTimeout = 2 * time.Minute

type Config struct {
	// URL is the URL of the Ethereum node
	URL string

	// EscrowPrivateKey signs the token transfers of the escrow account
	EscrowPrivateKey *ecdsa.PrivateKey

	// TxTimeout bounds the wait for a transfer to be mined
	TxTimeout time.Duration
}
