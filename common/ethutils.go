package common

import (
	"crypto/ecdsa"
	"crypto/rand"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func RandEthAddress() ethcommon.Address {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return ethcommon.Address{}
	}
	return ethcommon.BytesToAddress(b[:])
}

// StringToPrivateKey parses a hex encoded secp256k1 key (with/without 0x).
func StringToPrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(Trim0xPrefix(hexKey))
}

func PrivateKeyToString(sk *ecdsa.PrivateKey) string {
	return ethcommon.Bytes2Hex(crypto.FromECDSA(sk))
}

// GenPrivateKeys is a test helper producing n fresh keys.
func GenPrivateKeys(n int) []*ecdsa.PrivateKey {
	keys := make([]*ecdsa.PrivateKey, n)
	for i := 0; i < n; i++ {
		sk, err := crypto.GenerateKey()
		if err != nil {
			panic(err)
		}
		keys[i] = sk
	}
	return keys
}
