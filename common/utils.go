package common

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidHexBytes32 = errors.New("expect a 32-byte hex string")
	ErrInvalidAmount     = errors.New("expect a non-negative decimal or 0x-prefixed hex integer")
)

// The returned string has No 0x prefix
func ByteSliceToPureHexStr(b []byte) string {
	return ethcommon.Bytes2Hex(b)
}

// ParseBytes32 converts a hex string (with/without prefix 0x) to [32]byte.
// The input must hold exactly 64 hex characters.
func ParseBytes32(hexStr string) ([32]byte, error) {
	var b [32]byte
	str := Trim0xPrefix(hexStr)
	if len(str) != 64 {
		return b, ErrInvalidHexBytes32
	}
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return b, ErrInvalidHexBytes32
	}
	copy(b[:], decoded)
	return b, nil
}

// ParseAmount accepts decimal ("100") or 0x-prefixed hex ("0x64") strings.
func ParseAmount(str string) (*big.Int, error) {
	str = strings.TrimSpace(str)
	var (
		v  *big.Int
		ok bool
	)
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		v, ok = new(big.Int).SetString(Trim0xPrefix(str), 16)
	} else {
		v, ok = new(big.Int).SetString(str, 10)
	}
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// Trim 0x or 0X prefix off the string.
func Trim0xPrefix(str string) string {
	s := strings.TrimPrefix(str, "0x")
	return strings.TrimPrefix(s, "0X")
}

func Prepend0xPrefix(str string) string {
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		return str
	}
	return "0x" + str
}

// RandBytes32 generates [32]byte with random values
func RandBytes32() [32]byte {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return [32]byte{}
	}
	return b
}

// Shorten shortens a hex string so that both sides have n characters and
// the rest is replaced with "..."
func Shorten(hexStr string, n int) string {
	str := Trim0xPrefix(hexStr)

	if len(str) <= n*2 {
		return Prepend0xPrefix(str)
	}
	return Prepend0xPrefix(str[:n] + "..." + str[len(str)-n:])
}

func BigIntClone(bigInt *big.Int) *big.Int {
	if bigInt == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(bigInt)
}
