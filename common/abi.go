package common

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodePacked mirrors solidity's abi.encodePacked for the value types used
// by the escrow: addresses are 20 raw bytes, *big.Int and uint64 are uint256
// (32 bytes, big endian), fixed byte arrays and hashes are copied as-is and
// strings are their raw utf-8 bytes.
func EncodePacked(values ...interface{}) []byte {
	var res [][]byte
	for _, value := range values {
		switch v := value.(type) {
		case string:
			res = append(res, []byte(v))
		case []byte:
			res = append(res, v)
		case [32]byte:
			res = append(res, v[:])
		case common.Hash:
			res = append(res, v[:])
		case common.Address:
			res = append(res, v[:])
		case *big.Int:
			res = append(res, Uint256Bytes(v))
		case uint64:
			res = append(res, Uint256Bytes(new(big.Int).SetUint64(v)))
		case bool:
			if v {
				res = append(res, []byte{1})
			} else {
				res = append(res, []byte{0})
			}
		default:
			panic("EncodePacked: unsupported type")
		}
	}
	return bytes.Join(res, nil)
}

// Uint256Bytes returns the 32-byte big endian two's complement form of v.
// v is left untouched.
func Uint256Bytes(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return math.U256Bytes(new(big.Int).Set(v))
}
