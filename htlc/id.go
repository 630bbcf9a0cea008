package htlc

import (
	"crypto/sha256"
	"math/big"

	"github.com/TEENet-io/htlc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ComputeContractId returns sha256 over the packed encoding
// sender(20) | receiver(20) | token(20) | amount(32) | hashlock(32) | timelock(32),
// the same bytes solidity's abi.encodePacked produces for these types.
func ComputeContractId(
	sender, receiver, tokenContract ethcommon.Address,
	amount *big.Int,
	hashlock [32]byte,
	timelock uint64,
) ContractId {
	return sha256.Sum256(EncodeContractTuple(sender, receiver, tokenContract, amount, hashlock, timelock))
}

func EncodeContractTuple(
	sender, receiver, tokenContract ethcommon.Address,
	amount *big.Int,
	hashlock [32]byte,
	timelock uint64,
) []byte {
	return common.EncodePacked(sender, receiver, tokenContract, amount, hashlock, timelock)
}

// Hashlock returns the commitment for a preimage.
func Hashlock(preimage [32]byte) [32]byte {
	return sha256.Sum256(preimage[:])
}

// zeroPreimageHashlock can never be withdrawn from without breaking the rule
// that a non-zero preimage marks a withdrawn record.
var zeroPreimageHashlock = Hashlock([32]byte{})
