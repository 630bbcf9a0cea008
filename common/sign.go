package common

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request tags keep a signature for one operation from being accepted as
// another one with the same packed payload.
const (
	tagNewContract = "htlc.newContract"
	tagWithdraw    = "htlc.withdraw"
	tagRefund      = "htlc.refund"
	tagApprove     = "htlc.approve"
)

var ErrInvalidSignature = errors.New("invalid signature")

func NewContractDigest(receiver ethcommon.Address, hashlock [32]byte, timelock uint64, tokenContract ethcommon.Address, amount *big.Int) []byte {
	return digest(EncodePacked(tagNewContract, receiver, hashlock, timelock, tokenContract, amount))
}

func WithdrawDigest(id [32]byte, preimage [32]byte) []byte {
	return digest(EncodePacked(tagWithdraw, id, preimage))
}

func RefundDigest(id [32]byte) []byte {
	return digest(EncodePacked(tagRefund, id))
}

func ApproveDigest(tokenContract, spender ethcommon.Address, amount *big.Int) []byte {
	return digest(EncodePacked(tagApprove, tokenContract, spender, amount))
}

// digest is the EIP-191 personal message hash of keccak256(payload) so that
// wallets able to sign text messages can produce request signatures.
func digest(payload []byte) []byte {
	return accounts.TextHash(crypto.Keccak256(payload))
}

// Sign returns a 65-byte [R || S || V] signature with V in {27, 28}.
func Sign(hash []byte, sk *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash, sk)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverAddress returns the address that produced sig over hash. Both the
// {0, 1} and {27, 28} forms of V are accepted.
func RecoverAddress(hash []byte, sig []byte) (ethcommon.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return ethcommon.Address{}, ErrInvalidSignature
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return ethcommon.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}
