package htlc

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Error classes. Every error returned by the Engine matches exactly one of
// them with errors.Is, store failures excepted.
var (
	ErrValidation        = errors.New("validation error")
	ErrDuplicateContract = errors.New("contract already exists")
	ErrUnauthorized      = errors.New("unauthorized caller")
	ErrPreimageMismatch  = errors.New("preimage does not match hashlock")
	ErrTiming            = errors.New("timing error")
	ErrAlreadySettled    = errors.New("contract already settled")
	ErrNotFound          = errors.New("contract not found")
	ErrCustodian         = errors.New("token custodian failure")
	// ErrTransferPending is returned when a token transfer was broadcast but
	// its outcome is unknown. The operation is committed and must not be
	// retried.
	ErrTransferPending = errors.New("token transfer pending")
)

var (
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be greater than zero and fit in 256 bits", ErrValidation)
	ErrTimelockInPast  = fmt.Errorf("%w: timelock must be in the future", ErrValidation)
	ErrInvalidSender   = fmt.Errorf("%w: sender must not be the zero address", ErrValidation)
	ErrInvalidReceiver = fmt.Errorf("%w: receiver must not be the zero address", ErrValidation)
	ErrInvalidToken    = fmt.Errorf("%w: token contract must not be the zero address", ErrValidation)
	ErrInvalidHashlock = fmt.Errorf("%w: hashlock commits to the zero preimage", ErrValidation)
	ErrExpired         = fmt.Errorf("%w: timelock has passed", ErrTiming)
	ErrNotYetExpired   = fmt.Errorf("%w: timelock not yet passed", ErrTiming)
)

const (
	KindValidation        = "ValidationError"
	KindDuplicateContract = "DuplicateContractError"
	KindUnauthorized      = "UnauthorizedError"
	KindPreimageMismatch  = "PreimageMismatchError"
	KindTiming            = "TimingError"
	KindAlreadySettled    = "AlreadySettledError"
	KindNotFound          = "NotFoundError"
	KindCustodian         = "CustodianError"
	KindTransferPending   = "TransferPendingError"
	KindInternal          = "InternalError"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrDuplicateContract, KindDuplicateContract},
	{ErrUnauthorized, KindUnauthorized},
	{ErrPreimageMismatch, KindPreimageMismatch},
	{ErrTiming, KindTiming},
	{ErrAlreadySettled, KindAlreadySettled},
	{ErrNotFound, KindNotFound},
	{ErrTransferPending, KindTransferPending},
	{ErrCustodian, KindCustodian},
}

// ErrorKind names the class of err, "" for nil and KindInternal for errors
// outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// PendingTransferError reports a transfer that reached the network without a
// receipt. TxHash identifies it for reconciliation.
type PendingTransferError struct {
	TxHash ethcommon.Hash
	Err    error
}

func (e *PendingTransferError) Error() string {
	return fmt.Sprintf("%v: tx=%s: %v", ErrTransferPending, e.TxHash.Hex(), e.Err)
}

func (e *PendingTransferError) Unwrap() []error {
	return []error{ErrTransferPending, e.Err}
}

// PendingTxHash returns the hash of the pending transfer carried by err.
func PendingTxHash(err error) (ethcommon.Hash, bool) {
	var pending *PendingTransferError
	if errors.As(err, &pending) {
		return pending.TxHash, true
	}
	return ethcommon.Hash{}, false
}

func custodianError(err error, format string, args ...interface{}) error {
	if errors.Is(err, ErrTransferPending) {
		return errors.Wrapf(err, format, args...)
	}
	if !errors.Is(err, ErrCustodian) {
		err = fmt.Errorf("%w: %w", ErrCustodian, err)
	}
	return errors.Wrapf(err, format, args...)
}
