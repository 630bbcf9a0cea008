package reporter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/token"
	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"
)

// StatusOf maps an engine error to the http status it is reported with.
func StatusOf(err error) int {
	switch htlc.ErrorKind(err) {
	case htlc.KindValidation, htlc.KindPreimageMismatch:
		return http.StatusBadRequest
	case htlc.KindUnauthorized:
		return http.StatusForbidden
	case htlc.KindNotFound:
		return http.StatusNotFound
	case htlc.KindDuplicateContract, htlc.KindAlreadySettled, htlc.KindTiming:
		return http.StatusConflict
	case htlc.KindTransferPending:
		return http.StatusAccepted
	case htlc.KindCustodian:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(errorResponse(c, err))
}

// writeOpError answers a failed escrow operation on id. A pending transfer
// is reported with the id and the hash of the transaction.
func writeOpError(c *gin.Context, id htlc.ContractId, err error) {
	status, resp := errorResponse(c, err)
	if txHash, ok := htlc.PendingTxHash(err); ok {
		resp.Id = id.Hex()
		resp.TxHash = txHash.Hex()
	}
	c.JSON(status, resp)
}

func errorResponse(c *gin.Context, err error) (int, *ErrorResponse) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		logger.WithField("route", c.FullPath()).Errorf("internal error: err=%v", err)
	}
	return status, &ErrorResponse{Error: err.Error(), Kind: htlc.ErrorKind(err)}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error(), Kind: KindBadRequest})
}

// wrapCustodian classifies errors of the token routes, which do not go
// through the engine.
func wrapCustodian(err error) error {
	switch {
	case errors.Is(err, token.ErrUnknownToken):
		return fmt.Errorf("%w: %w", htlc.ErrNotFound, err)
	case errors.Is(err, token.ErrInvalidAmount), errors.Is(err, token.ErrZeroAddress):
		return fmt.Errorf("%w: %w", htlc.ErrValidation, err)
	default:
		return fmt.Errorf("%w: %w", htlc.ErrCustodian, err)
	}
}
