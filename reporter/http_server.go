// This is a http type of reporter.
// It exposes the escrow engine on http routes. Mutating routes take a
// signature from which the caller's address is recovered.

package reporter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/metrics"
	"github.com/TEENet-io/htlc-go/token"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"
)

const (
	ROUTE_HELLO     = "/hello"
	ROUTE_TIME      = "/time"
	ROUTE_CONTRACTS = "/contracts"
	ROUTE_CONTRACT  = "/contracts/:id"
	ROUTE_EXISTS    = "/contracts/:id/exists"
	ROUTE_WITHDRAW  = "/contracts/:id/withdraw"
	ROUTE_REFUND    = "/contracts/:id/refund"
	ROUTE_EVENTS    = "/events"
	ROUTE_METRICS   = "/metrics"
	ROUTE_BALANCE   = "/tokens/:token/balance/:account"
	ROUTE_APPROVE   = "/tokens/:token/approve"

	DefaultEventsLimit = 100
	MaxEventsLimit     = 1000
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	engine     *htlc.Engine
	custodians htlc.CustodianRegistry
	escrow     ethcommon.Address

	// Optional
	ledger    *token.LedgerDB // only in ledger custody mode
	collector *metrics.Collector
}

func NewHttpReporter(
	serverIP string,
	serverPort string,
	engine *htlc.Engine,
	custodians htlc.CustodianRegistry,
	escrow ethcommon.Address,
) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		engine:     engine,
		custodians: custodians,
		escrow:     escrow,
	}
}

// WithLedger enables the approve route on the given ledger.
func (h *HttpReporter) WithLedger(ledger *token.LedgerDB) *HttpReporter {
	h.ledger = ledger
	return h
}

// WithMetrics enables request metrics and the metrics route.
func (h *HttpReporter) WithMetrics(collector *metrics.Collector) *HttpReporter {
	h.collector = collector
	return h
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()
	if h.collector != nil {
		router.Use(h.observe)
		router.GET(ROUTE_METRICS, gin.WrapH(h.collector.Handler()))
	}

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_TIME, h.Time)
	router.POST(ROUTE_CONTRACTS, h.NewContract)
	router.GET(ROUTE_CONTRACT, h.GetContract)
	router.GET(ROUTE_EXISTS, h.HaveContract)
	router.POST(ROUTE_WITHDRAW, h.Withdraw)
	router.POST(ROUTE_REFUND, h.Refund)
	router.GET(ROUTE_EVENTS, h.Events)
	router.GET(ROUTE_BALANCE, h.Balance)
	router.POST(ROUTE_APPROVE, h.Approve)

	return router
}

// Run serves on ip:port until ctx is done.
func (h *HttpReporter) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(h.serverIP, h.serverPort),
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("http reporter listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("failed to shut down http reporter: err=%v", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (h *HttpReporter) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.collector.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

func (h *HttpReporter) Time(c *gin.Context) {
	c.JSON(http.StatusOK, &TimeResponse{Now: h.engine.Now(), Escrow: h.escrow.Hex()})
}

func (h *HttpReporter) NewContract(c *gin.Context) {
	var req NewContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	receiver, err := parseAddress(req.Receiver)
	if err != nil {
		badRequest(c, err)
		return
	}
	tokenContract, err := parseAddress(req.TokenContract)
	if err != nil {
		badRequest(c, err)
		return
	}
	hashlock, err := common.ParseBytes32(req.Hashlock)
	if err != nil {
		badRequest(c, err)
		return
	}
	amount, err := common.ParseAmount(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	sender, err := recoverCaller(common.NewContractDigest(receiver, hashlock, req.Timelock, tokenContract, amount), req.Signature)
	if err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.engine.NewContract(sender, receiver, hashlock, req.Timelock, tokenContract, amount)
	if err != nil {
		writeOpError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, &IdResponse{Id: id.Hex()})
}

func (h *HttpReporter) Withdraw(c *gin.Context) {
	id, ok := contractIdParam(c)
	if !ok {
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	preimage, err := common.ParseBytes32(req.Preimage)
	if err != nil {
		badRequest(c, err)
		return
	}

	caller, err := recoverCaller(common.WithdrawDigest(id, preimage), req.Signature)
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.engine.Withdraw(id, preimage, caller); err != nil {
		writeOpError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, &IdResponse{Id: id.Hex()})
}

func (h *HttpReporter) Refund(c *gin.Context) {
	id, ok := contractIdParam(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	caller, err := recoverCaller(common.RefundDigest(id), req.Signature)
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.engine.Refund(id, caller); err != nil {
		writeOpError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, &IdResponse{Id: id.Hex()})
}

// GetContract always answers 200; unknown ids give the zero-valued record.
func (h *HttpReporter) GetContract(c *gin.Context) {
	id, ok := contractIdParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.engine.GetContract(id).ToJSON())
}

func (h *HttpReporter) HaveContract(c *gin.Context) {
	id, ok := contractIdParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, &ExistsResponse{Id: id.Hex(), Exists: h.engine.HaveContract(id)})
}

func (h *HttpReporter) Events(c *gin.Context) {
	from, err := strconv.ParseUint(c.DefaultQuery("from", "0"), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultEventsLimit)))
	if err != nil || limit <= 0 {
		badRequest(c, errors.New("limit must be a positive integer"))
		return
	}
	if limit > MaxEventsLimit {
		limit = MaxEventsLimit
	}

	events, err := h.engine.Events(from, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := &EventsResponse{Events: make([]*htlc.JSONEvent, 0, len(events)), Next: from}
	for _, ev := range events {
		resp.Events = append(resp.Events, ev.ToJSON())
		resp.Next = ev.Seq + 1
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HttpReporter) Balance(c *gin.Context) {
	tokenContract, err := parseAddress(c.Param("token"))
	if err != nil {
		badRequest(c, err)
		return
	}
	account, err := parseAddress(c.Param("account"))
	if err != nil {
		badRequest(c, err)
		return
	}

	custodian, err := h.custodians.Custodian(tokenContract)
	if err != nil {
		writeError(c, wrapCustodian(err))
		return
	}
	balance, err := custodian.BalanceOf(account)
	if err != nil {
		writeError(c, wrapCustodian(err))
		return
	}

	c.JSON(http.StatusOK, &BalanceResponse{
		Token:   tokenContract.Hex(),
		Account: account.Hex(),
		Balance: balance.String(),
	})
}

// Approve sets an allowance on the ledger. On chain custody owners approve
// the escrow account on the token contract themselves.
func (h *HttpReporter) Approve(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusNotImplemented, &ErrorResponse{
			Error: "approve is only served in ledger custody mode",
			Kind:  KindBadRequest,
		})
		return
	}

	tokenContract, err := parseAddress(c.Param("token"))
	if err != nil {
		badRequest(c, err)
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	spender := h.escrow
	if req.Spender != "" {
		if spender, err = parseAddress(req.Spender); err != nil {
			badRequest(c, err)
			return
		}
	}
	amount, err := common.ParseAmount(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}

	owner, err := recoverCaller(common.ApproveDigest(tokenContract, spender, amount), req.Signature)
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.ledger.Approve(tokenContract, owner, spender, amount); err != nil {
		writeError(c, wrapCustodian(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"owner":   owner.Hex(),
		"spender": spender.Hex(),
		"amount":  amount.String(),
	})
}

func contractIdParam(c *gin.Context) (htlc.ContractId, bool) {
	id, err := htlc.ParseContractId(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return htlc.ContractId{}, false
	}
	return id, true
}

func parseAddress(str string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(str) {
		return ethcommon.Address{}, errors.New("invalid address: " + str)
	}
	return ethcommon.HexToAddress(str), nil
}

func recoverCaller(digest []byte, signature string) (ethcommon.Address, error) {
	sig, err := decodeHex(signature)
	if err != nil {
		return ethcommon.Address{}, err
	}
	return common.RecoverAddress(digest, sig)
}

func decodeHex(str string) ([]byte, error) {
	b := ethcommon.FromHex(str)
	if len(b) == 0 && str != "" && str != "0x" {
		return nil, errors.New("invalid hex string")
	}
	return b, nil
}
