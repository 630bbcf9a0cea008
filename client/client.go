// Package client talks to an escrow server over its http routes, signing
// every mutating request with the caller's key.
package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/reporter"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const DefaultTimeout = 30 * time.Second

var ErrNoSigningKey = errors.New("client has no signing key")

type HtlcClient struct {
	baseURL    string
	httpClient *http.Client
	sk         *ecdsa.PrivateKey
}

// NewHtlcClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:8080". sk may be nil for a read-only client.
func NewHtlcClient(baseURL string, sk *ecdsa.PrivateKey) *HtlcClient {
	return &HtlcClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		sk:         sk,
	}
}

// Address is the account the client signs for.
func (c *HtlcClient) Address() (ethcommon.Address, error) {
	if c.sk == nil {
		return ethcommon.Address{}, ErrNoSigningKey
	}
	return crypto.PubkeyToAddress(c.sk.PublicKey), nil
}

func (c *HtlcClient) GetHello(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, reporter.ROUTE_HELLO, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Time returns the escrow clock and the escrow account.
func (c *HtlcClient) Time(ctx context.Context) (*reporter.TimeResponse, error) {
	resp := &reporter.TimeResponse{}
	if err := c.do(ctx, http.MethodGet, reporter.ROUTE_TIME, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HtlcClient) NewContract(
	ctx context.Context,
	receiver ethcommon.Address,
	hashlock [32]byte,
	timelock uint64,
	tokenContract ethcommon.Address,
	amount *big.Int,
) (htlc.ContractId, error) {
	sig, err := c.sign(common.NewContractDigest(receiver, hashlock, timelock, tokenContract, amount))
	if err != nil {
		return htlc.ContractId{}, err
	}

	req := &reporter.NewContractRequest{
		Receiver:      receiver.Hex(),
		Hashlock:      ethcommon.Bytes2Hex(hashlock[:]),
		Timelock:      timelock,
		TokenContract: tokenContract.Hex(),
		Amount:        amount.String(),
		Signature:     sig,
	}
	resp := &reporter.IdResponse{}
	if err := c.do(ctx, http.MethodPost, reporter.ROUTE_CONTRACTS, req, resp); err != nil {
		// the contract exists even though the pull is unconfirmed
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Id != "" {
			if id, perr := htlc.ParseContractId(apiErr.Id); perr == nil {
				return id, err
			}
		}
		return htlc.ContractId{}, err
	}
	return htlc.ParseContractId(resp.Id)
}

func (c *HtlcClient) Withdraw(ctx context.Context, id htlc.ContractId, preimage [32]byte) error {
	sig, err := c.sign(common.WithdrawDigest(id, preimage))
	if err != nil {
		return err
	}
	req := &reporter.WithdrawRequest{
		Preimage:  ethcommon.Bytes2Hex(preimage[:]),
		Signature: sig,
	}
	return c.do(ctx, http.MethodPost, contractPath(reporter.ROUTE_WITHDRAW, id), req, &reporter.IdResponse{})
}

func (c *HtlcClient) Refund(ctx context.Context, id htlc.ContractId) error {
	sig, err := c.sign(common.RefundDigest(id))
	if err != nil {
		return err
	}
	req := &reporter.RefundRequest{Signature: sig}
	return c.do(ctx, http.MethodPost, contractPath(reporter.ROUTE_REFUND, id), req, &reporter.IdResponse{})
}

// GetContract returns the zero-valued record for unknown ids.
func (c *HtlcClient) GetContract(ctx context.Context, id htlc.ContractId) (*htlc.Contract, error) {
	ct := &htlc.Contract{}
	if err := c.do(ctx, http.MethodGet, contractPath(reporter.ROUTE_CONTRACT, id), nil, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

func (c *HtlcClient) HaveContract(ctx context.Context, id htlc.ContractId) (bool, error) {
	resp := &reporter.ExistsResponse{}
	if err := c.do(ctx, http.MethodGet, contractPath(reporter.ROUTE_EXISTS, id), nil, resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// Events reads up to limit events with seq >= from. Pass resp.Next as the
// next from to continue.
func (c *HtlcClient) Events(ctx context.Context, from uint64, limit int) (*reporter.EventsResponse, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatUint(from, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	resp := &reporter.EventsResponse{}
	if err := c.do(ctx, http.MethodGet, reporter.ROUTE_EVENTS+"?"+q.Encode(), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HtlcClient) Balance(ctx context.Context, tokenContract, account ethcommon.Address) (*big.Int, error) {
	path := strings.NewReplacer(":token", tokenContract.Hex(), ":account", account.Hex()).Replace(reporter.ROUTE_BALANCE)
	resp := &reporter.BalanceResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, resp); err != nil {
		return nil, err
	}
	return common.ParseAmount(resp.Balance)
}

// Approve lets spender pull amount of the signer's ledger tokens. A zero
// spender means the escrow account.
func (c *HtlcClient) Approve(ctx context.Context, tokenContract, spender ethcommon.Address, amount *big.Int) error {
	if spender == (ethcommon.Address{}) {
		t, err := c.Time(ctx)
		if err != nil {
			return err
		}
		spender = ethcommon.HexToAddress(t.Escrow)
	}
	sig, err := c.sign(common.ApproveDigest(tokenContract, spender, amount))
	if err != nil {
		return err
	}
	req := &reporter.ApproveRequest{
		Spender:   spender.Hex(),
		Amount:    amount.String(),
		Signature: sig,
	}
	path := strings.Replace(reporter.ROUTE_APPROVE, ":token", tokenContract.Hex(), 1)
	return c.do(ctx, http.MethodPost, path, req, nil)
}

func (c *HtlcClient) sign(digest []byte) (string, error) {
	if c.sk == nil {
		return "", ErrNoSigningKey
	}
	sig, err := common.Sign(digest, c.sk)
	if err != nil {
		return "", err
	}
	return ethcommon.Bytes2Hex(sig), nil
}

func (c *HtlcClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		errResp := &reporter.ErrorResponse{}
		if json.Unmarshal(data, errResp) == nil {
			apiErr.Kind, apiErr.Message = errResp.Kind, errResp.Error
			apiErr.Id, apiErr.TxHash = errResp.Id, errResp.TxHash
		} else {
			apiErr.Message = string(data)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to decode response of %s %s", method, path)
	}
	return nil
}

func contractPath(route string, id htlc.ContractId) string {
	return strings.Replace(route, ":id", id.Hex(), 1)
}

// APIError is a non-200 answer of the server. It matches the engine error
// class named by Kind under errors.Is. Id and TxHash are set for a pending
// transfer.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Id      string
	TxHash  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Kind, e.Message)
}

var classes = map[string]error{
	htlc.KindValidation:        htlc.ErrValidation,
	htlc.KindDuplicateContract: htlc.ErrDuplicateContract,
	htlc.KindUnauthorized:      htlc.ErrUnauthorized,
	htlc.KindPreimageMismatch:  htlc.ErrPreimageMismatch,
	htlc.KindTiming:            htlc.ErrTiming,
	htlc.KindAlreadySettled:    htlc.ErrAlreadySettled,
	htlc.KindNotFound:          htlc.ErrNotFound,
	htlc.KindCustodian:         htlc.ErrCustodian,
	htlc.KindTransferPending:   htlc.ErrTransferPending,
}

func (e *APIError) Unwrap() error {
	return classes[e.Kind]
}
