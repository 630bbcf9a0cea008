package reporter

import "github.com/TEENet-io/htlc-go/htlc"

// Hex fields accept an optional 0x prefix. Amounts are decimal or 0x hex.
type NewContractRequest struct {
	Receiver      string `json:"receiver" binding:"required"`
	Hashlock      string `json:"hashlock" binding:"required"`
	Timelock      uint64 `json:"timelock"`
	TokenContract string `json:"token_contract" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

type WithdrawRequest struct {
	Preimage  string `json:"preimage" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type RefundRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// ApproveRequest grants spender an allowance over the signer's ledger
// balance. spender defaults to the escrow account.
type ApproveRequest struct {
	Spender   string `json:"spender"`
	Amount    string `json:"amount" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type IdResponse struct {
	Id string `json:"id"`
}

type ExistsResponse struct {
	Id     string `json:"id"`
	Exists bool   `json:"exists"`
}

// ErrorResponse is the body of every non-200 answer. Id and TxHash are set
// when a token transfer is pending (202).
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Id     string `json:"id,omitempty"`
	TxHash string `json:"txHash,omitempty"`
}

type EventsResponse struct {
	Events []*htlc.JSONEvent `json:"events"`
	// Next is the seq to ask for to continue reading.
	Next uint64 `json:"next"`
}

type BalanceResponse struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type TimeResponse struct {
	Now    uint64 `json:"now"`
	Escrow string `json:"escrow"`
}

const KindBadRequest = "BadRequest"
