package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TransactionRecord is the settlement evidence extracted from a confirmed
// ledger transaction: who paid whom, how much of which token.
type TransactionRecord struct {
	Signature string
	Recipient string
	Asset     string
	Amount    decimal.Decimal
	Sender    string
	Finalized bool
}

// JSON-RPC envelope types for the Solana node API.

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorBody   `json:"error"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// getSignatureStatuses result

type signatureStatusesResult struct {
	Value []*signatureStatus `json:"value"`
}

type signatureStatus struct {
	Slot               uint64  `json:"slot"`
	Confirmations      *uint64 `json:"confirmations"`
	ConfirmationStatus string  `json:"confirmationStatus"`
	Err                any     `json:"err"`
}

// getTransaction result, jsonParsed encoding. Only the token balance deltas
// are needed to reconstruct the transfer.

type transactionResult struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Meta        *transactionMeta `json:"meta"`
	Transaction parsedTx         `json:"transaction"`
}

type transactionMeta struct {
	Err               any            `json:"err"`
	PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
	PostTokenBalances []tokenBalance `json:"postTokenBalances"`
}

type tokenBalance struct {
	AccountIndex int           `json:"accountIndex"`
	Mint         string        `json:"mint"`
	Owner        string        `json:"owner"`
	UITokenAmt   uiTokenAmount `json:"uiTokenAmount"`
}

type uiTokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       int32  `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

type parsedTx struct {
	Message parsedMessage `json:"message"`
}

type parsedMessage struct {
	AccountKeys []accountKey `json:"accountKeys"`
}

type accountKey struct {
	Pubkey string `json:"pubkey"`
	Signer bool   `json:"signer"`
}
