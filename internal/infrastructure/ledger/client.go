// Package ledger looks up settlement transactions on a Solana node over
// JSON-RPC. It is the only place the engine talks to the chain.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/SerPepe/402fly/internal/config"
)

type RPCClient struct {
	endpoint         string
	minConfirmations int
	httpClient       *http.Client
}

func NewRPCClient(cfg config.LedgerConfig, network string) *RPCClient {
	return &RPCClient{
		endpoint:         cfg.RPCURLFor(network),
		minConfirmations: cfg.MinConfirmations,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

// Lookup resolves a transaction signature to its settlement record. Outcomes:
// a confirmed record, ErrTransactionNotFound, ErrUnconfirmed,
// ErrTransactionFailed, ErrNoTokenTransfer, or an *RPCError when the node
// cannot be reached.
func (c *RPCClient) Lookup(ctx context.Context, signature string) (*TransactionRecord, error) {
	status, err := c.signatureStatus(ctx, signature)
	if err != nil {
		return nil, err
	}

	if status == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}
	if status.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionFailed, signature)
	}
	if !c.confirmed(status) {
		return nil, fmt.Errorf("%w: %s", ErrUnconfirmed, signature)
	}

	tx, err := c.transaction(ctx, signature)
	if err != nil {
		return nil, err
	}

	return buildRecord(signature, status, tx)
}

func (c *RPCClient) signatureStatus(ctx context.Context, signature string) (*signatureStatus, error) {
	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}

	var result signatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

func (c *RPCClient) transaction(ctx context.Context, signature string) (*transactionResult, error) {
	params := []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *transactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	// The status said confirmed but the node has no transaction body yet.
	if result == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnconfirmed, signature)
	}
	if result.Meta == nil || result.Meta.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionFailed, signature)
	}

	return result, nil
}

// confirmed applies the configured commitment threshold. A nil confirmation
// count means the transaction is rooted (finalized).
func (c *RPCClient) confirmed(status *signatureStatus) bool {
	if status.Confirmations == nil {
		return true
	}
	if status.ConfirmationStatus == "processed" {
		return false
	}
	return int(*status.Confirmations) >= c.minConfirmations
}

// buildRecord reconstructs the payment from token balance deltas. The largest
// inflow is the payment to the resource owner; smaller inflows (the protocol
// fee transfer) are ignored here because the verifier only checks the
// recipient leg.
func buildRecord(signature string, status *signatureStatus, tx *transactionResult) (*TransactionRecord, error) {
	type balanceKey struct {
		owner string
		mint  string
	}

	deltas := make(map[balanceKey]decimal.Decimal)
	for _, post := range tx.Meta.PostTokenBalances {
		amt, err := tokenAmount(post.UITokenAmt)
		if err != nil {
			return nil, err
		}
		key := balanceKey{owner: post.Owner, mint: post.Mint}
		deltas[key] = deltas[key].Add(amt)
	}
	for _, pre := range tx.Meta.PreTokenBalances {
		amt, err := tokenAmount(pre.UITokenAmt)
		if err != nil {
			return nil, err
		}
		key := balanceKey{owner: pre.Owner, mint: pre.Mint}
		deltas[key] = deltas[key].Sub(amt)
	}

	record := &TransactionRecord{
		Signature: signature,
		Finalized: status.Confirmations == nil || status.ConfirmationStatus == "finalized",
	}

	var largestIn, largestOut decimal.Decimal
	for key, delta := range deltas {
		switch {
		case delta.IsPositive() && delta.GreaterThan(largestIn):
			largestIn = delta
			record.Recipient = key.owner
			record.Asset = key.mint
			record.Amount = delta
		case delta.IsNegative() && delta.LessThan(largestOut):
			largestOut = delta
			record.Sender = key.owner
		}
	}

	if record.Recipient == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTokenTransfer, signature)
	}

	if record.Sender == "" {
		// Funding account paid from a fresh token account; fall back to the
		// transaction's fee payer.
		for _, key := range tx.Transaction.Message.AccountKeys {
			if key.Signer {
				record.Sender = key.Pubkey
				break
			}
		}
	}

	return record, nil
}

func tokenAmount(amt uiTokenAmount) (decimal.Decimal, error) {
	raw, err := decimal.NewFromString(amt.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing token amount %q: %w", amt.Amount, err)
	}
	return raw.Shift(-amt.Decimals), nil
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	jsonData, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("error marshalling json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &RPCError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &RPCError{
			Code:    resp.StatusCode,
			Message: string(body),
		}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return &RPCError{Err: err}
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return &RPCError{Err: fmt.Errorf("error decoding %s result: %w", method, err)}
	}

	return nil
}

// Endpoint returns the resolved RPC URL, for startup logging.
func (c *RPCClient) Endpoint() string {
	return c.endpoint
}
