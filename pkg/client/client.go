// Package client provides payer-side helpers for calling 402fly-protected
// APIs: discovering a payment challenge, settling it through a caller-supplied
// payment function, and resubmitting the request with proof headers.
//
// Settlement itself is out of scope here; PayFunc is the strategy the caller
// plugs in to move funds on the ledger.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Proof submission headers, matching the server middleware.
const (
	HeaderPaymentID          = "X-Payment-Id"
	HeaderPaymentTransaction = "X-Payment-Transaction"
)

// Challenge is the payment challenge parsed from a 402 response body.
type Challenge struct {
	ChallengeID      string          `json:"challenge_id"`
	RecipientAddress string          `json:"recipient_address"`
	TokenIdentifier  string          `json:"token_identifier"`
	RequiredAmount   decimal.Decimal `json:"required_amount"`
	FeeWallet        string          `json:"fee_wallet"`
	FeePercentage    decimal.Decimal `json:"fee_percentage"`
	Description      string          `json:"description"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// PayFunc settles a challenge on the ledger and returns the transaction
// signature to submit as proof.
type PayFunc func(ctx context.Context, challenge *Challenge) (string, error)

// PaymentError is a rejection returned by the server when submitted proof is
// not accepted.
type PaymentError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment rejected [%s]: %s", e.Code, e.Message)
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

// Client is the explicit variant: the caller drives each step and decides
// when to pay and when to resubmit.
type Client struct {
	httpClient *http.Client
	pay        PayFunc
}

func New(httpClient *http.Client, pay PayFunc) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		pay:        pay,
	}
}

// Do performs the request without any payment handling.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// IsPaymentRequired reports whether the response is a payment challenge.
func IsPaymentRequired(resp *http.Response) bool {
	return resp.StatusCode == http.StatusPaymentRequired
}

// ParseChallenge decodes the challenge from a 402 response body and closes
// the body.
func ParseChallenge(resp *http.Response) (*Challenge, error) {
	defer resp.Body.Close()

	var challenge Challenge
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		return nil, fmt.Errorf("decoding payment challenge: %w", err)
	}
	if challenge.ChallengeID == "" {
		return nil, fmt.Errorf("402 response carries no challenge")
	}
	return &challenge, nil
}

// parseRejection decodes a rejection body from a non-2xx resubmission and
// closes the body.
func parseRejection(resp *http.Response) error {
	defer resp.Body.Close()

	var rejection errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil {
		return fmt.Errorf("payment rejected with status %d", resp.StatusCode)
	}
	return &PaymentError{
		Code:      rejection.Error.Code,
		Message:   rejection.Error.Message,
		Retryable: rejection.Error.Retryable,
	}
}

// Pay settles the challenge using the configured PayFunc.
func (c *Client) Pay(ctx context.Context, challenge *Challenge) (string, error) {
	if c.pay == nil {
		return "", fmt.Errorf("no payment function configured")
	}
	return c.pay(ctx, challenge)
}

// Resubmit repeats the request with proof headers attached. The original
// request must have a rewindable body (GetBody set), which is the case for
// all requests built by http.NewRequest with a byte buffer.
func (c *Client) Resubmit(req *http.Request, challengeID, txRef string) (*http.Response, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		retry.Body = body
	}

	retry.Header.Set(HeaderPaymentID, challengeID)
	retry.Header.Set(HeaderPaymentTransaction, txRef)

	return c.httpClient.Do(retry)
}
