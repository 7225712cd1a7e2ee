package client

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// AutoClient is the implicit variant: on a 402 it settles the challenge and
// resubmits automatically, backing off and retrying while the server reports
// the proof as retryable (transaction still confirming, ledger unreachable).
type AutoClient struct {
	client     *Client
	baseDelay  time.Duration
	maxRetries int
}

func NewAutoClient(httpClient *http.Client, pay PayFunc, baseDelay time.Duration, maxRetries int) *AutoClient {
	if baseDelay == 0 {
		baseDelay = time.Second
	}
	if maxRetries == 0 {
		maxRetries = 5
	}
	return &AutoClient{
		client:     New(httpClient, pay),
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
	}
}

// Do performs the request and transparently handles the payment flow. The
// returned response is the final one: either the paid-for resource or the
// last rejection.
func (c *AutoClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if !IsPaymentRequired(resp) {
		return resp, nil
	}

	challenge, err := ParseChallenge(resp)
	if err != nil {
		return nil, err
	}

	txRef, err := c.client.Pay(req.Context(), challenge)
	if err != nil {
		return nil, fmt.Errorf("settling payment: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		default:
		}

		resp, err := c.client.Resubmit(req, challenge.ChallengeID, txRef)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 400 {
			return resp, nil
		}

		rejection := parseRejection(resp)
		lastErr = rejection

		payErr, ok := rejection.(*PaymentError)
		if !ok || !payErr.Retryable {
			return nil, rejection
		}

		if attempt < c.maxRetries-1 {
			time.Sleep(c.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Backoff calculation with exponential delay and jitter
func (c *AutoClient) backoff(attempt int) time.Duration {
	base := c.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}
