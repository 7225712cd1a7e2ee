package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SerPepe/402fly/internal/domain"
)

// Proof submission headers. A client resubmits the original request with the
// challenge it is settling and the ledger transaction that settled it.
const (
	HeaderPaymentID          = "X-Payment-Id"
	HeaderPaymentTransaction = "X-Payment-Transaction"
)

// PaymentRequiredResponse is the 402 body describing how to settle a
// challenge.
type PaymentRequiredResponse struct {
	ChallengeID      string          `json:"challenge_id"`
	RecipientAddress string          `json:"recipient_address"`
	TokenIdentifier  string          `json:"token_identifier"`
	RequiredAmount   decimal.Decimal `json:"required_amount"`
	FeeWallet        string          `json:"fee_wallet"`
	FeePercentage    decimal.Decimal `json:"fee_percentage"`
	Description      string          `json:"description"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// WritePaymentRequired serializes a challenge into a 402 response.
func WritePaymentRequired(w http.ResponseWriter, challenge *domain.Challenge) {
	response := PaymentRequiredResponse{
		ChallengeID:      challenge.ChallengeID,
		RecipientAddress: challenge.RecipientAddress,
		TokenIdentifier:  challenge.TokenIdentifier,
		RequiredAmount:   challenge.RequiredAmount,
		FeeWallet:        challenge.FeeWallet,
		FeePercentage:    challenge.FeePercentage,
		Description:      challenge.Description,
		ExpiresAt:        challenge.ExpiresAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	json.NewEncoder(w).Encode(response)
}

type contextKey int

const (
	authorizationKey contextKey = iota
	proofKey
)

// Proof is an unverified payment submission, handed to handlers when the
// server runs with auto-verification disabled.
type Proof struct {
	ChallengeID     string
	TransactionHash string
}

// WithAuthorization attaches a verified authorization to the request context.
func WithAuthorization(ctx context.Context, auth *domain.PaymentAuthorization) context.Context {
	return context.WithValue(ctx, authorizationKey, auth)
}

// AuthorizationFrom returns the authorization the middleware verified for
// this request, if any.
func AuthorizationFrom(ctx context.Context) (*domain.PaymentAuthorization, bool) {
	auth, ok := ctx.Value(authorizationKey).(*domain.PaymentAuthorization)
	return auth, ok
}

// WithProof attaches an unverified proof submission to the request context.
func WithProof(ctx context.Context, proof Proof) context.Context {
	return context.WithValue(ctx, proofKey, proof)
}

// ProofFrom returns the proof submission attached to this request, if any.
func ProofFrom(ctx context.Context) (Proof, bool) {
	proof, ok := ctx.Value(proofKey).(Proof)
	return proof, ok
}
