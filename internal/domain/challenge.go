// Package domain encodes the payment challenge and authorization entities
// exchanged in the 402 challenge/response flow.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Challenge is a priced, time-bounded request for payment proof tied to a
// single protected-resource request. It is immutable after issuance; the fee
// settings are copied from configuration at issuance time so later config
// changes never affect a live challenge.
type Challenge struct {
	ChallengeID      string          `json:"challenge_id"`
	RecipientAddress string          `json:"recipient_address"`
	TokenIdentifier  string          `json:"token_identifier"`
	RequiredAmount   decimal.Decimal `json:"required_amount"`
	FeeWallet        string          `json:"fee_wallet"`
	FeePercentage    decimal.Decimal `json:"fee_percentage"`
	Description      string          `json:"description"`
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// NewChallenge builds a challenge for the given price and settlement
// destination. The price must be strictly positive and the validity window
// must not be empty.
func NewChallenge(
	id string,
	recipientAddress string,
	tokenIdentifier string,
	requiredAmount decimal.Decimal,
	feeWallet string,
	feePercentage decimal.Decimal,
	description string,
	createdAt time.Time,
	expiresAt time.Time,
) (*Challenge, error) {
	if id == "" {
		return nil, NewInvalidChallengeError(id)
	}
	if !requiredAmount.IsPositive() {
		return nil, NewInvalidAmountError(requiredAmount)
	}
	if !expiresAt.After(createdAt) {
		return nil, NewInvalidChallengeError(id)
	}
	if feePercentage.IsNegative() || feePercentage.GreaterThan(decimal.NewFromInt(1)) {
		return nil, NewInvalidChallengeError(id)
	}

	return &Challenge{
		ChallengeID:      id,
		RecipientAddress: recipientAddress,
		TokenIdentifier:  tokenIdentifier,
		RequiredAmount:   requiredAmount,
		FeeWallet:        feeWallet,
		FeePercentage:    feePercentage,
		Description:      description,
		CreatedAt:        createdAt,
		ExpiresAt:        expiresAt,
	}, nil
}

// ExpiredAt reports whether the challenge window has closed at the given time.
func (c *Challenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Lifetime returns the length of the challenge validity window.
func (c *Challenge) Lifetime() time.Duration {
	return c.ExpiresAt.Sub(c.CreatedAt)
}
