package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentAuthorization certifies that a specific ledger transaction satisfies
// a specific challenge. At most one authorization exists per transaction hash
// for the lifetime of the replay guard's retention window.
type PaymentAuthorization struct {
	PaymentID       string          `json:"payment_id"`
	ChallengeID     string          `json:"challenge_id"`
	TransactionHash string          `json:"transaction_hash"`
	ActualAmount    decimal.Decimal `json:"actual_amount"`
	PayerAddress    string          `json:"payer_address"`
	VerifiedAt      time.Time       `json:"verified_at"`
}
