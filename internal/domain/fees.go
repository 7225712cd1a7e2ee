package domain

import "github.com/shopspring/decimal"

// FeeSplit is the division of a gross payment amount between the resource
// owner and the protocol fee wallet.
type FeeSplit struct {
	NetToRecipient decimal.Decimal
	FeeAmount      decimal.Decimal
}

// SplitFee computes the protocol fee share of a gross amount. The fee is
// rounded half-even at the token's decimal scale so the split is deterministic
// and auditable; the remainder goes to the recipient, so
// NetToRecipient + FeeAmount always equals the gross amount exactly.
func SplitFee(gross decimal.Decimal, feePercentage decimal.Decimal, scale int32) FeeSplit {
	fee := gross.Mul(feePercentage).RoundBank(scale)
	return FeeSplit{
		NetToRecipient: gross.Sub(fee),
		FeeAmount:      fee,
	}
}
