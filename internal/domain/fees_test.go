package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerPepe/402fly/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name    string
		gross   string
		pct     string
		scale   int32
		wantNet string
		wantFee string
	}{
		{
			name:    "one percent fee",
			gross:   "5.00",
			pct:     "0.01",
			scale:   6,
			wantNet: "4.95",
			wantFee: "0.05",
		},
		{
			name:    "zero fee",
			gross:   "5.00",
			pct:     "0",
			scale:   6,
			wantNet: "5.00",
			wantFee: "0",
		},
		{
			name:    "full fee",
			gross:   "5.00",
			pct:     "1",
			scale:   6,
			wantNet: "0.00",
			wantFee: "5.00",
		},
		{
			name:    "zero gross",
			gross:   "0",
			pct:     "0.01",
			scale:   6,
			wantNet: "0",
			wantFee: "0",
		},
		{
			// 0.0000125 rounds half-even at 6 places to 0.000012, not up.
			name:    "round half to even down",
			gross:   "0.00125",
			pct:     "0.01",
			scale:   6,
			wantNet: "0.001238",
			wantFee: "0.000012",
		},
		{
			// 0.0000135 rounds half-even at 6 places to 0.000014.
			name:    "round half to even up",
			gross:   "0.00135",
			pct:     "0.01",
			scale:   6,
			wantNet: "0.001336",
			wantFee: "0.000014",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split := domain.SplitFee(d(tt.gross), d(tt.pct), tt.scale)

			assert.True(t, split.NetToRecipient.Equal(d(tt.wantNet)),
				"net: want %s, got %s", tt.wantNet, split.NetToRecipient)
			assert.True(t, split.FeeAmount.Equal(d(tt.wantFee)),
				"fee: want %s, got %s", tt.wantFee, split.FeeAmount)
		})
	}
}

func TestSplitFee_SumInvariant(t *testing.T) {
	grosses := []string{"0", "0.000001", "0.01", "1", "4.99", "5.00", "5.50", "123.456789", "99999.999999"}
	pcts := []string{"0", "0.001", "0.01", "0.025", "0.5", "0.999", "1"}

	for _, g := range grosses {
		for _, p := range pcts {
			gross := d(g)
			split := domain.SplitFee(gross, d(p), 6)

			require.True(t, split.NetToRecipient.Add(split.FeeAmount).Equal(gross),
				"gross=%s pct=%s: net %s + fee %s != gross", g, p, split.NetToRecipient, split.FeeAmount)
			require.False(t, split.FeeAmount.IsNegative(), "gross=%s pct=%s: negative fee", g, p)
			require.False(t, split.NetToRecipient.IsNegative(), "gross=%s pct=%s: negative net", g, p)
		}
	}
}
