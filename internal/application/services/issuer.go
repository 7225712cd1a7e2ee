package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SerPepe/402fly/internal/application"
	"github.com/SerPepe/402fly/internal/config"
	"github.com/SerPepe/402fly/internal/domain"
)

// ChallengeIssuer builds priced, time-bounded challenges for protected
// resources. The settlement destination and fee settings are frozen into each
// challenge at issuance.
type ChallengeIssuer struct {
	payment    config.PaymentConfig
	challenges application.ChallengeStore
	logger     *slog.Logger
}

func NewChallengeIssuer(
	payment config.PaymentConfig,
	challenges application.ChallengeStore,
	logger *slog.Logger,
) *ChallengeIssuer {
	return &ChallengeIssuer{
		payment:    payment,
		challenges: challenges,
		logger:     logger,
	}
}

// Issue creates a challenge priced at resourcePrice. A zero price means the
// resource has no specific price and falls back to the configured default
// amount; a negative price is an error.
func (s *ChallengeIssuer) Issue(ctx context.Context, resourcePrice decimal.Decimal, description string) (*domain.Challenge, error) {
	price := resourcePrice
	if price.IsZero() {
		price = s.payment.DefaultPrice()
	}
	if !price.IsPositive() {
		return nil, domain.NewInvalidAmountError(price)
	}

	now := time.Now()
	challenge, err := domain.NewChallenge(
		uuid.New().String(),
		s.payment.Address,
		s.payment.TokenMint,
		price,
		s.payment.FeeWallet,
		s.payment.FeeRate(),
		description,
		now,
		now.Add(s.payment.Timeout),
	)
	if err != nil {
		return nil, err
	}

	if err := s.challenges.Save(ctx, challenge); err != nil {
		return nil, err
	}

	s.logger.Debug("challenge issued",
		"challenge_id", challenge.ChallengeID,
		"amount", challenge.RequiredAmount,
		"expires_at", challenge.ExpiresAt,
	)

	return challenge, nil
}
