package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SerPepe/402fly/internal/application"
	"github.com/SerPepe/402fly/internal/config"
	"github.com/SerPepe/402fly/internal/domain"
	"github.com/SerPepe/402fly/internal/infrastructure/ledger"
)

// PaymentVerifier checks a submitted transaction reference against a
// challenge and the ledger, and grants at most one authorization per settled
// transaction. It performs no retries itself; PENDING and RPC_UNAVAILABLE
// rejections tell the caller the same proof may be resubmitted.
type PaymentVerifier struct {
	ledgerClient application.LedgerClient
	guard        application.ReplayGuard
	challenges   application.ChallengeStore
	payment      config.PaymentConfig
	logger       *slog.Logger
}

func NewPaymentVerifier(
	ledgerClient application.LedgerClient,
	guard application.ReplayGuard,
	challenges application.ChallengeStore,
	payment config.PaymentConfig,
	logger *slog.Logger,
) *PaymentVerifier {
	return &PaymentVerifier{
		ledgerClient: ledgerClient,
		guard:        guard,
		challenges:   challenges,
		payment:      payment,
		logger:       logger,
	}
}

// VerifyByID resolves a stored challenge and verifies the proof against it.
func (s *PaymentVerifier) VerifyByID(ctx context.Context, challengeID, txRef string) (*domain.PaymentAuthorization, error) {
	challenge, err := s.challenges.Find(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, challenge, txRef)
}

// Verify runs one verification attempt. Checks short-circuit in a fixed
// order: expiry, replay claim, ledger lookup, recipient, asset, amount.
//
// The replay claim is taken before the ledger call and committed only after
// every check passes, so under concurrent submissions of the same reference
// exactly one caller reaches the ledger and all others reject as REPLAYED.
// The guard is never held as a lock across the ledger RPC; verifications of
// different references proceed independently.
func (s *PaymentVerifier) Verify(ctx context.Context, challenge *domain.Challenge, txRef string) (*domain.PaymentAuthorization, error) {
	if challenge == nil {
		return nil, domain.NewInvalidChallengeError("")
	}
	if txRef == "" {
		return nil, domain.NewTransactionNotFoundError(txRef)
	}

	if challenge.ExpiredAt(time.Now()) {
		return nil, domain.NewExpiredError(challenge.ChallengeID)
	}

	claimed, err := s.guard.Acquire(ctx, txRef)
	if err != nil {
		return nil, domain.NewReplayGuardUnavailableError(err)
	}
	if !claimed {
		return nil, domain.NewReplayedError(txRef)
	}

	authorization, err := s.verifyClaimed(ctx, challenge, txRef)
	if err != nil {
		// The reference stays unconsumed on every rejection, so a proof
		// rejected as PENDING can be resubmitted once the ledger confirms it.
		s.guard.Release(txRef)
		return nil, err
	}

	return authorization, nil
}

// verifyClaimed runs the ledger-facing part of verification. The caller holds
// the replay claim for txRef and releases it if an error comes back.
func (s *PaymentVerifier) verifyClaimed(ctx context.Context, challenge *domain.Challenge, txRef string) (*domain.PaymentAuthorization, error) {
	record, err := s.ledgerClient.Lookup(ctx, txRef)
	if err != nil {
		return nil, s.mapLookupError(txRef, err)
	}

	if record.Recipient != challenge.RecipientAddress {
		return nil, domain.NewRecipientMismatchError(challenge.RecipientAddress, record.Recipient)
	}
	if record.Asset != challenge.TokenIdentifier {
		return nil, domain.NewAssetMismatchError(challenge.TokenIdentifier, record.Asset)
	}

	// The client pays the fee wallet separately, so the recipient leg only
	// needs to cover the net share of the required amount. Overpayment is
	// accepted as settled.
	split := domain.SplitFee(challenge.RequiredAmount, challenge.FeePercentage, s.payment.TokenDecimals)
	if record.Amount.LessThan(split.NetToRecipient) {
		return nil, domain.NewAmountInsufficientError(split.NetToRecipient, record.Amount)
	}

	if err := s.guard.Commit(ctx, txRef); err != nil {
		return nil, domain.NewReplayGuardUnavailableError(err)
	}

	authorization := &domain.PaymentAuthorization{
		PaymentID:       uuid.New().String(),
		ChallengeID:     challenge.ChallengeID,
		TransactionHash: txRef,
		ActualAmount:    record.Amount,
		PayerAddress:    record.Sender,
		VerifiedAt:      time.Now(),
	}

	s.logger.Info("payment verified",
		"payment_id", authorization.PaymentID,
		"challenge_id", challenge.ChallengeID,
		"transaction", txRef,
		"payer", record.Sender,
		"amount", record.Amount,
		"net_to_recipient", split.NetToRecipient,
		"fee_amount", split.FeeAmount,
	)

	return authorization, nil
}

// mapLookupError translates ledger outcomes onto the rejection taxonomy.
func (s *PaymentVerifier) mapLookupError(txRef string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, ledger.ErrUnconfirmed):
		return domain.NewPendingError(txRef)
	case errors.Is(err, ledger.ErrTransactionFailed):
		return domain.NewTransactionFailedError(txRef)
	case errors.Is(err, ledger.ErrNoTokenTransfer):
		return domain.NewNoTokenTransferError(txRef)
	default:
		return domain.NewRPCUnavailableError(err)
	}
}
