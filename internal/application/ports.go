package application

import (
	"context"

	"github.com/SerPepe/402fly/internal/domain"
	"github.com/SerPepe/402fly/internal/infrastructure/ledger"
)

// LedgerClient is the port for the external settlement ledger.
type LedgerClient interface {
	Lookup(ctx context.Context, signature string) (*ledger.TransactionRecord, error)
}

// ReplayGuard is the port for proof consumption tracking. Acquire and Commit
// bracket a single verification attempt; Release abandons a claim after a
// retryable outcome.
type ReplayGuard interface {
	Acquire(ctx context.Context, txRef string) (bool, error)
	Commit(ctx context.Context, txRef string) error
	Release(txRef string)
}

// ChallengeStore is the port for issued-challenge retention.
type ChallengeStore interface {
	Save(ctx context.Context, challenge *domain.Challenge) error
	Find(ctx context.Context, challengeID string) (*domain.Challenge, error)
}
