// Package challenges retains issued challenges so proof submissions can be
// matched back to the challenge they settle.
package challenges

import (
	"context"
	"errors"
	"time"

	"github.com/SerPepe/402fly/internal/domain"
	"github.com/SerPepe/402fly/internal/infrastructure/store"
)

// expirySlack keeps a challenge findable briefly after its window closes, so
// a late proof is rejected as EXPIRED instead of the less helpful
// INVALID_CHALLENGE.
const expirySlack = time.Minute

type Store struct {
	records store.JSON[domain.Challenge]
}

func NewStore(backend store.Interface) *Store {
	return &Store{
		records: store.JSON[domain.Challenge]{
			Underlying: backend,
			Prefix:     "challenge/",
		},
	}
}

func (s *Store) Save(ctx context.Context, challenge *domain.Challenge) error {
	ttl := time.Until(challenge.ExpiresAt) + expirySlack
	return s.records.Set(ctx, challenge.ChallengeID, *challenge, ttl)
}

func (s *Store) Find(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	challenge, err := s.records.Get(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewInvalidChallengeError(challengeID)
		}
		return nil, err
	}
	return &challenge, nil
}
