// Package replay tracks which transaction references have already been
// consumed as payment proof, so one settled transaction can never authorize
// two requests.
package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SerPepe/402fly/internal/infrastructure/store"
)

// Record marks a consumed proof. Records are retained at least as long as the
// longest possible challenge lifetime so the replay invariant holds for every
// live challenge; after that they may be evicted to bound memory.
type Record struct {
	TransactionHash string    `json:"transaction_hash"`
	ConsumedAt      time.Time `json:"consumed_at"`
}

// Guard provides the atomic claim on a transaction reference. A reference is
// either free, claimed by exactly one in-flight verification, or consumed.
// Claims are tracked in memory; consumed records go to the backing store so
// they can outlive the process when a persistent backend is configured.
//
// Consumed references are never un-consumed. A claim is released only when
// its verification ends without granting an authorization, which is what
// makes PENDING outcomes safely retryable.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}

	consumed  store.JSON[Record]
	retention time.Duration
}

func NewGuard(backend store.Interface, retention time.Duration) *Guard {
	return &Guard{
		inflight: make(map[string]struct{}),
		consumed: store.JSON[Record]{
			Underlying: backend,
			Prefix:     "replay/",
		},
		retention: retention,
	}
}

// Acquire claims the reference for the calling verification. It returns false
// when the reference was already consumed or another verification of the same
// reference is in flight; that caller must reject with a replay error and must
// not touch the ledger.
func (g *Guard) Acquire(ctx context.Context, txRef string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.inflight[txRef]; held {
		return false, nil
	}

	_, err := g.consumed.Get(ctx, txRef)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	g.inflight[txRef] = struct{}{}
	return true, nil
}

// Commit permanently consumes a claimed reference. Must only be called by the
// verification that holds the claim, immediately before it returns an
// authorization.
func (g *Guard) Commit(ctx context.Context, txRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.consumed.Set(ctx, txRef, Record{
		TransactionHash: txRef,
		ConsumedAt:      time.Now(),
	}, g.retention)
	if err != nil {
		return err
	}

	delete(g.inflight, txRef)
	return nil
}

// Release abandons a claim without consuming the reference, so the same proof
// can be resubmitted after a PENDING or RPC failure.
func (g *Guard) Release(txRef string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inflight, txRef)
}
