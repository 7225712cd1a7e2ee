package services_test

import (
	"context"
	"sync"

	"github.com/SerPepe/402fly/internal/infrastructure/ledger"
)

// MockLedgerClient is a hand-rolled ledger port. LookupFn drives the outcome;
// the call counter lets tests assert how often the ledger was actually hit.
type MockLedgerClient struct {
	mu       sync.Mutex
	lookups  int
	LookupFn func(ctx context.Context, signature string) (*ledger.TransactionRecord, error)
}

func (m *MockLedgerClient) Lookup(ctx context.Context, signature string) (*ledger.TransactionRecord, error) {
	m.mu.Lock()
	m.lookups++
	fn := m.LookupFn
	m.mu.Unlock()

	if fn == nil {
		return nil, ledger.ErrTransactionNotFound
	}
	return fn(ctx, signature)
}

func (m *MockLedgerClient) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}
