package ledger

import (
	"errors"
	"fmt"
)

// Lookup outcomes that are not a confirmed transaction. The verifier maps
// these onto the rejection taxonomy.
var (
	// ErrTransactionNotFound means the ledger has no record of the signature
	// yet. The transaction may still land, so this is retryable.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")

	// ErrUnconfirmed means the transaction exists but has not reached the
	// required commitment level yet.
	ErrUnconfirmed = errors.New("ledger: transaction not confirmed")

	// ErrTransactionFailed means the transaction landed but its execution
	// failed, so no funds moved.
	ErrTransactionFailed = errors.New("ledger: transaction failed on chain")

	// ErrNoTokenTransfer means the confirmed transaction moved no tokens at
	// all, so it cannot prove a payment.
	ErrNoTokenTransfer = errors.New("ledger: transaction contains no token transfer")
)

// RPCError is a transport or node-side failure. These are always retryable
// with backoff; they say nothing about the transaction itself.
type RPCError struct {
	Code    int
	Message string
	Err     error
}

func (e *RPCError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger rpc error: %v", e.Err)
	}
	return fmt.Sprintf("ledger rpc error [%d]: %s", e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

func IsRPCError(err error) (*RPCError, bool) {
	var rpcErr *RPCError
	ok := errors.As(err, &rpcErr)
	return rpcErr, ok
}
