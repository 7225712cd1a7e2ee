package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError represents a verification or issuance failure with a stable code
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Verification rejection codes. Only PENDING and RPC_UNAVAILABLE are safe to
// retry with the same transaction reference.
const (
	ErrCodeInvalidChallenge    = "INVALID_CHALLENGE"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeExpired             = "EXPIRED"
	ErrCodeReplayed            = "REPLAYED"
	ErrCodeRecipientMismatch   = "RECIPIENT_MISMATCH"
	ErrCodeAssetMismatch       = "ASSET_MISMATCH"
	ErrCodeAmountInsufficient  = "AMOUNT_INSUFFICIENT"
	ErrCodePending             = "PENDING"
	ErrCodeRPCUnavailable      = "RPC_UNAVAILABLE"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeTransactionFailed   = "TRANSACTION_FAILED"
)

func NewInvalidChallengeError(challengeID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidChallenge,
		Message: fmt.Sprintf("challenge %s is unknown or malformed", challengeID),
	}
}

func NewInvalidAmountError(amount decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s: must be greater than zero", amount),
	}
}

func NewExpiredError(challengeID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeExpired,
		Message: fmt.Sprintf("challenge %s has expired", challengeID),
	}
}

func NewReplayedError(txRef string) *DomainError {
	return &DomainError{
		Code:    ErrCodeReplayed,
		Message: fmt.Sprintf("transaction %s has already been used as payment proof", txRef),
	}
}

func NewRecipientMismatchError(expected, actual string) *DomainError {
	return &DomainError{
		Code:    ErrCodeRecipientMismatch,
		Message: fmt.Sprintf("payment recipient mismatch: expected %s, got %s", expected, actual),
	}
}

func NewAssetMismatchError(expected, actual string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAssetMismatch,
		Message: fmt.Sprintf("payment asset mismatch: expected %s, got %s", expected, actual),
	}
}

func NewAmountInsufficientError(required, actual decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeAmountInsufficient,
		Message: fmt.Sprintf("payment amount insufficient: required %s, got %s", required, actual),
	}
}

func NewPendingError(txRef string) *DomainError {
	return &DomainError{
		Code:      ErrCodePending,
		Message:   fmt.Sprintf("transaction %s is not confirmed yet", txRef),
		Retryable: true,
	}
}

func NewRPCUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeRPCUnavailable,
		Message:   "ledger rpc is unavailable",
		Retryable: true,
		Err:       err,
	}
}

func NewTransactionNotFoundError(txRef string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionNotFound,
		Message: fmt.Sprintf("transaction %s not found on ledger", txRef),
	}
}

func NewTransactionFailedError(txRef string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionFailed,
		Message: fmt.Sprintf("transaction %s failed on ledger", txRef),
	}
}

func NewNoTokenTransferError(txRef string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionFailed,
		Message: fmt.Sprintf("transaction %s moved no tokens", txRef),
	}
}

func NewReplayGuardUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeRPCUnavailable,
		Message:   "replay guard storage is unavailable",
		Retryable: true,
		Err:       err,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsRetryable reports whether resubmitting the same proof can succeed later
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}
