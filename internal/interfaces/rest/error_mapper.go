package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SerPepe/402fly/internal/domain"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Retryable tells the client whether resubmitting the same proof can
	// succeed. Terminal rejections need a fresh challenge and payment.
	Retryable bool `json:"retryable"`
}

// ToHTTPStatus maps engine rejections to HTTP status codes. Payment-level
// rejections stay 402 so clients uniformly treat them as "payment required";
// only infrastructure failures surface as 5xx.
func ToHTTPStatus(err error) int {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeInvalidChallenge, domain.ErrCodeInvalidAmount:
			return http.StatusBadRequest
		case domain.ErrCodeRPCUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusPaymentRequired
		}
	}
	return http.StatusInternalServerError
}

func ToErrorCode(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "INTERNAL_ERROR"
}

// WriteError maps engine errors to HTTP responses
func WriteError(w http.ResponseWriter, err error) {
	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:      ToErrorCode(err),
			Message:   err.Error(),
			Retryable: domain.IsRetryable(err),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ToHTTPStatus(err))
	json.NewEncoder(w).Encode(response)
}
