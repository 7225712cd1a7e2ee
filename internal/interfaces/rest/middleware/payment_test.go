package middleware_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerPepe/402fly/internal/application/services"
	"github.com/SerPepe/402fly/internal/challenges"
	"github.com/SerPepe/402fly/internal/config"
	"github.com/SerPepe/402fly/internal/infrastructure/ledger"
	"github.com/SerPepe/402fly/internal/infrastructure/store/memory"
	"github.com/SerPepe/402fly/internal/interfaces/rest"
	"github.com/SerPepe/402fly/internal/interfaces/rest/middleware"
	"github.com/SerPepe/402fly/internal/replay"
)

const (
	testRecipient = "FLYrcp1Go1dWa11etAddre55555555555555555555"
	testFeeWallet = "FLYfeeWa11etAddre5555555555555555555555555"
	testMint      = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testPayer     = "FLYpayerWa11etAddre55555555555555555555555"
)

type stubLedger struct {
	record *ledger.TransactionRecord
	err    error
}

func (s *stubLedger) Lookup(ctx context.Context, txRef string) (*ledger.TransactionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

type enforcerFixture struct {
	enforcer *middleware.Enforcer
	ledger   *stubLedger
}

func newEnforcerFixture(t *testing.T, autoVerify bool) *enforcerFixture {
	t.Helper()

	paymentConfig := config.PaymentConfig{
		Address:       testRecipient,
		TokenMint:     testMint,
		TokenDecimals: 6,
		Network:       "solana-devnet",
		DefaultAmount: "0.01",
		Timeout:       5 * time.Minute,
		AutoVerify:    autoVerify,
		FeeWallet:     testFeeWallet,
		FeePercentage: 0,
	}

	backend := memory.New()
	challengeStore := challenges.NewStore(backend)
	guard := replay.NewGuard(backend, time.Hour)
	stub := &stubLedger{}
	logger := slog.Default()

	issuer := services.NewChallengeIssuer(paymentConfig, challengeStore, logger)
	verifier := services.NewPaymentVerifier(stub, guard, challengeStore, paymentConfig, logger)

	return &enforcerFixture{
		enforcer: middleware.NewEnforcer(issuer, verifier, autoVerify, logger),
		ledger:   stub,
	}
}

func protectedHandler(t *testing.T, served *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*served = true
		auth, ok := rest.AuthorizationFrom(r.Context())
		require.True(t, ok, "handler must receive the verified authorization")
		w.Write([]byte(auth.PaymentID))
	})
}

func TestPaymentRequired_IssuesChallenge(t *testing.T) {
	f := newEnforcerFixture(t, true)

	served := false
	handler := f.enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount:      decimal.RequireFromString("5.00"),
		Description: "premium data",
	})(protectedHandler(t, &served))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/premium-data", nil))

	assert.Equal(t, http.StatusPaymentRequired, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.False(t, served, "handler must not run without payment")

	var body rest.PaymentRequiredResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ChallengeID)
	assert.Equal(t, testRecipient, body.RecipientAddress)
	assert.Equal(t, testMint, body.TokenIdentifier)
	assert.True(t, body.RequiredAmount.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, testFeeWallet, body.FeeWallet)
	assert.Equal(t, "premium data", body.Description)
	assert.True(t, body.ExpiresAt.After(time.Now()))
}

func TestPaymentRequired_VerifiedProofReachesHandler(t *testing.T) {
	f := newEnforcerFixture(t, true)

	served := false
	handler := f.enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount: decimal.RequireFromString("5.00"),
	})(protectedHandler(t, &served))

	// First request gets the challenge.
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/premium-data", nil))
	require.Equal(t, http.StatusPaymentRequired, recorder.Code)

	var challenge rest.PaymentRequiredResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &challenge))

	// The second request carries proof of a settled transfer.
	f.ledger.record = &ledger.TransactionRecord{
		Signature: "sig-settled",
		Recipient: testRecipient,
		Asset:     testMint,
		Amount:    decimal.RequireFromString("5.00"),
		Sender:    testPayer,
		Finalized: true,
	}

	request := httptest.NewRequest(http.MethodGet, "/premium-data", nil)
	request.Header.Set(rest.HeaderPaymentID, challenge.ChallengeID)
	request.Header.Set(rest.HeaderPaymentTransaction, "sig-settled")

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, served)
	assert.NotEmpty(t, recorder.Body.String())
}

func TestPaymentRequired_PendingProofIsRetryable(t *testing.T) {
	f := newEnforcerFixture(t, true)
	f.ledger.err = ledger.ErrUnconfirmed

	served := false
	handler := f.enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount: decimal.RequireFromString("5.00"),
	})(protectedHandler(t, &served))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/premium-data", nil))
	var challenge rest.PaymentRequiredResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &challenge))

	request := httptest.NewRequest(http.MethodGet, "/premium-data", nil)
	request.Header.Set(rest.HeaderPaymentID, challenge.ChallengeID)
	request.Header.Set(rest.HeaderPaymentTransaction, "sig-too-early")

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusPaymentRequired, recorder.Code)
	assert.False(t, served)

	var rejection rest.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &rejection))
	assert.False(t, rejection.Success)
	assert.Equal(t, "PENDING", rejection.Error.Code)
	assert.True(t, rejection.Error.Retryable)
}

func TestPaymentRequired_UnknownChallengeRejected(t *testing.T) {
	f := newEnforcerFixture(t, true)

	served := false
	handler := f.enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount: decimal.RequireFromString("5.00"),
	})(protectedHandler(t, &served))

	request := httptest.NewRequest(http.MethodGet, "/premium-data", nil)
	request.Header.Set(rest.HeaderPaymentID, "no-such-challenge")
	request.Header.Set(rest.HeaderPaymentTransaction, "sig-whatever")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.False(t, served)

	var rejection rest.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &rejection))
	assert.Equal(t, "INVALID_CHALLENGE", rejection.Error.Code)
	assert.False(t, rejection.Error.Retryable)
}

func TestPaymentRequired_ManualVerificationInjectsProof(t *testing.T) {
	f := newEnforcerFixture(t, false)

	var gotProof rest.Proof
	var hadProof bool
	handler := f.enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount: decimal.RequireFromString("5.00"),
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProof, hadProof = rest.ProofFrom(r.Context())
		_, verified := rest.AuthorizationFrom(r.Context())
		assert.False(t, verified, "manual mode must not pre-verify")
		w.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/premium-data", nil)
	request.Header.Set(rest.HeaderPaymentID, "ch-manual")
	request.Header.Set(rest.HeaderPaymentTransaction, "sig-manual")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, hadProof)
	assert.Equal(t, "ch-manual", gotProof.ChallengeID)
	assert.Equal(t, "sig-manual", gotProof.TransactionHash)
}

func TestPaymentRequired_DefaultAmountFallback(t *testing.T) {
	f := newEnforcerFixture(t, true)

	handler := f.enforcer.PaymentRequired(middleware.PaymentOptions{
		Description: "cheap data",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/data", nil))

	require.Equal(t, http.StatusPaymentRequired, recorder.Code)
	var challenge rest.PaymentRequiredResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &challenge))
	assert.True(t, challenge.RequiredAmount.Equal(decimal.RequireFromString("0.01")))
}
