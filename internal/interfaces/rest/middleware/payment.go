package middleware

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/SerPepe/402fly/internal/application/services"
	"github.com/SerPepe/402fly/internal/interfaces/rest"
)

// PaymentOptions prices a single protected route.
type PaymentOptions struct {
	// Amount is the price of the resource. Zero falls back to the configured
	// default amount.
	Amount decimal.Decimal

	// Description explains what is being paid for, echoed in the challenge.
	Description string
}

// Enforcer gates handlers behind the challenge/verification flow.
type Enforcer struct {
	issuer   *services.ChallengeIssuer
	verifier *services.PaymentVerifier

	// autoVerify controls whether proofs are verified here or handed to the
	// handler unverified for explicit verification.
	autoVerify bool

	logger *slog.Logger
}

func NewEnforcer(
	issuer *services.ChallengeIssuer,
	verifier *services.PaymentVerifier,
	autoVerify bool,
	logger *slog.Logger,
) *Enforcer {
	return &Enforcer{
		issuer:     issuer,
		verifier:   verifier,
		autoVerify: autoVerify,
		logger:     logger,
	}
}

// PaymentRequired wraps a handler so that requests without payment proof get
// a priced 402 challenge, and requests carrying proof headers are verified
// before dispatch. On success the authorization is attached to the request
// context for the handler.
func (e *Enforcer) PaymentRequired(opts PaymentOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txRef := r.Header.Get(rest.HeaderPaymentTransaction)
			if txRef == "" {
				e.challenge(w, r, opts)
				return
			}

			challengeID := r.Header.Get(rest.HeaderPaymentID)

			if !e.autoVerify {
				ctx := rest.WithProof(r.Context(), rest.Proof{
					ChallengeID:     challengeID,
					TransactionHash: txRef,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			authorization, err := e.verifier.VerifyByID(r.Context(), challengeID, txRef)
			if err != nil {
				e.logger.Info("payment rejected",
					"challenge_id", challengeID,
					"transaction", txRef,
					"code", rest.ToErrorCode(err),
				)
				rest.WriteError(w, err)
				return
			}

			ctx := rest.WithAuthorization(r.Context(), authorization)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (e *Enforcer) challenge(w http.ResponseWriter, r *http.Request, opts PaymentOptions) {
	challenge, err := e.issuer.Issue(r.Context(), opts.Amount, opts.Description)
	if err != nil {
		e.logger.Error("challenge issuance failed",
			"path", r.URL.Path,
			"error", err,
		)
		rest.WriteError(w, err)
		return
	}

	rest.WritePaymentRequired(w, challenge)
}
