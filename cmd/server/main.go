package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SerPepe/402fly/internal/application/services"
	"github.com/SerPepe/402fly/internal/challenges"
	"github.com/SerPepe/402fly/internal/config"
	"github.com/SerPepe/402fly/internal/domain"
	"github.com/SerPepe/402fly/internal/infrastructure/ledger"
	"github.com/SerPepe/402fly/internal/infrastructure/store"
	boltstore "github.com/SerPepe/402fly/internal/infrastructure/store/bbolt"
	"github.com/SerPepe/402fly/internal/infrastructure/store/memory"
	"github.com/SerPepe/402fly/internal/interfaces/rest"
	"github.com/SerPepe/402fly/internal/interfaces/rest/middleware"
	"github.com/SerPepe/402fly/internal/replay"
)

const cleanupInterval = 5 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()

	backend, closeStore, err := openStore(cleanupCtx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	challengeStore := challenges.NewStore(backend)
	guard := replay.NewGuard(backend, cfg.Store.Retention)
	ledgerClient := ledger.NewRPCClient(cfg.Ledger, cfg.Payment.Network)

	issuer := services.NewChallengeIssuer(cfg.Payment, challengeStore, logger)
	verifier := services.NewPaymentVerifier(ledgerClient, guard, challengeStore, cfg.Payment, logger)

	enforcer := middleware.NewEnforcer(issuer, verifier, cfg.Payment.AutoVerify, logger)

	logger.Info("starting 402fly server",
		"port", cfg.Server.Port,
		"network", cfg.Payment.Network,
		"rpc_url", ledgerClient.Endpoint(),
		"payment_address", cfg.Payment.Address,
		"token_mint", cfg.Payment.TokenMint,
		"auto_verify", cfg.Payment.AutoVerify,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"message":        "402fly demo API",
			"free_endpoint":  "/free-data",
			"paid_endpoints": []string{"/premium-data", "/expensive-data"},
		})
	})

	mux.HandleFunc("GET /free-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"data":   "This content is available to everyone",
			"access": "public",
		})
	})

	premium := enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount:      decimal.RequireFromString("5.00"),
		Description: "Access to premium market data",
	})
	mux.Handle("GET /premium-data", premium(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := requireAuthorization(w, r, verifier)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{
			"data":       "This is premium content",
			"payment_id": auth.PaymentID,
			"paid":       auth.ActualAmount,
		})
	})))

	expensive := enforcer.PaymentRequired(middleware.PaymentOptions{
		Amount:      decimal.RequireFromString("1.00"),
		Description: "Access to expensive model inference",
	})
	mux.Handle("GET /expensive-data", expensive(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := requireAuthorization(w, r, verifier)
		if !ok {
			return
		}
		writeJSON(w, map[string]any{
			"data":             "This is very expensive content",
			"payment_id":       auth.PaymentID,
			"transaction_hash": auth.TransactionHash,
			"payer":            auth.PayerAddress,
		})
	})))

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelCleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// openStore builds the configured storage backend and starts its expiry
// sweep. The returned close function flushes a persistent backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Interface, func(), error) {
	switch cfg.Backend {
	case "bbolt":
		s, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		go s.StartCleanup(ctx, cleanupInterval)
		return s, func() { s.Close() }, nil
	default:
		s := memory.New()
		go s.StartCleanup(ctx, cleanupInterval)
		return s, func() {}, nil
	}
}

// requireAuthorization returns the authorization for this request. With
// auto-verification enabled the middleware already verified the proof; with it
// disabled, the handler verifies the attached proof explicitly here.
func requireAuthorization(w http.ResponseWriter, r *http.Request, verifier *services.PaymentVerifier) (*domain.PaymentAuthorization, bool) {
	if auth, ok := rest.AuthorizationFrom(r.Context()); ok {
		return auth, true
	}

	proof, ok := rest.ProofFrom(r.Context())
	if !ok {
		rest.WriteError(w, domain.NewInvalidChallengeError(""))
		return nil, false
	}

	auth, err := verifier.VerifyByID(r.Context(), proof.ChallengeID, proof.TransactionHash)
	if err != nil {
		rest.WriteError(w, err)
		return nil, false
	}
	return auth, true
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
