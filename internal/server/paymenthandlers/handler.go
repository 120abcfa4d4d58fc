package paymenthandlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/logger"
	"github.com/information-sharing-networks/saturn-demo/internal/orchestrator"
	"github.com/information-sharing-networks/saturn-demo/internal/qrsession"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
	"github.com/information-sharing-networks/saturn-demo/internal/store"
)

// SessionCookie holds the browser session id.
const SessionCookie = "saturn_session"

// Orchestrator is implemented by *orchestrator.Orchestrator.
type Orchestrator interface {
	Authorize(ctx context.Context, c orchestrator.Checkout) orchestrator.Outcome
	Finalize(ctx context.Context, pending *saturn.PendingOperation, amount int64) orchestrator.Outcome
	Refund(ctx context.Context, referenceID string, amount int64) orchestrator.Outcome
}

type Config struct {
	// BaseURL is the externally visible URL of the merchant, used in QR codes and wallet links
	BaseURL string

	CometWait         time.Duration
	ReservationAmount int64

	// PaymentRequestTTL is how long the wallet has to pay a checkout
	PaymentRequestTTL time.Duration

	SecureCookies bool
}

// Handler serves the payment API.
type Handler struct {
	cfg          Config
	merchant     *config.Merchant
	registry     *qrsession.Registry
	orchestrator Orchestrator
	sessions     sessionstore.Store
	results      store.ResultStore
	now          func() time.Time
}

func NewHandler(
	cfg Config,
	merchant *config.Merchant,
	registry *qrsession.Registry,
	orch Orchestrator,
	sessions sessionstore.Store,
	results store.ResultStore,
) *Handler {
	if cfg.CometWait <= 0 {
		cfg.CometWait = qrsession.DefaultCometWait
	}
	if cfg.PaymentRequestTTL <= 0 {
		cfg.PaymentRequestTTL = 30 * time.Minute
	}
	return &Handler{
		cfg:          cfg,
		merchant:     merchant,
		registry:     registry,
		orchestrator: orch,
		sessions:     sessions,
		results:      results,
		now:          time.Now,
	}
}

// checkoutState is the checkout kept in the browser session until the wallet pays it.
type checkoutState struct {
	PaymentRequest saturn.PaymentRequest `json:"paymentRequest"`
	Reservation    bool                  `json:"reservation"`
}

// browserSession returns the caller's browser session id, creating the cookie if requested.
func (h *Handler) browserSession(w http.ResponseWriter, r *http.Request, create bool) (string, bool) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value, true
		}
	}
	if !create {
		return "", false
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}

// ownerSession resolves the browser session a wallet request belongs to: the owner of the QR
// session when qrID is set, otherwise the caller's own browser session.
func (h *Handler) ownerSession(w http.ResponseWriter, r *http.Request, qrID string) (string, error) {
	if qrID != "" {
		owner, ok := h.registry.LookupOwnerSessionID(qrID)
		if !ok {
			return "", saturn.NewSessionAbsentError("QR session " + qrID + " does not exist")
		}
		return owner, nil
	}
	owner, ok := h.browserSession(w, r, false)
	if !ok {
		return "", saturn.NewSessionAbsentError("no browser session")
	}
	return owner, nil
}

func (h *Handler) loadCheckout(ctx context.Context, sessionID string) (*checkoutState, error) {
	var c checkoutState
	found, err := h.sessions.Get(ctx, sessionID, sessionstore.KeyCheckout, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, saturn.NewSessionAbsentError("no checkout in progress")
	}
	return &c, nil
}

// claimCheckout removes the checkout from the browser session and returns it. Only one of
// several concurrent wallet requests gets it; the others see an absent session.
func (h *Handler) claimCheckout(ctx context.Context, sessionID string) (*checkoutState, error) {
	var c checkoutState
	found, err := h.sessions.Take(ctx, sessionID, sessionstore.KeyCheckout, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, saturn.NewSessionAbsentError("no checkout in progress")
	}
	return &c, nil
}

// restore puts back a claimed session attribute after an outcome that allows a retry.
func (h *Handler) restore(ctx context.Context, sessionID, key string, value any) {
	if err := h.sessions.Set(ctx, sessionID, key, value); err != nil {
		logger.ContextRequestLogger(ctx).Warn("failed to restore session attribute",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// respondWithFailure reports a failed orchestrator call. Request errors (amount, unknown receipt)
// go back as error responses, other soft failures as alerts. Hard failures are logged with the
// failing party and shown as a generic failure.
func (h *Handler) respondWithFailure(w http.ResponseWriter, r *http.Request, failed orchestrator.Failed) {
	switch {
	case failed.Kind == saturn.ErrCodeInvalidAmount || failed.Kind == saturn.ErrCodeNotFound:
		saturn.RespondWithErrorResponse(w, r, failed.Err)
	case failed.Soft():
		saturn.RespondWithAlert(w, r, saturn.AlertMessage(failed.Kind))
	default:
		logger.ContextRequestLogger(r.Context()).Error("payment failed",
			slog.String("url", failed.URL),
			slog.Int("error_code", int(failed.Kind)),
			slog.String("error", failed.Err.Error()),
		)
		saturn.RespondWithAlert(w, r, saturn.AlertGenericFailure)
	}
}

// respondWithSessionError turns a missing session into the "timed out" alert.
func respondWithSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if saturn.ErrorCodeOf(err) == saturn.ErrCodeSessionAbsent {
		saturn.RespondWithAlert(w, r, saturn.AlertSessionTimedOut)
		return
	}
	saturn.RespondWithErrorResponse(w, r, err)
}
