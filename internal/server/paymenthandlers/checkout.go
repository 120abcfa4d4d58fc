package paymenthandlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
)

// CheckoutRequest starts a checkout. Amounts are in minor units.
type CheckoutRequest struct {
	Amount int64 `json:"amount" example:"12500"`

	// Reservation reserves the standard reservation amount; the real amount is supplied by /api/finalize
	Reservation bool `json:"reservation"`
}

type CheckoutCreatedResponse struct {
	ReferenceID string `json:"referenceId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reservation bool   `json:"reservation"`

	// WalletURL invokes the wallet on the same device
	WalletURL string `json:"walletUrl"`
}

// HandleCheckout godoc
//
//	@Summary		Start a checkout
//	@Description	Creates a payment request in the caller's browser session. Any earlier checkout,
//	@Description	result or pending reservation of the session is discarded.
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckoutRequest					true	"Checkout"
//	@Success		201		{object}	CheckoutCreatedResponse
//	@Failure		400		{object}	saturn.ErrorResponse	"Invalid amount"
//	@Router			/api/checkout [post]
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		saturn.RespondWithErrorResponse(w, r, saturn.WrapMalformedRequestError(err, "failed to decode request JSON"))
		return
	}

	amount := req.Amount
	if req.Reservation {
		amount = h.cfg.ReservationAmount
	}
	if amount <= 0 {
		saturn.RespondWithErrorResponse(w, r, saturn.NewInvalidAmountError("amount must be greater than zero"))
		return
	}

	sessionID, _ := h.browserSession(w, r, true)
	now := h.now().UTC()
	checkout := checkoutState{
		PaymentRequest: saturn.PaymentRequest{
			PayeeCommonName: h.merchant.CommonName,
			ReferenceID:     uuid.NewString(),
			Amount:          amount,
			Currency:        h.merchant.Currency,
			TimeStamp:       now,
			Expires:         now.Add(h.cfg.PaymentRequestTTL),
		},
		Reservation: req.Reservation,
	}

	for _, key := range []string{sessionstore.KeyResultReference, sessionstore.KeyPendingOperation} {
		if err := h.sessions.Delete(ctx, sessionID, key); err != nil {
			saturn.RespondWithErrorResponse(w, r, err)
			return
		}
	}
	if err := h.sessions.Set(ctx, sessionID, sessionstore.KeyCheckout, checkout); err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}

	saturn.RespondWithJSONPayload(w, http.StatusCreated, CheckoutCreatedResponse{
		ReferenceID: checkout.PaymentRequest.ReferenceID,
		Amount:      amount,
		Currency:    checkout.PaymentRequest.Currency,
		Reservation: req.Reservation,
		WalletURL:   h.cfg.BaseURL + "/wallet/invoke",
	})
}
