package paymenthandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/information-sharing-networks/saturn-demo/internal/logger"
	"github.com/information-sharing-networks/saturn-demo/internal/orchestrator"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
)

// HandleWalletInvoke godoc
//
//	@Summary		Invoke the wallet
//	@Description	Returns the payment request of a checkout together with the payment methods the merchant accepts.
//	@Description	With ?qr= the checkout is found through the QR session (cross-device) and the QR session
//	@Description	is marked in progress; without it the browser session cookie is used (same device).
//	@Tags			Wallet
//	@Produce		json
//	@Param			qr	query		string	false	"QR session id"
//	@Success		200	{object}	saturn.WalletRequest
//	@Success		200	{object}	saturn.AlertResponse	"Session timed out"
//	@Router			/wallet/invoke [get]
func (h *Handler) HandleWalletInvoke(w http.ResponseWriter, r *http.Request) {
	qrID := r.URL.Query().Get("qr")

	owner, err := h.ownerSession(w, r, qrID)
	if err != nil {
		respondWithSessionError(w, r, err)
		return
	}
	checkout, err := h.loadCheckout(r.Context(), owner)
	if err != nil {
		respondWithSessionError(w, r, err)
		return
	}

	authorizeURL := h.cfg.BaseURL + "/wallet/authorize"
	if qrID != "" {
		h.registry.MarkInProgress(qrID)
		authorizeURL += "?qr=" + url.QueryEscape(qrID)
		logger.ContextWithLogAttrs(r.Context(), slog.String("qr_session", qrID))
	}

	saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.WalletRequest{
		PaymentRequest: checkout.PaymentRequest,
		PaymentMethods: h.merchant.ClientPaymentMethods(),
		AuthorizeURL:   authorizeURL,
	})
}

// HandleWalletAuthorize godoc
//
//	@Summary		Pay a checkout
//	@Description	Receives the wallet's encrypted authorization and runs the payment protocol.
//	@Description
//	@Description	The reply is one of:
//	@Description	- {"status":"complete","result":{...}} the payment is recorded
//	@Description	- {"status":"reserved",...} funds are reserved and the checkout will be finalized later
//	@Description	- {"status":"stepUp","encryptedMessage":{...}} the payer's bank needs more information from the user
//	@Description	- {"status":"alert","message":"..."} the payment could not be made
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Param			qr		query		string					false	"QR session id"
//	@Param			request	body		saturn.WalletResponse	true	"Wallet response"
//	@Success		200		{object}	saturn.CheckoutResponse
//	@Failure		400		{object}	saturn.ErrorResponse	"Malformed wallet response"
//	@Router			/wallet/authorize [post]
func (h *Handler) HandleWalletAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qrID := r.URL.Query().Get("qr")

	var walletResponse saturn.WalletResponse
	if err := json.NewDecoder(r.Body).Decode(&walletResponse); err != nil {
		saturn.RespondWithErrorResponse(w, r, saturn.WrapMalformedRequestError(err, "failed to decode request JSON"))
		return
	}
	if err := walletResponse.Validate(); err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}

	owner, err := h.ownerSession(w, r, qrID)
	if err != nil {
		respondWithSessionError(w, r, err)
		return
	}
	// a concurrent authorize of the same checkout finds it gone and never reaches a provider
	checkout, err := h.claimCheckout(ctx, owner)
	if err != nil {
		respondWithSessionError(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("reference_id", checkout.PaymentRequest.ReferenceID),
		slog.String("payment_method", walletResponse.PaymentMethod),
	)

	outcome := h.orchestrator.Authorize(ctx, orchestrator.Checkout{
		OwnerSessionID:  owner,
		PaymentRequest:  checkout.PaymentRequest,
		Wallet:          walletResponse,
		Reservation:     checkout.Reservation,
		ClientIPAddress: r.RemoteAddr,
	})

	switch o := outcome.(type) {
	case orchestrator.Complete:
		if err := h.sessions.Set(ctx, owner, sessionstore.KeyResultReference, o.Result.ReferenceID); err != nil {
			saturn.RespondWithErrorResponse(w, r, err)
			return
		}
		h.wakeBrowser(r, qrID)
		saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.CheckoutResponse{
			Status: saturn.StatusComplete,
			Result: o.Result,
		})

	case orchestrator.Reserved:
		h.wakeBrowser(r, qrID)
		saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.CheckoutResponse{
			Status:         saturn.StatusReserved,
			ReferenceID:    o.Pending.ReferenceID,
			ReservedAmount: o.Pending.ReservedAmount,
		})

	case orchestrator.StepUpRequired:
		h.restore(ctx, owner, sessionstore.KeyCheckout, checkout)
		saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.StepUpResponse{
			Status:           saturn.StatusStepUp,
			EncryptedMessage: o.Challenge,
		})

	case orchestrator.Failed:
		h.restore(ctx, owner, sessionstore.KeyCheckout, checkout)

		// the browser stops waiting for a payment that can not succeed
		if !o.Soft() && qrID != "" {
			h.registry.CancelSession(qrID)
		}
		h.respondWithFailure(w, r, o)
	}
}

// wakeBrowser signals the QR session that the outcome has been persisted.
func (h *Handler) wakeBrowser(r *http.Request, qrID string) {
	if qrID != "" && !h.registry.MarkReady(qrID) {
		logger.ContextRequestLogger(r.Context()).Info("QR session ended before the payment completed",
			slog.String("qr_session", qrID))
	}
}
