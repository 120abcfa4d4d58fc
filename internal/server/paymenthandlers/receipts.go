package paymenthandlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/saturn-demo/internal/orchestrator"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/store"
)

// maxListLimit caps the limit query parameter of the receipts list.
const maxListLimit = 500

type RefundRequest struct {
	Amount int64 `json:"amount" example:"1000"`
}

// ReceiptResponse is a payment result together with the refunds made against it.
type ReceiptResponse struct {
	Result  *saturn.ResultData `json:"result"`
	Refunds []store.Refund     `json:"refunds"`
}

// HandleListReceipts godoc
//
//	@Summary		List receipts
//	@Description	Returns the most recent payment results first.
//	@Tags			Receipts
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of receipts (default 50, max 500)"
//	@Success		200		{array}		saturn.ResultData
//	@Failure		400		{object}	saturn.ErrorResponse
//	@Failure		401		{object}	saturn.AlertResponse
//	@Security		BearerAuth
//	@Router			/admin/receipts [get]
func (h *Handler) HandleListReceipts(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			saturn.RespondWithErrorResponse(w, r, saturn.NewMalformedRequestError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	results, err := h.results.ListResults(r.Context(), limit)
	if err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}
	if results == nil {
		results = []*saturn.ResultData{}
	}
	saturn.RespondWithJSONPayload(w, http.StatusOK, results)
}

// HandleGetReceipt godoc
//
//	@Summary		Get a receipt
//	@Tags			Receipts
//	@Produce		json
//	@Param			referenceId	path		string	true	"Payment reference id"
//	@Success		200			{object}	ReceiptResponse
//	@Failure		404			{object}	saturn.ErrorResponse
//	@Failure		401			{object}	saturn.AlertResponse
//	@Security		BearerAuth
//	@Router			/admin/receipts/{referenceId} [get]
func (h *Handler) HandleGetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	referenceID := chi.URLParam(r, "referenceId")

	result, err := h.results.GetResult(ctx, referenceID)
	if err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}
	refunds, err := h.results.ListRefunds(ctx, referenceID)
	if err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}
	if refunds == nil {
		refunds = []store.Refund{}
	}
	saturn.RespondWithJSONPayload(w, http.StatusOK, ReceiptResponse{Result: result, Refunds: refunds})
}

// HandleRefund godoc
//
//	@Summary		Refund a payment
//	@Description	Returns part or all of a payment to the payer through the payee provider's refund service.
//	@Description	The total refunded can not exceed the payment amount.
//	@Tags			Receipts
//	@Accept			json
//	@Produce		json
//	@Param			referenceId	path		string			true	"Payment reference id"
//	@Param			request		body		RefundRequest	true	"Amount to refund"
//	@Success		200			{object}	saturn.CheckoutResponse
//	@Success		200			{object}	saturn.AlertResponse	"Refund not supported or failed"
//	@Failure		400			{object}	saturn.ErrorResponse	"Invalid amount"
//	@Failure		404			{object}	saturn.ErrorResponse	"Unknown payment"
//	@Failure		401			{object}	saturn.AlertResponse
//	@Security		BearerAuth
//	@Router			/admin/receipts/{referenceId}/refund [post]
func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		saturn.RespondWithErrorResponse(w, r, saturn.WrapMalformedRequestError(err, "failed to decode request JSON"))
		return
	}

	switch o := h.orchestrator.Refund(r.Context(), chi.URLParam(r, "referenceId"), req.Amount).(type) {
	case orchestrator.Complete:
		saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.CheckoutResponse{
			Status: saturn.StatusComplete,
			Result: o.Result,
		})
	case orchestrator.Failed:
		h.respondWithFailure(w, r, o)
	default:
		saturn.RespondWithErrorResponse(w, r, saturn.NewInternalError("unexpected refund outcome"))
	}
}
