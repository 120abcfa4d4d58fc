package paymenthandlers

import (
	"encoding/json"
	"net/http"

	"github.com/information-sharing-networks/saturn-demo/internal/orchestrator"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
)

type FinalizeRequest struct {
	Amount int64 `json:"amount" example:"5750"`
}

// ReservationStatus describes a reservation that has not been finalized.
type ReservationStatus struct {
	Status         string `json:"status"`
	ReferenceID    string `json:"referenceId"`
	ReservedAmount int64  `json:"reservedAmount"`
	Currency       string `json:"currency"`

	// Error is set when the last finalize attempt failed
	Error string `json:"error,omitempty"`
}

// HandleResult godoc
//
//	@Summary		Get the outcome of the checkout
//	@Description	Called by the browser once the poll returns "s" (or after a same-device payment).
//	@Description	Returns the payment result, or the reservation waiting to be finalized.
//	@Tags			Payment
//	@Produce		json
//	@Success		200	{object}	saturn.CheckoutResponse
//	@Success		200	{object}	ReservationStatus
//	@Success		200	{object}	saturn.AlertResponse	"Session timed out"
//	@Router			/api/result [get]
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, ok := h.browserSession(w, r, false)
	if !ok {
		saturn.RespondWithAlert(w, r, saturn.AlertSessionTimedOut)
		return
	}

	var referenceID string
	found, err := h.sessions.Get(ctx, sessionID, sessionstore.KeyResultReference, &referenceID)
	if err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}
	if found {
		result, err := h.results.GetResult(ctx, referenceID)
		if err != nil {
			saturn.RespondWithErrorResponse(w, r, err)
			return
		}
		saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.CheckoutResponse{
			Status: saturn.StatusComplete,
			Result: result,
		})
		return
	}

	var pending saturn.PendingOperation
	found, err = h.sessions.Get(ctx, sessionID, sessionstore.KeyPendingOperation, &pending)
	if err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}
	if !found {
		saturn.RespondWithAlert(w, r, saturn.AlertSessionTimedOut)
		return
	}
	saturn.RespondWithJSONPayload(w, http.StatusOK, ReservationStatus{
		Status:         saturn.StatusReserved,
		ReferenceID:    pending.ReferenceID,
		ReservedAmount: pending.ReservedAmount,
		Currency:       pending.Currency,
		Error:          pending.Error,
	})
}

// HandleFinalize godoc
//
//	@Summary		Finalize a reservation
//	@Description	Settles the reservation of the caller's browser session with the amount actually consumed.
//	@Description	The amount must be greater than zero and no larger than the reserved amount.
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Param			request	body		FinalizeRequest	true	"Amount to charge"
//	@Success		200		{object}	saturn.CheckoutResponse
//	@Success		200		{object}	saturn.AlertResponse	"Finalize failed"
//	@Failure		400		{object}	saturn.ErrorResponse	"Invalid amount"
//	@Failure		404		{object}	saturn.ErrorResponse	"No reservation in the session"
//	@Router			/api/finalize [post]
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		saturn.RespondWithErrorResponse(w, r, saturn.WrapMalformedRequestError(err, "failed to decode request JSON"))
		return
	}

	var pending *saturn.PendingOperation
	if sessionID, ok := h.browserSession(w, r, false); ok {
		// claimed so that a concurrent finalize can not settle the reservation a second time
		var op saturn.PendingOperation
		found, err := h.sessions.Take(ctx, sessionID, sessionstore.KeyPendingOperation, &op)
		if err != nil {
			saturn.RespondWithErrorResponse(w, r, err)
			return
		}
		if found {
			pending = &op
		}

		switch o := h.orchestrator.Finalize(ctx, pending, req.Amount).(type) {
		case orchestrator.Complete:
			if err := h.sessions.Set(ctx, sessionID, sessionstore.KeyResultReference, o.Result.ReferenceID); err != nil {
				saturn.RespondWithErrorResponse(w, r, err)
				return
			}
			saturn.RespondWithJSONPayload(w, http.StatusOK, saturn.CheckoutResponse{
				Status: saturn.StatusComplete,
				Result: o.Result,
			})

		case orchestrator.Failed:
			// keep the reservation so that the finalize can be retried
			if pending != nil {
				if o.Kind != saturn.ErrCodeInvalidAmount {
					pending.Error = saturn.AlertMessage(o.Kind)
				}
				h.restore(ctx, sessionID, sessionstore.KeyPendingOperation, pending)
			}
			h.respondWithFailure(w, r, o)

		default:
			if pending != nil {
				h.restore(ctx, sessionID, sessionstore.KeyPendingOperation, pending)
			}
			saturn.RespondWithErrorResponse(w, r, saturn.NewInternalError("unexpected finalize outcome"))
		}
		return
	}

	saturn.RespondWithErrorResponse(w, r, saturn.NewNotFoundError("no pending reservation"))
}
