package paymenthandlers

// qr.go implements the cross-device rendezvous: the browser shows a QR code, the phone's wallet
// scans it and pays, and the browser learns about it through a long-poll (or a websocket).

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/saturn-demo/internal/logger"
	"github.com/information-sharing-networks/saturn-demo/internal/qrsession"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	qrcode "github.com/skip2/go-qrcode"
)

// QRPayloadPrefix identifies a Saturn wallet invocation to the scanning app.
const QRPayloadPrefix = "webpki.org="

// maxPollBody is the largest accepted long-poll body (a decimal session id).
const maxPollBody = 64

type QRResponse struct {
	ID       string `json:"id"`
	Payload  string `json:"payload"`
	ImageURL string `json:"imageUrl"`
	PollURL  string `json:"pollUrl"`
}

// PollMessage is sent over the websocket for every poll cycle.
type PollMessage struct {
	Status qrsession.PollStatus `json:"status"`
}

// QRPayload returns the text encoded in the QR code of a session.
func (h *Handler) QRPayload(id string) string {
	return QRPayloadPrefix + url.QueryEscape(h.cfg.BaseURL+"/wallet/invoke?qr="+id)
}

// HandleCreateQR godoc
//
//	@Summary		Create a QR session
//	@Description	Creates a QR session for the checkout of the caller's browser session.
//	@Description	The session expires after QR_MAX_SESSION unless the wallet completes the payment.
//	@Tags			QR
//	@Produce		json
//	@Success		200	{object}	QRResponse
//	@Success		200	{object}	saturn.AlertResponse	"No checkout in progress"
//	@Router			/api/qr [get]
func (h *Handler) HandleCreateQR(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.browserSession(w, r, false)
	if !ok {
		saturn.RespondWithAlert(w, r, saturn.AlertSessionTimedOut)
		return
	}
	if _, err := h.loadCheckout(r.Context(), sessionID); err != nil {
		respondWithSessionError(w, r, err)
		return
	}

	id := h.registry.CreateSession(sessionID)
	logger.ContextWithLogAttrs(r.Context(), slog.String("qr_session", id))

	saturn.RespondWithJSONPayload(w, http.StatusOK, QRResponse{
		ID:       id,
		Payload:  h.QRPayload(id),
		ImageURL: "/api/qr/" + id + "/image.png",
		PollURL:  "/api/qr/poll",
	})
}

// HandleQRImage godoc
//
//	@Summary	QR code image
//	@Tags		QR
//	@Produce	png
//	@Param		id	path	string	true	"QR session id"
//	@Success	200
//	@Failure	404	{object}	saturn.ErrorResponse
//	@Router		/api/qr/{id}/image.png [get]
func (h *Handler) HandleQRImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.checkOwner(w, r, id); err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}

	png, err := qrcode.Encode(h.QRPayload(id), qrcode.Medium, 256)
	if err != nil {
		saturn.RespondWithErrorResponse(w, r, saturn.WrapInternalError(err, "failed to render QR code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandlePoll godoc
//
//	@Summary		Long-poll a QR session
//	@Description	The body is the QR session id. The call blocks for at most QR_COMET_WAIT and returns one token:
//	@Description	c (nothing yet), p (the wallet is working on it), r (cancelled, expired or unknown) or s (paid).
//	@Description	After s the session is gone and the browser fetches /api/result.
//	@Description	Only the browser session that created the QR session can poll it, others get r.
//	@Tags			QR
//	@Accept			plain
//	@Produce		plain
//	@Success		200	{string}	string	"c, p, r or s"
//	@Router			/api/qr/poll [post]
func (h *Handler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPollBody+1))
	if err != nil || len(body) > maxPollBody {
		saturn.RespondWithErrorResponse(w, r, saturn.NewMalformedRequestError("invalid QR session id"))
		return
	}
	id := strings.TrimSpace(string(body))

	// foreign pollers see the same r as for an unknown id and never consume the s token
	sessionID, _ := h.browserSession(w, r, false)
	if owner, ok := h.registry.LookupOwnerSessionID(id); !ok || owner != sessionID {
		saturn.RespondWithText(w, http.StatusOK, string(qrsession.PollReturned))
		return
	}

	status := h.registry.Poll(r.Context(), id, h.cfg.CometWait)
	saturn.RespondWithText(w, http.StatusOK, string(status))
}

// HandleCancelQR godoc
//
//	@Summary		Cancel a QR session
//	@Description	Wakes every poller with r. Cancelling an unknown session is not an error.
//	@Tags			QR
//	@Param			id	path	string	true	"QR session id"
//	@Success		204
//	@Router			/api/qr/{id} [delete]
func (h *Handler) HandleCancelQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sessionID, _ := h.browserSession(w, r, false)
	if owner, ok := h.registry.LookupOwnerSessionID(id); ok && owner != sessionID {
		saturn.RespondWithErrorResponse(w, r, saturn.NewNotFoundError("QR session "+id+" not found"))
		return
	}
	h.registry.CancelSession(id)
	saturn.RespondWithStatusCodeOnly(w, http.StatusNoContent)
}

// HandleQRWebSocket godoc
//
//	@Summary		Follow a QR session over a websocket
//	@Description	Sends {"status": token} after every poll cycle until the session reaches s or r,
//	@Description	then closes the connection.
//	@Tags			QR
//	@Param			id	path	string	true	"QR session id"
//	@Success		101
//	@Failure		404	{object}	saturn.ErrorResponse
//	@Router			/api/qr/{id}/ws [get]
func (h *Handler) HandleQRWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.checkOwner(w, r, id); err != nil {
		saturn.RespondWithErrorResponse(w, r, err)
		return
	}
	reqLogger := logger.ContextRequestLogger(r.Context())

	// the connection outlives the server's write timeout
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		reqLogger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	// CloseRead cancels ctx when the browser goes away
	ctx := conn.CloseRead(r.Context())

	for {
		status := h.registry.Poll(ctx, id, h.cfg.CometWait)
		if ctx.Err() != nil {
			return
		}
		if err := wsjson.Write(ctx, conn, PollMessage{Status: status}); err != nil {
			if !errors.Is(err, context.Canceled) {
				reqLogger.Debug("websocket write failed", slog.String("error", err.Error()))
			}
			return
		}
		if status == qrsession.PollSuccess || status == qrsession.PollReturned {
			conn.Close(websocket.StatusNormalClosure, string(status))
			return
		}
	}
}

// checkOwner rejects access to QR sessions owned by another browser session.
func (h *Handler) checkOwner(w http.ResponseWriter, r *http.Request, id string) error {
	sessionID, _ := h.browserSession(w, r, false)
	owner, ok := h.registry.LookupOwnerSessionID(id)
	if !ok || owner != sessionID {
		return saturn.NewNotFoundError("QR session " + id + " not found")
	}
	return nil
}
