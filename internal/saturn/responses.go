package saturn

// responses.go provides helper functions for sending HTTP responses from the merchant API handlers.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/saturn-demo/internal/logger"
)

// RespondWithErrorResponse sends an error response as a JSON payload.
//
// Use this function when a request failed because it was malformed or because of a
// technical failure in a protocol exchange. Soft conditions go through RespondWithAlert.
//
// It logs the full error details server-side.
func RespondWithErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse := MapErrorToResponse(err, r)

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Warn("Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", errorResponse.StatusCode),
		slog.String("error_code_text", errorResponse.StatusCodeMessage),
		slog.String("request_id", errorResponse.CorrelationReference),
	)

	RespondWithJSONPayload(w, errorResponse.StatusCode, errorResponse)
}

// RespondWithAlert sends a soft failure to the wallet or browser. The status is always 200:
// the client shows the message and the user may retry.
func RespondWithAlert(w http.ResponseWriter, r *http.Request, message string) {
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Info("Alert returned to user", slog.String("message", message))

	RespondWithJSONPayload(w, http.StatusOK, AlertResponse{Status: StatusAlert, Message: message})
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// headers are already written
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}

// RespondWithStatusCodeOnly sends a response with only a status code (no body)
func RespondWithStatusCodeOnly(w http.ResponseWriter, statusCode int) {
	w.WriteHeader(statusCode)
}

// RespondWithText sends a short text/plain body that must not be cached (long-poll replies).
func RespondWithText(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("Failed to write text response", slog.String("error", err.Error()))
	}
}
