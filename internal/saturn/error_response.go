package saturn

// error_response.go maps lower level errors to the JSON error response returned by the merchant API.
// Soft (functional) conditions are not reported this way: they are returned to the user as alerts.

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/logger"
)

// ErrorResponse is the body returned when a request fails with a technical error.
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// A long description corresponding to the HTTP status code with additional information
	StatusCodeMessage string `json:"statusCodeMessage,omitempty"`

	// The chi request id
	CorrelationReference string `json:"correlationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`

	Errors []DetailedError `json:"errors"`
}

// DetailedError gives more detail about the root cause.
type DetailedError struct {
	ErrorCode        ErrorCode `json:"errorCode"`
	ErrorCodeText    string    `json:"errorCodeText"`
	ErrorCodeMessage string    `json:"errorCodeMessage"`
}

// MapErrorToResponse maps saturn.Error, crypto.Error or generic errors to an error response.
//
// The mapping establishes the HTTP status code from the error code.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var saturnErr *SaturnError
	if errors.As(err, &saturnErr) {
		statusCode, text := statusForCode(saturnErr.Code())
		return newErrorResponse(r, requestID, statusCode, saturnErr.Code(), text, saturnErr.Error())
	}

	if code, ok := crypto.CodeOf(err); ok {
		errorCode := codeForCrypto(code)
		statusCode, text := statusForCode(errorCode)
		return newErrorResponse(r, requestID, statusCode, errorCode, text, err.Error())
	}

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return newErrorResponse(r, requestID, http.StatusInternalServerError, ErrCodeInternalError,
		"Internal Error", "An internal error occurred")
}

// ErrorCodeOf returns the code carried by err, or ErrCodeInternalError.
func ErrorCodeOf(err error) ErrorCode {
	var saturnErr *SaturnError
	if errors.As(err, &saturnErr) {
		return saturnErr.Code()
	}
	if code, ok := crypto.CodeOf(err); ok {
		return codeForCrypto(code)
	}
	return ErrCodeInternalError
}

func statusForCode(code ErrorCode) (int, string) {
	switch code {
	case ErrCodeBadSignature:
		return http.StatusBadGateway, "Bad signature"
	case ErrCodeMalformedMessage:
		return http.StatusBadGateway, "Malformed protocol message"
	case ErrCodeTransport:
		return http.StatusBadGateway, "Remote service error"
	case ErrCodeKeyError:
		return http.StatusInternalServerError, "Key error"
	case ErrCodeMalformedRequest:
		return http.StatusBadRequest, "Malformed request"
	case ErrCodeUnknownPaymentMethod:
		return http.StatusBadRequest, "Unknown payment method"
	case ErrCodeInvalidAmount:
		return http.StatusBadRequest, "Invalid amount"
	case ErrCodeNotFound:
		return http.StatusNotFound, "Not found"
	case ErrCodeSessionAbsent:
		return http.StatusNotFound, "Session not found"
	case ErrCodeUnsupportedMethod:
		return http.StatusUnprocessableEntity, "Unsupported payment method"
	case ErrCodeRefundNotSupported:
		return http.StatusUnprocessableEntity, "Refund not supported"
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests, "Rate limit exceeded"
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge, "Request too large"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func codeForCrypto(code crypto.ErrorCode) ErrorCode {
	switch code {
	case crypto.ErrCodeInvalidSignature:
		return ErrCodeBadSignature
	case crypto.ErrCodeValidation:
		return ErrCodeMalformedMessage
	case crypto.ErrCodeKeyManagement:
		return ErrCodeKeyError
	default:
		return ErrCodeInternalError
	}
}

func newErrorResponse(r *http.Request, requestID string, statusCode int, code ErrorCode, text, message string) *ErrorResponse {
	return &ErrorResponse{
		HTTPMethod:           r.Method,
		RequestURI:           r.RequestURI,
		StatusCode:           statusCode,
		StatusCodeText:       http.StatusText(statusCode),
		StatusCodeMessage:    text,
		CorrelationReference: requestID,
		ErrorDateTime:        time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        code,
				ErrorCodeText:    text,
				ErrorCodeMessage: message,
			},
		},
	}
}
