package saturn

// errors.go defines the error codes used by the merchant API and the payment orchestrator

import "fmt"

// SaturnError represents a structured error from the saturn package.
type SaturnError struct {
	// code is the error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *SaturnError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *SaturnError) Code() ErrorCode { return e.code }
func (e *SaturnError) Unwrap() error   { return e.wrapped }

// ErrorCode is used in errors returned by the merchant API.
//
//   - 7000-7999 technical errors: the request or a protocol exchange could not be processed.
//     These abort the current checkout phase.
//   - 8000-8999 functional errors: the request was valid but a business condition prevents it.
//     These are reported to the user as alerts and the checkout may be retried.
type ErrorCode int

const (

	// ErrCodeBadSignature is used when a signed protocol message fails verification against its trust root
	ErrCodeBadSignature ErrorCode = 7001

	// ErrCodeMalformedMessage is used when a protocol message from another party is missing
	// an expected field, carries the wrong qualifier or cannot be decoded
	ErrCodeMalformedMessage ErrorCode = 7004

	// ErrCodeInternalError is used when an internal server error occurs
	ErrCodeInternalError ErrorCode = 7005

	// ErrCodeMalformedRequest is used when an inbound API request cannot be parsed
	ErrCodeMalformedRequest ErrorCode = 7006

	// ErrCodeKeyError is used when there is a problem with the merchant signing key or a trust root key
	ErrCodeKeyError ErrorCode = 7007

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = 7009

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = 7010

	// ErrCodeTransport is used when a call to another party fails (network, non-200 status, wrong content type)
	ErrCodeTransport ErrorCode = 7011

	// ErrCodeUnknownPaymentMethod is used when the wallet selected a payment method the merchant has not configured
	ErrCodeUnknownPaymentMethod ErrorCode = 7012

	// ErrCodeUnsupportedMethod is used when the payer's provider does not support any of the
	// merchant's receiving accounts for the selected payment method
	ErrCodeUnsupportedMethod ErrorCode = 8003

	// ErrCodeRefundNotSupported is used when the payee provider does not declare a refund service
	ErrCodeRefundNotSupported ErrorCode = 8004

	// ErrCodeSessionAbsent is used when the QR session or browser session is unknown or expired
	ErrCodeSessionAbsent ErrorCode = 8005

	// ErrCodeNotFound is used when a receipt or pending reservation does not exist
	ErrCodeNotFound ErrorCode = 8006

	// ErrCodeInvalidAmount is used when a finalize or refund amount is out of range
	ErrCodeInvalidAmount ErrorCode = 8007
)

// Soft reports whether the code is a functional (user-recoverable) condition.
func (c ErrorCode) Soft() bool {
	return c >= 8000 && c < 9000
}

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &SaturnError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &SaturnError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// NewMalformedMessageError creates an error for protocol messages received from other parties
// that are missing expected fields or carry an unexpected qualifier.
func NewMalformedMessageError(msg string) error {
	return &SaturnError{code: ErrCodeMalformedMessage, message: msg}
}

// WrapMalformedMessageError wraps a decoding error on a protocol message received from another party.
func WrapMalformedMessageError(err error, msg string) error {
	return &SaturnError{code: ErrCodeMalformedMessage, message: msg, wrapped: err}
}

// NewSignatureError creates a signature verification error.
func NewSignatureError(msg string) error {
	return &SaturnError{code: ErrCodeBadSignature, message: msg}
}

// WrapSignatureError wraps an existing error as a signature verification error.
// Use this when a message fails verification against its expected trust root.
//
// The returned error will have code ErrCodeBadSignature.
func WrapSignatureError(err error, msg string) error {
	return &SaturnError{code: ErrCodeBadSignature, message: msg, wrapped: err}
}

// NewKeyError creates a key management error.
// Use this for errors related to loading the merchant signing key or trust root keys.
//
// The returned error will have code ErrCodeKeyError.
func NewKeyError(msg string) error {
	return &SaturnError{code: ErrCodeKeyError, message: msg}
}

// WrapKeyError wraps an existing error as a key management error.
func WrapKeyError(err error, msg string) error {
	return &SaturnError{code: ErrCodeKeyError, message: msg, wrapped: err}
}

// NewTransportError creates an error for a failed call to another party.
func NewTransportError(msg string) error {
	return &SaturnError{code: ErrCodeTransport, message: msg}
}

// WrapTransportError wraps a network or HTTP error from a call to another party.
func WrapTransportError(err error, msg string) error {
	return &SaturnError{code: ErrCodeTransport, message: msg, wrapped: err}
}

// NewUnknownPaymentMethodError creates an error for a payment method the merchant does not accept.
func NewUnknownPaymentMethodError(msg string) error {
	return &SaturnError{code: ErrCodeUnknownPaymentMethod, message: msg}
}

// NewUnsupportedMethodError creates a soft error used when no receiving account matches
// the payer provider's declared backend methods.
func NewUnsupportedMethodError(msg string) error {
	return &SaturnError{code: ErrCodeUnsupportedMethod, message: msg}
}

// NewRefundNotSupportedError creates a soft error used when the payee provider has no refund service.
func NewRefundNotSupportedError(msg string) error {
	return &SaturnError{code: ErrCodeRefundNotSupported, message: msg}
}

// NewSessionAbsentError creates an error for an unknown or expired QR/browser session.
func NewSessionAbsentError(msg string) error {
	return &SaturnError{code: ErrCodeSessionAbsent, message: msg}
}

// NewNotFoundError creates an error for missing receipts or reservations.
func NewNotFoundError(msg string) error {
	return &SaturnError{code: ErrCodeNotFound, message: msg}
}

// NewInvalidAmountError creates an error for out-of-range amounts.
func NewInvalidAmountError(msg string) error {
	return &SaturnError{code: ErrCodeInvalidAmount, message: msg}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(msg string) error {
	return &SaturnError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates an error for oversized request bodies.
func NewRequestTooLargeError(msg string) error {
	return &SaturnError{code: ErrCodeRequestTooLarge, message: msg}
}

// NewInternalError creates an internal error.
func NewInternalError(msg string) error {
	return &SaturnError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &SaturnError{code: ErrCodeInternalError, message: msg, wrapped: err}
}
