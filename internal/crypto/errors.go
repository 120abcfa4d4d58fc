package crypto

import (
	"errors"
	"fmt"
)

// Error is the structured error returned by the signing and verification functions.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeValidation: malformed JWS, invalid JSON or an unsupported key type
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeInvalidSignature: the signature does not verify or cannot be parsed
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"

	// ErrCodeKeyManagement: key files that cannot be read and keys that cannot be found
	ErrCodeKeyManagement ErrorCode = "key_management"

	// ErrCodeInternal: failures of the underlying crypto library
	ErrCodeInternal ErrorCode = "internal"
)

type CryptoError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *CryptoError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CryptoError) Code() ErrorCode { return e.code }
func (e *CryptoError) Unwrap() error   { return e.wrapped }

// CodeOf returns the code of the first CryptoError in err's chain.
// ok is false when err does not come from this package.
func CodeOf(err error) (code ErrorCode, ok bool) {
	var cryptoErr *CryptoError
	if errors.As(err, &cryptoErr) {
		return cryptoErr.code, true
	}
	return "", false
}

func newError(code ErrorCode, err error, msg string) error {
	return &CryptoError{code: code, message: msg, wrapped: err}
}

func NewValidationError(msg string) error { return newError(ErrCodeValidation, nil, msg) }

func WrapValidationError(err error, msg string) error {
	return newError(ErrCodeValidation, err, msg)
}

func NewSignatureError(msg string) error { return newError(ErrCodeInvalidSignature, nil, msg) }

func WrapSignatureError(err error, msg string) error {
	return newError(ErrCodeInvalidSignature, err, msg)
}

func NewKeyManagementError(msg string) error { return newError(ErrCodeKeyManagement, nil, msg) }

func WrapKeyManagementError(err error, msg string) error {
	return newError(ErrCodeKeyManagement, err, msg)
}

func NewInternalError(msg string) error { return newError(ErrCodeInternal, nil, msg) }

func WrapInternalError(err error, msg string) error {
	return newError(ErrCodeInternal, err, msg)
}
