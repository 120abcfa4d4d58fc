package saturn

// payments.go defines the merchant-side records produced by a checkout
// and the JSON exchanged with the wallet and the browser.

import (
	"bytes"
	"encoding/json"
	"time"
)

// TrustRoot names a set of keys that signed messages are verified against.
type TrustRoot string

const (
	// TrustRootPayment verifies banks (payer/payee providers) and their authority documents.
	TrustRootPayment TrustRoot = "payment"

	// TrustRootAcquirer verifies card acquirers.
	TrustRootAcquirer TrustRoot = "acquirer"
)

// PaymentShape selects how an authorized payment is settled.
type PaymentShape string

const (
	// ShapeCard is settled by a transaction request to the acquirer.
	ShapeCard PaymentShape = "card"

	// ShapeDirect is complete once the payer provider authorizes it (account-to-account).
	ShapeDirect PaymentShape = "direct"

	// ShapeReservation reserves funds now and is settled later by Finalize.
	ShapeReservation PaymentShape = "reservation"
)

// ResultData is the receipt of a completed payment.
type ResultData struct {
	ReferenceID      string       `json:"referenceId"`
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	AccountReference string       `json:"accountReference"`
	ProviderName     string       `json:"providerName"`
	PaymentMethod    string       `json:"paymentMethod"`
	Shape            PaymentShape `json:"shape"`
	Card             bool         `json:"card"`

	// TransactionError is empty when the payment succeeded
	TransactionError string `json:"transactionError,omitempty"`

	// AuthorizationResponse is the verified compact JWS, kept for refunds
	AuthorizationResponse string `json:"-"`

	PayeeProviderAuthorityURL string    `json:"payeeProviderAuthorityUrl"`
	RefundedAmount            int64     `json:"refundedAmount"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// PendingOperation is the state kept between the reservation and the finalize phase.
type PendingOperation struct {
	ReferenceID           string    `json:"referenceId"`
	PaymentMethod         string    `json:"paymentMethod"`
	Card                  bool      `json:"card"`
	Currency              string    `json:"currency"`
	ReservedAmount        int64     `json:"reservedAmount"`
	AuthorizationResponse string    `json:"authorizationResponse"`
	AccountReference      string    `json:"accountReference"`
	ProviderName          string    `json:"providerName"`
	TargetURL             string    `json:"targetUrl"`
	TrustRoot             TrustRoot `json:"trustRoot"`

	PayeeProviderAuthorityURL string `json:"payeeProviderAuthorityUrl"`

	// Error is set if the finalize attempt failed
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// WalletRequest is returned to the wallet when it is invoked.
type WalletRequest struct {
	PaymentRequest PaymentRequest `json:"paymentRequest"`

	// PaymentMethods lists the client payment methods accepted by the merchant
	PaymentMethods []string `json:"paymentMethods"`
	AuthorizeURL   string   `json:"authorizeUrl"`
}

// WalletResponse is posted by the wallet once the user has authorized the payment.
type WalletResponse struct {
	PaymentMethod          string          `json:"paymentMethod"`
	ProviderAuthorityURL   string          `json:"providerAuthorityUrl"`
	EncryptedAuthorization json.RawMessage `json:"encryptedAuthorization"`
}

func (w *WalletResponse) Validate() error {
	switch {
	case w.PaymentMethod == "":
		return NewMalformedRequestError("paymentMethod is required")
	case w.ProviderAuthorityURL == "":
		return NewMalformedRequestError("providerAuthorityUrl is required")
	case IsAbsent(w.EncryptedAuthorization):
		return NewMalformedRequestError("encryptedAuthorization is required")
	}
	return nil
}

// IsAbsent reports whether a raw JSON field is missing or null.
func IsAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Status values used in the JSON replies to the wallet and browser.
const (
	StatusComplete = "complete"
	StatusReserved = "reserved"
	StatusStepUp   = "stepUp"
	StatusAlert    = "alert"
)

// Alert texts shown to the user for soft failures.
const (
	AlertSessionTimedOut    = "The session appears to have timed out."
	AlertMethodNotSupported = "This payment method is not supported by your bank for this merchant."
	AlertRefundNotSupported = "The selected payment method does not support refunds."
	AlertGenericFailure     = "The payment could not be completed. Please try again later."
)

// AlertResponse carries a soft failure back to the wallet or browser.
type AlertResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StepUpResponse relays a ProviderUserResponse to the wallet.
type StepUpResponse struct {
	Status           string          `json:"status"`
	EncryptedMessage json.RawMessage `json:"encryptedMessage"`
}

// CheckoutResponse is returned when the authorization phase finished.
type CheckoutResponse struct {
	Status string      `json:"status"`
	Result *ResultData `json:"result,omitempty"`

	// set for reservations
	ReferenceID    string `json:"referenceId,omitempty"`
	ReservedAmount int64  `json:"reservedAmount,omitempty"`
}

// AlertMessage returns the text shown to the user for a soft error code.
func AlertMessage(code ErrorCode) string {
	switch code {
	case ErrCodeSessionAbsent:
		return AlertSessionTimedOut
	case ErrCodeUnsupportedMethod:
		return AlertMethodNotSupported
	case ErrCodeRefundNotSupported:
		return AlertRefundNotSupported
	default:
		return AlertGenericFailure
	}
}
