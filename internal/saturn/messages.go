package saturn

// messages.go defines the protocol messages exchanged between the merchant and the
// other parties (payer provider, acquirer, payee provider).
//
// Signed messages travel inside an Envelope. The signature is a compact JWS whose
// payload is the canonical JSON of one of the message types below; the payload's
// @qualifier must match the envelope's qualifier.

import (
	"encoding/json"
	"fmt"
	"time"
)

// Qualifier identifies the type of a protocol message.
type Qualifier string

const (
	QualifierProviderAuthority     Qualifier = "ProviderAuthority"
	QualifierPayeeAuthority        Qualifier = "PayeeAuthority"
	QualifierAuthorizationRequest  Qualifier = "AuthorizationRequest"
	QualifierAuthorizationResponse Qualifier = "AuthorizationResponse"
	QualifierProviderUserResponse  Qualifier = "ProviderUserResponse"
	QualifierTransactionRequest    Qualifier = "TransactionRequest"
	QualifierTransactionResponse   Qualifier = "TransactionResponse"
	QualifierRefundRequest         Qualifier = "RefundRequest"
	QualifierRefundResponse        Qualifier = "RefundResponse"
)

// Provider authority extensions used by the merchant.
const (
	// ExtensionHybridPayment is the URL used to finalize non-card reservations.
	ExtensionHybridPayment = "hybridPayment"

	// ExtensionRefundRequest is the URL of the provider's refund service.
	ExtensionRefundRequest = "refundRequest"
)

// Envelope is the JSON body of every request and response exchanged with other parties.
type Envelope struct {
	Qualifier Qualifier `json:"qualifier"`

	// Signature is the compact JWS carrying the message. Absent on ProviderUserResponse.
	Signature string `json:"signature,omitempty"`

	// EncryptedMessage is only present on ProviderUserResponse and is relayed to the wallet unchanged.
	EncryptedMessage json.RawMessage `json:"encryptedMessage,omitempty"`
}

// Message is implemented by every decoded protocol message.
type Message interface {
	Validate() error
}

// DecodeMessage unmarshals a verified JWS payload and validates it.
func DecodeMessage(payload []byte, msg Message) error {
	if err := json.Unmarshal(payload, msg); err != nil {
		return WrapMalformedMessageError(err, "failed to decode message")
	}
	return msg.Validate()
}

func checkQualifier(got, want Qualifier) error {
	if got != want {
		return NewMalformedMessageError(fmt.Sprintf("unexpected qualifier %q, expected %q", got, want))
	}
	return nil
}

func missing(field string, q Qualifier) error {
	return NewMalformedMessageError(fmt.Sprintf("%s: missing required field %s", q, field))
}

// PaymentMethodDeclaration lists the backend methods a provider supports for one client payment method.
type PaymentMethodDeclaration struct {
	ClientPaymentMethod string   `json:"clientPaymentMethod"`
	BackendMethods      []string `json:"backendMethods"`
}

// ProviderAuthority is the signed self-description of a bank or acquirer.
type ProviderAuthority struct {
	Qualifier               Qualifier                  `json:"@qualifier"`
	ProviderAuthorityURL    string                     `json:"providerAuthorityUrl"`
	CommonName              string                     `json:"commonName"`
	HomePage                string                     `json:"homePage,omitempty"`
	ServiceURL              string                     `json:"serviceUrl"`
	SupportedPaymentMethods []PaymentMethodDeclaration `json:"supportedPaymentMethods"`
	Extensions              map[string]string          `json:"extensions,omitempty"`
	TimeStamp               time.Time                  `json:"timeStamp"`
	Expires                 time.Time                  `json:"expires"`
}

func (p *ProviderAuthority) Validate() error {
	if err := checkQualifier(p.Qualifier, QualifierProviderAuthority); err != nil {
		return err
	}
	switch {
	case p.ProviderAuthorityURL == "":
		return missing("providerAuthorityUrl", p.Qualifier)
	case p.CommonName == "":
		return missing("commonName", p.Qualifier)
	case p.ServiceURL == "":
		return missing("serviceUrl", p.Qualifier)
	case p.Expires.IsZero():
		return missing("expires", p.Qualifier)
	}
	if p.Extensions != nil && len(p.Extensions) == 0 {
		return NewMalformedMessageError("empty extensions object not allowed")
	}
	return nil
}

// BackendMethods returns the backend methods declared for a client payment method, in declaration order.
func (p *ProviderAuthority) BackendMethods(clientPaymentMethod string) []string {
	for _, d := range p.SupportedPaymentMethods {
		if d.ClientPaymentMethod == clientPaymentMethod {
			return d.BackendMethods
		}
	}
	return nil
}

// Extension returns the URL of a declared extension.
func (p *ProviderAuthority) Extension(name string) (string, bool) {
	u, ok := p.Extensions[name]
	return u, ok && u != ""
}

// PayeeAuthority is the signed statement a provider issues about one of its merchants.
type PayeeAuthority struct {
	Qualifier            Qualifier `json:"@qualifier"`
	PayeeAuthorityURL    string    `json:"payeeAuthorityUrl"`
	ProviderAuthorityURL string    `json:"providerAuthorityUrl"`
	CommonName           string    `json:"commonName"`
	PayeeID              string    `json:"id"`
	TimeStamp            time.Time `json:"timeStamp"`
	Expires              time.Time `json:"expires"`
}

func (p *PayeeAuthority) Validate() error {
	if err := checkQualifier(p.Qualifier, QualifierPayeeAuthority); err != nil {
		return err
	}
	switch {
	case p.PayeeAuthorityURL == "":
		return missing("payeeAuthorityUrl", p.Qualifier)
	case p.ProviderAuthorityURL == "":
		return missing("providerAuthorityUrl", p.Qualifier)
	case p.PayeeID == "":
		return missing("id", p.Qualifier)
	case p.Expires.IsZero():
		return missing("expires", p.Qualifier)
	}
	return nil
}

// PaymentRequest is what the merchant asks the payer to pay. Amounts are in minor units.
type PaymentRequest struct {
	PayeeCommonName string    `json:"payeeCommonName"`
	ReferenceID     string    `json:"referenceId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	TimeStamp       time.Time `json:"timeStamp"`
	Expires         time.Time `json:"expires"`
}

// ReceivingAccount is the merchant account the payer's provider should credit.
type ReceivingAccount struct {
	Context string            `json:"context"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// AuthorizationRequest is sent by the merchant to the payer's provider.
type AuthorizationRequest struct {
	Qualifier              Qualifier        `json:"@qualifier"`
	PaymentMethod          string           `json:"paymentMethod"`
	ProviderAuthorityURL   string           `json:"providerAuthorityUrl"`
	PayeeAuthorityURL      string           `json:"payeeAuthorityUrl,omitempty"`
	PaymentRequest         PaymentRequest   `json:"paymentRequest"`
	ReceivingAccount       ReceivingAccount `json:"receivingAccount"`
	EncryptedAuthorization json.RawMessage  `json:"encryptedAuthorization"`
	ReferenceID            string           `json:"referenceId"`
	ClientIPAddress        string           `json:"clientIpAddress,omitempty"`
	TimeStamp              time.Time        `json:"timeStamp"`
}

func (a *AuthorizationRequest) Validate() error {
	if err := checkQualifier(a.Qualifier, QualifierAuthorizationRequest); err != nil {
		return err
	}
	if a.ReferenceID == "" {
		return missing("referenceId", a.Qualifier)
	}
	if IsAbsent(a.EncryptedAuthorization) {
		return missing("encryptedAuthorization", a.Qualifier)
	}
	return nil
}

// AuthorizationResponse is the payer provider's signed approval of an AuthorizationRequest.
type AuthorizationResponse struct {
	Qualifier           Qualifier      `json:"@qualifier"`
	ReferenceID         string         `json:"referenceId"`
	PaymentRequest      PaymentRequest `json:"paymentRequest"`
	PaymentMethod       string         `json:"paymentMethod"`
	AccountReference    string         `json:"accountReference"`
	ProviderReferenceID string         `json:"providerReferenceId"`
	TimeStamp           time.Time      `json:"timeStamp"`
}

func (a *AuthorizationResponse) Validate() error {
	if err := checkQualifier(a.Qualifier, QualifierAuthorizationResponse); err != nil {
		return err
	}
	switch {
	case a.ReferenceID == "":
		return missing("referenceId", a.Qualifier)
	case a.AccountReference == "":
		return missing("accountReference", a.Qualifier)
	case a.ProviderReferenceID == "":
		return missing("providerReferenceId", a.Qualifier)
	}
	return nil
}

// TransactionRequest asks the acquirer (or a hybrid provider) to settle an authorized payment.
type TransactionRequest struct {
	Qualifier Qualifier `json:"@qualifier"`

	// AuthorizationResponse is the compact JWS exactly as received from the payer provider
	AuthorizationResponse string    `json:"authorizationResponse"`
	Amount                int64     `json:"amount"`
	ReferenceID           string    `json:"referenceId"`
	RecipientURL          string    `json:"recipientUrl"`
	TimeStamp             time.Time `json:"timeStamp"`
}

func (t *TransactionRequest) Validate() error {
	if err := checkQualifier(t.Qualifier, QualifierTransactionRequest); err != nil {
		return err
	}
	if t.AuthorizationResponse == "" {
		return missing("authorizationResponse", t.Qualifier)
	}
	return nil
}

// TransactionResponse is the settling party's signed answer to a TransactionRequest.
type TransactionResponse struct {
	Qualifier           Qualifier `json:"@qualifier"`
	ReferenceID         string    `json:"referenceId"`
	ProviderReferenceID string    `json:"providerReferenceId"`
	Amount              int64     `json:"amount"`

	// TransactionError is set when the settlement was refused (e.g. insufficient funds)
	TransactionError string    `json:"transactionError,omitempty"`
	TimeStamp        time.Time `json:"timeStamp"`
}

func (t *TransactionResponse) Validate() error {
	if err := checkQualifier(t.Qualifier, QualifierTransactionResponse); err != nil {
		return err
	}
	if t.ReferenceID == "" {
		return missing("referenceId", t.Qualifier)
	}
	return nil
}

// RefundRequest asks the payee provider to return funds for an earlier authorization.
type RefundRequest struct {
	Qualifier             Qualifier `json:"@qualifier"`
	AuthorizationResponse string    `json:"authorizationResponse"`
	Amount                int64     `json:"amount"`
	ReferenceID           string    `json:"referenceId"`
	RecipientURL          string    `json:"recipientUrl"`
	TimeStamp             time.Time `json:"timeStamp"`
}

func (r *RefundRequest) Validate() error {
	if err := checkQualifier(r.Qualifier, QualifierRefundRequest); err != nil {
		return err
	}
	if r.AuthorizationResponse == "" {
		return missing("authorizationResponse", r.Qualifier)
	}
	return nil
}

// RefundResponse confirms a refund.
type RefundResponse struct {
	Qualifier           Qualifier `json:"@qualifier"`
	ReferenceID         string    `json:"referenceId"`
	ProviderReferenceID string    `json:"providerReferenceId"`
	Amount              int64     `json:"amount"`
	TimeStamp           time.Time `json:"timeStamp"`
}

func (r *RefundResponse) Validate() error {
	if err := checkQualifier(r.Qualifier, QualifierRefundResponse); err != nil {
		return err
	}
	if r.ReferenceID == "" {
		return missing("referenceId", r.Qualifier)
	}
	return nil
}
