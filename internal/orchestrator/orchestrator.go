package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/store"
)

// AuthorityResolver returns verified authority documents.
type AuthorityResolver interface {
	ProviderAuthority(ctx context.Context, url string, root saturn.TrustRoot) (*saturn.ProviderAuthority, error)
	PayeeAuthority(ctx context.Context, url string, root saturn.TrustRoot) (*saturn.PayeeAuthority, error)
}

// Transport posts a JSON request envelope and decodes the JSON response envelope.
type Transport interface {
	PostJSON(ctx context.Context, url string, body any, out any) error
}

// Signer signs the canonical JSON of a message with the merchant key.
type Signer interface {
	SignJSON(v any) (string, error)
}

// Verifier verifies a compact JWS against a trust root and decodes its payload.
type Verifier interface {
	VerifyMessage(ctx context.Context, compact string, root saturn.TrustRoot, msg saturn.Message) error
}

// ResultStore persists completed payments.
type ResultStore interface {
	SaveResult(ctx context.Context, result *saturn.ResultData) error
	GetResult(ctx context.Context, referenceID string) (*saturn.ResultData, error)
	ReserveRefund(ctx context.Context, referenceID string, amount int64) (*saturn.ResultData, error)
	ReleaseRefund(ctx context.Context, referenceID string, amount int64) error
	RecordRefund(ctx context.Context, refund store.Refund) (*saturn.ResultData, error)
}

// PendingStore holds pending reservations in the browser session that started the checkout.
type PendingStore interface {
	Set(ctx context.Context, sessionID, key string, value any) error
}

// Checkout is the input of the authorization phase.
type Checkout struct {
	// OwnerSessionID is the browser session that started the checkout
	OwnerSessionID string

	PaymentRequest saturn.PaymentRequest
	Wallet         saturn.WalletResponse

	// Reservation selects the two-phase flow: reserve now, Finalize later
	Reservation     bool
	ClientIPAddress string
}

// Orchestrator runs the payment protocol on behalf of one merchant.
type Orchestrator struct {
	merchant  *config.Merchant
	resolver  AuthorityResolver
	transport Transport
	signer    Signer
	verifier  Verifier
	results   ResultStore
	pending   PendingStore
	logger    *slog.Logger

	strategies map[saturn.PaymentShape]settlement

	now   func() time.Time
	newID func() string
}

// Dependencies groups the collaborators of an Orchestrator.
type Dependencies struct {
	Resolver  AuthorityResolver
	Transport Transport
	Signer    Signer
	Verifier  Verifier
	Results   ResultStore
	Pending   PendingStore
}

func New(merchant *config.Merchant, deps Dependencies, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		merchant:  merchant,
		resolver:  deps.Resolver,
		transport: deps.Transport,
		signer:    deps.Signer,
		verifier:  deps.Verifier,
		results:   deps.Results,
		pending:   deps.Pending,
		logger:    logger.With(slog.String("component", "orchestrator")),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	o.strategies = map[saturn.PaymentShape]settlement{
		saturn.ShapeCard:        cardSettlement{o},
		saturn.ShapeDirect:      directSettlement{o},
		saturn.ShapeReservation: reservationSettlement{o},
	}
	return o
}

// authorization is the state shared by the settlement strategies once the payer provider has
// authorized the payment.
type authorization struct {
	checkout       *Checkout
	method         *config.PaymentMethod
	payerProvider  *saturn.ProviderAuthority
	payeeProvider  *saturn.ProviderAuthority
	compact        string
	response       saturn.AuthorizationResponse
	payeeAuthority string
}

// Authorize runs the authorization phase of a checkout and settles it according to its shape.
func (o *Orchestrator) Authorize(ctx context.Context, c Checkout) Outcome {
	if err := c.Wallet.Validate(); err != nil {
		return fail("", err)
	}
	method, ok := o.merchant.PaymentMethod(c.Wallet.PaymentMethod)
	if !ok {
		return fail("", saturn.NewUnknownPaymentMethodError(
			fmt.Sprintf("payment method %s is not accepted by this merchant", c.Wallet.PaymentMethod)))
	}

	payerProvider, err := o.resolver.ProviderAuthority(ctx, c.Wallet.ProviderAuthorityURL, saturn.TrustRootPayment)
	if err != nil {
		return fail(c.Wallet.ProviderAuthorityURL, err)
	}

	// card payments are received by the acquirer, direct payments by the merchant's own bank
	payeeAuthorityURL := o.merchant.PayeeAuthorityURL
	var payeeProvider *saturn.ProviderAuthority
	if method.Card {
		payeeAuthorityURL = method.AcquirerAuthorityURL
		if payeeProvider, err = o.resolver.ProviderAuthority(ctx, method.AcquirerAuthorityURL, saturn.TrustRootAcquirer); err != nil {
			return fail(method.AcquirerAuthorityURL, err)
		}
	} else {
		payee, err := o.resolver.PayeeAuthority(ctx, o.merchant.PayeeAuthorityURL, saturn.TrustRootPayment)
		if err != nil {
			return fail(o.merchant.PayeeAuthorityURL, err)
		}
		if payeeProvider, err = o.resolver.ProviderAuthority(ctx, payee.ProviderAuthorityURL, saturn.TrustRootPayment); err != nil {
			return fail(payee.ProviderAuthorityURL, err)
		}
	}

	account, err := selectReceivingAccount(method, payerProvider)
	if err != nil {
		return fail(c.Wallet.ProviderAuthorityURL, err)
	}

	request := saturn.AuthorizationRequest{
		Qualifier:              saturn.QualifierAuthorizationRequest,
		PaymentMethod:          method.ClientPaymentMethod,
		ProviderAuthorityURL:   payerProvider.ProviderAuthorityURL,
		PayeeAuthorityURL:      payeeAuthorityURL,
		PaymentRequest:         c.PaymentRequest,
		ReceivingAccount:       account,
		EncryptedAuthorization: c.Wallet.EncryptedAuthorization,
		ReferenceID:            o.newID(),
		ClientIPAddress:        c.ClientIPAddress,
		TimeStamp:              o.now().UTC(),
	}

	reply, err := o.exchange(ctx, payerProvider.ServiceURL, saturn.QualifierAuthorizationRequest, &request)
	if err != nil {
		return fail(payerProvider.ServiceURL, err)
	}

	switch reply.Qualifier {
	case saturn.QualifierProviderUserResponse:
		if saturn.IsAbsent(reply.EncryptedMessage) {
			return fail(payerProvider.ServiceURL, saturn.NewMalformedMessageError("ProviderUserResponse without encryptedMessage"))
		}
		o.logger.Info("payer provider requested step-up",
			slog.String("reference_id", c.PaymentRequest.ReferenceID),
			slog.String("provider", payerProvider.CommonName))
		return StepUpRequired{Challenge: reply.EncryptedMessage}

	case saturn.QualifierAuthorizationResponse:
	default:
		return fail(payerProvider.ServiceURL, saturn.NewMalformedMessageError(
			fmt.Sprintf("unexpected reply %q to AuthorizationRequest", reply.Qualifier)))
	}

	auth := &authorization{
		checkout:       &c,
		method:         method,
		payerProvider:  payerProvider,
		payeeProvider:  payeeProvider,
		compact:        reply.Signature,
		payeeAuthority: payeeAuthorityURL,
	}
	if err := o.verifyReply(ctx, reply, saturn.QualifierAuthorizationResponse, saturn.TrustRootPayment, &auth.response); err != nil {
		return fail(payerProvider.ServiceURL, err)
	}
	if auth.response.ReferenceID != request.ReferenceID {
		return fail(payerProvider.ServiceURL, saturn.NewMalformedMessageError(
			fmt.Sprintf("AuthorizationResponse refers to %s, expected %s", auth.response.ReferenceID, request.ReferenceID)))
	}

	return o.strategies[shapeOf(&c, method)].settle(ctx, auth)
}

func shapeOf(c *Checkout, method *config.PaymentMethod) saturn.PaymentShape {
	switch {
	case c.Reservation:
		return saturn.ShapeReservation
	case method.Card:
		return saturn.ShapeCard
	default:
		return saturn.ShapeDirect
	}
}

// selectReceivingAccount picks the first backend method declared by the payer provider, in the
// provider's declaration order, for which the merchant has a receiving account.
func selectReceivingAccount(method *config.PaymentMethod, payerProvider *saturn.ProviderAuthority) (saturn.ReceivingAccount, error) {
	backendMethods := payerProvider.BackendMethods(method.ClientPaymentMethod)
	for _, backend := range backendMethods {
		if account, ok := method.ReceivingAccount(backend); ok {
			return account, nil
		}
	}
	return saturn.ReceivingAccount{}, saturn.NewUnsupportedMethodError(fmt.Sprintf(
		"%s supports %v for %s, none of which the merchant can receive",
		payerProvider.CommonName, backendMethods, method.ClientPaymentMethod))
}

// exchange signs msg, posts it to url and returns the reply envelope.
func (o *Orchestrator) exchange(ctx context.Context, url string, q saturn.Qualifier, msg any) (*saturn.Envelope, error) {
	signature, err := o.signer.SignJSON(msg)
	if err != nil {
		return nil, saturn.WrapKeyError(err, fmt.Sprintf("failed to sign %s", q))
	}

	var reply saturn.Envelope
	if err := o.transport.PostJSON(ctx, url, saturn.Envelope{Qualifier: q, Signature: signature}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// verifyReply checks the qualifier of a reply envelope and verifies its signature against root.
func (o *Orchestrator) verifyReply(ctx context.Context, reply *saturn.Envelope, want saturn.Qualifier, root saturn.TrustRoot, msg saturn.Message) error {
	if reply.Qualifier != want {
		return saturn.NewMalformedMessageError(fmt.Sprintf("unexpected reply %q, expected %q", reply.Qualifier, want))
	}
	if reply.Signature == "" {
		return saturn.NewMalformedMessageError(fmt.Sprintf("%s is not signed", want))
	}
	return o.verifier.VerifyMessage(ctx, reply.Signature, root, msg)
}

// transactionRequest builds the settlement request for an authorized payment.
func (o *Orchestrator) transactionRequest(compact string, amount int64, recipientURL string) *saturn.TransactionRequest {
	return &saturn.TransactionRequest{
		Qualifier:             saturn.QualifierTransactionRequest,
		AuthorizationResponse: compact,
		Amount:                amount,
		ReferenceID:           o.newID(),
		RecipientURL:          recipientURL,
		TimeStamp:             o.now().UTC(),
	}
}

// settleTransaction sends a TransactionRequest and verifies the response against root.
func (o *Orchestrator) settleTransaction(ctx context.Context, url string, root saturn.TrustRoot, req *saturn.TransactionRequest) (*saturn.TransactionResponse, error) {
	reply, err := o.exchange(ctx, url, saturn.QualifierTransactionRequest, req)
	if err != nil {
		return nil, err
	}
	var resp saturn.TransactionResponse
	if err := o.verifyReply(ctx, reply, saturn.QualifierTransactionResponse, root, &resp); err != nil {
		return nil, err
	}
	if resp.ReferenceID != req.ReferenceID {
		return nil, saturn.NewMalformedMessageError(
			fmt.Sprintf("TransactionResponse refers to %s, expected %s", resp.ReferenceID, req.ReferenceID))
	}
	return &resp, nil
}

func (o *Orchestrator) persist(ctx context.Context, result *saturn.ResultData) Outcome {
	if err := o.results.SaveResult(ctx, result); err != nil {
		return fail("", err)
	}
	o.logger.Info("payment completed",
		slog.String("reference_id", result.ReferenceID),
		slog.String("shape", string(result.Shape)),
		slog.Int64("amount", result.Amount),
		slog.String("transaction_error", result.TransactionError))
	return Complete{Result: result}
}

func (a *authorization) result(shape saturn.PaymentShape, amount int64) *saturn.ResultData {
	accountReference := a.response.AccountReference
	if a.method.Card {
		accountReference = formatCardNumber(accountReference)
	}
	return &saturn.ResultData{
		ReferenceID:               a.checkout.PaymentRequest.ReferenceID,
		Amount:                    amount,
		Currency:                  a.checkout.PaymentRequest.Currency,
		AccountReference:          accountReference,
		ProviderName:              a.payerProvider.CommonName,
		PaymentMethod:             a.method.ClientPaymentMethod,
		Shape:                     shape,
		Card:                      a.method.Card,
		AuthorizationResponse:     a.compact,
		PayeeProviderAuthorityURL: a.payeeProvider.ProviderAuthorityURL,
	}
}

// formatCardNumber groups a card number in blocks of four digits.
func formatCardNumber(number string) string {
	var b strings.Builder
	for i, r := range number {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
