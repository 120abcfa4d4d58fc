package orchestrator

import (
	"context"
	"log/slog"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
)

// settlement completes an authorized payment. There is one implementation per payment shape.
type settlement interface {
	settle(ctx context.Context, a *authorization) Outcome
}

// cardSettlement charges the authorized amount through the acquirer.
type cardSettlement struct{ o *Orchestrator }

func (s cardSettlement) settle(ctx context.Context, a *authorization) Outcome {
	acquirer := a.payeeProvider
	amount := a.checkout.PaymentRequest.Amount

	req := s.o.transactionRequest(a.compact, amount, acquirer.ServiceURL)
	resp, err := s.o.settleTransaction(ctx, acquirer.ServiceURL, saturn.TrustRootAcquirer, req)
	if err != nil {
		return fail(acquirer.ServiceURL, err)
	}

	result := a.result(saturn.ShapeCard, amount)
	result.TransactionError = resp.TransactionError
	return s.o.persist(ctx, result)
}

// directSettlement records an account-to-account payment: the authorization is the payment.
type directSettlement struct{ o *Orchestrator }

func (s directSettlement) settle(ctx context.Context, a *authorization) Outcome {
	return s.o.persist(ctx, a.result(saturn.ShapeDirect, a.checkout.PaymentRequest.Amount))
}

// reservationSettlement stores the authorization for a later Finalize.
type reservationSettlement struct{ o *Orchestrator }

func (s reservationSettlement) settle(ctx context.Context, a *authorization) Outcome {
	pending := &saturn.PendingOperation{
		ReferenceID:               a.checkout.PaymentRequest.ReferenceID,
		PaymentMethod:             a.method.ClientPaymentMethod,
		Card:                      a.method.Card,
		Currency:                  a.checkout.PaymentRequest.Currency,
		ReservedAmount:            a.checkout.PaymentRequest.Amount,
		AuthorizationResponse:     a.compact,
		AccountReference:          a.response.AccountReference,
		ProviderName:              a.payerProvider.CommonName,
		PayeeProviderAuthorityURL: a.payeeProvider.ProviderAuthorityURL,
		CreatedAt:                 s.o.now().UTC(),
	}

	if a.method.Card {
		pending.TargetURL = a.payeeProvider.ServiceURL
		pending.TrustRoot = saturn.TrustRootAcquirer
	} else {
		hybridURL, ok := a.payerProvider.Extension(saturn.ExtensionHybridPayment)
		if !ok {
			return fail(a.payerProvider.ProviderAuthorityURL, saturn.NewUnsupportedMethodError(
				a.payerProvider.CommonName+" does not support reservations for "+a.method.ClientPaymentMethod))
		}
		pending.TargetURL = hybridURL
		pending.TrustRoot = saturn.TrustRootPayment
	}

	if err := s.o.pending.Set(ctx, a.checkout.OwnerSessionID, sessionstore.KeyPendingOperation, pending); err != nil {
		return fail("", err)
	}

	s.o.logger.Info("funds reserved",
		slog.String("reference_id", pending.ReferenceID),
		slog.Int64("reserved_amount", pending.ReservedAmount),
		slog.String("target_url", pending.TargetURL))
	return Reserved{Pending: pending}
}
