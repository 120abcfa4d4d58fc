package orchestrator

import (
	"context"
	"fmt"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

// Finalize settles a reservation with the amount actually consumed.
//
// The amount must be greater than zero and no larger than the reserved amount. The caller
// discards the pending operation once the outcome is Complete.
func (o *Orchestrator) Finalize(ctx context.Context, pending *saturn.PendingOperation, amount int64) Outcome {
	if pending == nil {
		return fail("", saturn.NewNotFoundError("no pending reservation"))
	}
	if amount <= 0 || amount > pending.ReservedAmount {
		return fail("", saturn.NewInvalidAmountError(
			fmt.Sprintf("amount must be between 1 and %d, got %d", pending.ReservedAmount, amount)))
	}

	req := o.transactionRequest(pending.AuthorizationResponse, amount, pending.TargetURL)
	resp, err := o.settleTransaction(ctx, pending.TargetURL, pending.TrustRoot, req)
	if err != nil {
		return fail(pending.TargetURL, err)
	}

	return o.persist(ctx, &saturn.ResultData{
		ReferenceID:               pending.ReferenceID,
		Amount:                    amount,
		Currency:                  pending.Currency,
		AccountReference:          pending.AccountReference,
		ProviderName:              pending.ProviderName,
		PaymentMethod:             pending.PaymentMethod,
		Shape:                     saturn.ShapeReservation,
		Card:                      pending.Card,
		TransactionError:          resp.TransactionError,
		AuthorizationResponse:     pending.AuthorizationResponse,
		PayeeProviderAuthorityURL: pending.PayeeProviderAuthorityURL,
	})
}
