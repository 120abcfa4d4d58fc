package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/information-sharing-networks/saturn-demo/internal/store"
)

// Refund returns amount of an earlier payment to the payer.
//
// The refund service is declared by the payee provider's authority document. Whoever calls
// Refund is responsible for deciding that the refund is legitimate.
func (o *Orchestrator) Refund(ctx context.Context, referenceID string, amount int64) Outcome {
	result, err := o.results.GetResult(ctx, referenceID)
	if err != nil {
		return fail("", err)
	}
	if amount <= 0 || amount > result.Amount-result.RefundedAmount {
		return fail("", saturn.NewInvalidAmountError(fmt.Sprintf(
			"refund amount must be between 1 and %d, got %d", result.Amount-result.RefundedAmount, amount)))
	}

	root := saturn.TrustRootPayment
	if result.Card {
		root = saturn.TrustRootAcquirer
	}

	payeeProvider, err := o.resolver.ProviderAuthority(ctx, result.PayeeProviderAuthorityURL, root)
	if err != nil {
		return fail(result.PayeeProviderAuthorityURL, err)
	}
	refundURL, ok := payeeProvider.Extension(saturn.ExtensionRefundRequest)
	if !ok {
		return fail(result.PayeeProviderAuthorityURL, saturn.NewRefundNotSupportedError(
			payeeProvider.CommonName+" does not provide a refund service"))
	}

	// the amount is held before the refund leaves the merchant, so concurrent refunds of the
	// same payment can not together exceed what was paid
	reserved, err := o.results.ReserveRefund(ctx, referenceID, amount)
	if err != nil {
		return fail("", err)
	}

	out := o.sendRefund(ctx, reserved, refundURL, root, amount)
	if failed, ok := out.(Failed); ok {
		if err := o.results.ReleaseRefund(ctx, referenceID, amount); err != nil {
			o.logger.Error("failed to release refund reservation",
				slog.String("reference_id", referenceID),
				slog.Int64("amount", amount),
				slog.String("error", err.Error()))
		}
		return failed
	}
	return out
}

// sendRefund runs the refund exchange for an amount that has been reserved.
func (o *Orchestrator) sendRefund(ctx context.Context, result *saturn.ResultData, refundURL string, root saturn.TrustRoot, amount int64) Outcome {
	req := &saturn.RefundRequest{
		Qualifier:             saturn.QualifierRefundRequest,
		AuthorizationResponse: result.AuthorizationResponse,
		Amount:                amount,
		ReferenceID:           o.newID(),
		RecipientURL:          refundURL,
		TimeStamp:             o.now().UTC(),
	}
	reply, err := o.exchange(ctx, refundURL, saturn.QualifierRefundRequest, req)
	if err != nil {
		return fail(refundURL, err)
	}
	var resp saturn.RefundResponse
	if err := o.verifyReply(ctx, reply, saturn.QualifierRefundResponse, root, &resp); err != nil {
		return fail(refundURL, err)
	}
	if resp.ReferenceID != req.ReferenceID {
		return fail(refundURL, saturn.NewMalformedMessageError(
			fmt.Sprintf("RefundResponse refers to %s, expected %s", resp.ReferenceID, req.ReferenceID)))
	}

	// the provider has paid out: the reservation stays even if recording fails
	updated, err := o.results.RecordRefund(ctx, store.Refund{
		ID:                  req.ReferenceID,
		ReferenceID:         result.ReferenceID,
		Amount:              amount,
		ProviderReferenceID: resp.ProviderReferenceID,
	})
	if err != nil {
		o.logger.Error("refund sent but not recorded",
			slog.String("reference_id", result.ReferenceID),
			slog.String("provider_reference_id", resp.ProviderReferenceID),
			slog.Int64("amount", amount),
			slog.String("error", err.Error()))
		return Complete{Result: result}
	}

	o.logger.Info("payment refunded",
		slog.String("reference_id", result.ReferenceID),
		slog.Int64("amount", amount),
		slog.Int64("refunded_amount", updated.RefundedAmount))
	return Complete{Result: updated}
}
