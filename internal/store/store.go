// Package store persists payment results and the refunds made against them.
//
// Postgres is the production implementation, built on the sqlc queries in internal/database.
// Memory is used by tests and when the merchant runs without a database (DATABASE_URL=memory).
package store

import (
	"context"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

// DefaultListLimit is the number of receipts returned by ListResults when limit <= 0.
const DefaultListLimit = 50

// Refund is one refund recorded against a payment.
type Refund struct {
	ID                  string `json:"id"`
	ReferenceID         string `json:"referenceId"`
	Amount              int64  `json:"amount"`
	ProviderReferenceID string `json:"providerReferenceId"`
}

// ResultStore records payment results.
//
// SaveResult is called once per completed payment. The authorization response of a result is
// unique: saving a second result for the same authorization is rejected.
type ResultStore interface {
	SaveResult(ctx context.Context, result *saturn.ResultData) error

	// GetResult returns a NotFound error if no result has the reference id.
	GetResult(ctx context.Context, referenceID string) (*saturn.ResultData, error)

	// ReserveRefund adds amount to the refunded amount of the payment before the refund is sent,
	// so concurrent refunds can never exceed the payment amount. It returns an InvalidAmount
	// error when the remaining amount is too small.
	ReserveRefund(ctx context.Context, referenceID string, amount int64) (*saturn.ResultData, error)

	// ReleaseRefund gives back a reservation whose refund did not happen.
	ReleaseRefund(ctx context.Context, referenceID string, amount int64) error

	// RecordRefund records a completed refund whose amount has been reserved and returns the
	// payment.
	RecordRefund(ctx context.Context, refund Refund) (*saturn.ResultData, error)

	// ListResults returns the most recent results first.
	ListResults(ctx context.Context, limit int) ([]*saturn.ResultData, error)

	// ListRefunds returns the refunds of a payment, oldest first.
	ListRefunds(ctx context.Context, referenceID string) ([]Refund, error)
}

func validateResult(result *saturn.ResultData) error {
	switch {
	case result == nil:
		return saturn.NewInternalError("nil result")
	case result.ReferenceID == "":
		return saturn.NewInternalError("result has no reference id")
	case result.AuthorizationResponse == "":
		return saturn.NewInternalError("result has no authorization response")
	case result.Amount < 0:
		return saturn.NewInvalidAmountError("amount can not be negative")
	}
	return nil
}

func validateRefund(refund Refund) error {
	if refund.ReferenceID == "" {
		return saturn.NewMalformedRequestError("reference id is required")
	}
	if refund.Amount <= 0 {
		return saturn.NewInvalidAmountError("refund amount must be greater than zero")
	}
	return nil
}
