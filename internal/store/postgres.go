package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/database"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres stores results in the payments and refunds tables.
type Postgres struct {
	pool    *pgxpool.Pool
	queries *database.Queries
}

func NewPostgres(pool *pgxpool.Pool, queries *database.Queries) *Postgres {
	return &Postgres{pool: pool, queries: queries}
}

func (p *Postgres) SaveResult(ctx context.Context, result *saturn.ResultData) error {
	if err := validateResult(result); err != nil {
		return err
	}

	// the checksum makes a replayed authorization response visible as a unique violation
	checksum, err := crypto.Hash([]byte(result.AuthorizationResponse))
	if err != nil {
		return saturn.WrapInternalError(err, "failed to hash authorization response")
	}

	row, err := p.queries.CreatePayment(ctx, database.CreatePaymentParams{
		ReferenceID:               result.ReferenceID,
		Amount:                    result.Amount,
		Currency:                  result.Currency,
		AccountReference:          result.AccountReference,
		ProviderName:              result.ProviderName,
		PaymentMethod:             result.PaymentMethod,
		Shape:                     string(result.Shape),
		Card:                      result.Card,
		TransactionError:          result.TransactionError,
		AuthorizationResponse:     result.AuthorizationResponse,
		AuthorizationChecksum:     checksum,
		PayeeProviderAuthorityUrl: result.PayeeProviderAuthorityURL,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return saturn.WrapMalformedMessageError(err, fmt.Sprintf("payment %s already recorded", result.ReferenceID))
		}
		return saturn.WrapInternalError(err, "failed to save payment")
	}
	result.CreatedAt = row.CreatedAt
	return nil
}

func (p *Postgres) GetResult(ctx context.Context, referenceID string) (*saturn.ResultData, error) {
	row, err := p.queries.GetPayment(ctx, referenceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, saturn.NewNotFoundError(fmt.Sprintf("payment %s not found", referenceID))
	}
	if err != nil {
		return nil, saturn.WrapInternalError(err, "failed to read payment")
	}
	return resultFromRow(row), nil
}

func (p *Postgres) ReserveRefund(ctx context.Context, referenceID string, amount int64) (*saturn.ResultData, error) {
	if err := validateRefund(Refund{ReferenceID: referenceID, Amount: amount}); err != nil {
		return nil, err
	}

	// the guarded UPDATE serializes concurrent reservations on the payment row
	row, err := p.queries.AddRefundedAmount(ctx, database.AddRefundedAmountParams{
		Amount:      amount,
		ReferenceID: referenceID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		// either the payment does not exist or the amount is too large
		if _, getErr := p.queries.GetPayment(ctx, referenceID); errors.Is(getErr, pgx.ErrNoRows) {
			return nil, saturn.NewNotFoundError(fmt.Sprintf("payment %s not found", referenceID))
		}
		return nil, saturn.NewInvalidAmountError("refund exceeds the remaining amount of the payment")
	}
	if err != nil {
		return nil, saturn.WrapInternalError(err, "failed to reserve refund amount")
	}
	return resultFromRow(row), nil
}

func (p *Postgres) ReleaseRefund(ctx context.Context, referenceID string, amount int64) error {
	_, err := p.queries.ReleaseRefundedAmount(ctx, database.ReleaseRefundedAmountParams{
		Amount:      amount,
		ReferenceID: referenceID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return saturn.NewInternalError(fmt.Sprintf("no reserved refund of %d on payment %s", amount, referenceID))
	}
	if err != nil {
		return saturn.WrapInternalError(err, "failed to release refund amount")
	}
	return nil
}

func (p *Postgres) RecordRefund(ctx context.Context, refund Refund) (*saturn.ResultData, error) {
	if err := validateRefund(refund); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(refund.ID)
	if err != nil {
		id = uuid.New()
	}
	if _, err := p.queries.CreateRefund(ctx, database.CreateRefundParams{
		ID:                  id,
		ReferenceID:         refund.ReferenceID,
		Amount:              refund.Amount,
		ProviderReferenceID: refund.ProviderReferenceID,
	}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, saturn.NewNotFoundError(fmt.Sprintf("payment %s not found", refund.ReferenceID))
		}
		return nil, saturn.WrapInternalError(err, "failed to record refund")
	}
	return p.GetResult(ctx, refund.ReferenceID)
}

func (p *Postgres) ListResults(ctx context.Context, limit int) ([]*saturn.ResultData, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := p.queries.ListPayments(ctx, int32(limit))
	if err != nil {
		return nil, saturn.WrapInternalError(err, "failed to list payments")
	}
	results := make([]*saturn.ResultData, 0, len(rows))
	for _, row := range rows {
		results = append(results, resultFromRow(row))
	}
	return results, nil
}

func (p *Postgres) ListRefunds(ctx context.Context, referenceID string) ([]Refund, error) {
	rows, err := p.queries.ListRefunds(ctx, referenceID)
	if err != nil {
		return nil, saturn.WrapInternalError(err, "failed to list refunds")
	}
	refunds := make([]Refund, 0, len(rows))
	for _, row := range rows {
		refunds = append(refunds, Refund{
			ID:                  row.ID.String(),
			ReferenceID:         row.ReferenceID,
			Amount:              row.Amount,
			ProviderReferenceID: row.ProviderReferenceID,
		})
	}
	return refunds, nil
}

func resultFromRow(row database.Payment) *saturn.ResultData {
	return &saturn.ResultData{
		ReferenceID:               row.ReferenceID,
		Amount:                    row.Amount,
		Currency:                  row.Currency,
		AccountReference:          row.AccountReference,
		ProviderName:              row.ProviderName,
		PaymentMethod:             row.PaymentMethod,
		Shape:                     saturn.PaymentShape(row.Shape),
		Card:                      row.Card,
		TransactionError:          row.TransactionError,
		AuthorizationResponse:     row.AuthorizationResponse,
		PayeeProviderAuthorityURL: row.PayeeProviderAuthorityUrl,
		RefundedAmount:            row.RefundedAmount,
		CreatedAt:                 row.CreatedAt,
	}
}
