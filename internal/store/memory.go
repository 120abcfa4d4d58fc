package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

// Memory is a ResultStore held in process memory.
type Memory struct {
	mu             sync.Mutex
	results        map[string]*saturn.ResultData
	authorizations map[string]string // authorization response -> reference id
	refunds        map[string][]Refund
	order          []string
	now            func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		results:        make(map[string]*saturn.ResultData),
		authorizations: make(map[string]string),
		refunds:        make(map[string][]Refund),
		now:            time.Now,
	}
}

func (m *Memory) SaveResult(ctx context.Context, result *saturn.ResultData) error {
	if err := validateResult(result); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.results[result.ReferenceID]; ok {
		return saturn.NewMalformedMessageError(fmt.Sprintf("payment %s already recorded", result.ReferenceID))
	}
	if ref, ok := m.authorizations[result.AuthorizationResponse]; ok {
		return saturn.NewMalformedMessageError(fmt.Sprintf("authorization already used by payment %s", ref))
	}

	result.CreatedAt = m.now()
	stored := *result
	m.results[result.ReferenceID] = &stored
	m.authorizations[result.AuthorizationResponse] = result.ReferenceID
	m.order = append(m.order, result.ReferenceID)
	return nil
}

func (m *Memory) GetResult(ctx context.Context, referenceID string) (*saturn.ResultData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[referenceID]
	if !ok {
		return nil, saturn.NewNotFoundError(fmt.Sprintf("payment %s not found", referenceID))
	}
	out := *r
	return &out, nil
}

func (m *Memory) ReserveRefund(ctx context.Context, referenceID string, amount int64) (*saturn.ResultData, error) {
	if err := validateRefund(Refund{ReferenceID: referenceID, Amount: amount}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[referenceID]
	if !ok {
		return nil, saturn.NewNotFoundError(fmt.Sprintf("payment %s not found", referenceID))
	}
	if r.RefundedAmount+amount > r.Amount {
		return nil, saturn.NewInvalidAmountError("refund exceeds the remaining amount of the payment")
	}
	r.RefundedAmount += amount

	out := *r
	return &out, nil
}

func (m *Memory) ReleaseRefund(ctx context.Context, referenceID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[referenceID]
	if !ok || r.RefundedAmount < amount {
		return saturn.NewInternalError(fmt.Sprintf("no reserved refund of %d on payment %s", amount, referenceID))
	}
	r.RefundedAmount -= amount
	return nil
}

func (m *Memory) RecordRefund(ctx context.Context, refund Refund) (*saturn.ResultData, error) {
	if err := validateRefund(refund); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[refund.ReferenceID]
	if !ok {
		return nil, saturn.NewNotFoundError(fmt.Sprintf("payment %s not found", refund.ReferenceID))
	}
	if refund.ID == "" {
		refund.ID = uuid.NewString()
	}
	m.refunds[refund.ReferenceID] = append(m.refunds[refund.ReferenceID], refund)

	out := *r
	return &out, nil
}

func (m *Memory) ListResults(ctx context.Context, limit int) ([]*saturn.ResultData, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]*saturn.ResultData, 0, min(limit, len(m.order)))
	for _, ref := range slices.Backward(m.order) {
		if len(results) == limit {
			break
		}
		out := *m.results[ref]
		results = append(results, &out)
	}
	return results, nil
}

func (m *Memory) ListRefunds(ctx context.Context, referenceID string) ([]Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.refunds[referenceID]), nil
}
