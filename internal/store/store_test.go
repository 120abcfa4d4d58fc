package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/database"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func newResult(amount int64) *saturn.ResultData {
	ref := uuid.NewString()
	return &saturn.ResultData{
		ReferenceID:               ref,
		Amount:                    amount,
		Currency:                  "EUR",
		AccountReference:          "FR7630002111110020050014382",
		ProviderName:              "Space Bank",
		PaymentMethod:             "https://banknet2.org",
		Shape:                     saturn.ShapeDirect,
		AuthorizationResponse:     "eyJhbGciOiJFZERTQSJ9.auth-" + ref + ".sig",
		PayeeProviderAuthorityURL: "https://spacebank.com/authority",
	}
}

func testResultStore(t *testing.T, s ResultStore) {
	t.Helper()
	ctx := context.Background()

	result := newResult(10000)
	if err := s.SaveResult(ctx, result); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if result.CreatedAt.IsZero() {
		t.Error("CreatedAt not set by SaveResult")
	}

	got, err := s.GetResult(ctx, result.ReferenceID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Amount != 10000 || got.Shape != saturn.ShapeDirect || got.AuthorizationResponse != result.AuthorizationResponse {
		t.Errorf("GetResult = %+v", got)
	}

	t.Run("missing result", func(t *testing.T) {
		_, err := s.GetResult(ctx, uuid.NewString())
		if code := saturn.ErrorCodeOf(err); code != saturn.ErrCodeNotFound {
			t.Errorf("error code = %d, want %d", code, saturn.ErrCodeNotFound)
		}
	})

	t.Run("replayed authorization", func(t *testing.T) {
		replay := newResult(10000)
		replay.AuthorizationResponse = result.AuthorizationResponse
		err := s.SaveResult(ctx, replay)
		if code := saturn.ErrorCodeOf(err); code != saturn.ErrCodeMalformedMessage {
			t.Errorf("error code = %d, want %d", code, saturn.ErrCodeMalformedMessage)
		}
	})

	t.Run("refunds", func(t *testing.T) {
		tests := []struct {
			name         string
			amount       int64
			wantCode     saturn.ErrorCode
			wantRefunded int64
		}{
			{"partial", 4000, 0, 4000},
			{"rest", 6000, 0, 10000},
			{"beyond amount", 1, saturn.ErrCodeInvalidAmount, 10000},
			{"zero", 0, saturn.ErrCodeInvalidAmount, 10000},
		}
		for _, tt := range tests {
			reserved, err := s.ReserveRefund(ctx, result.ReferenceID, tt.amount)
			if tt.wantCode != 0 {
				if code := saturn.ErrorCodeOf(err); code != tt.wantCode {
					t.Errorf("%s: error code = %d, want %d", tt.name, code, tt.wantCode)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s: ReserveRefund: %v", tt.name, err)
			}
			if reserved.RefundedAmount != tt.wantRefunded {
				t.Errorf("%s: RefundedAmount = %d, want %d", tt.name, reserved.RefundedAmount, tt.wantRefunded)
			}
			updated, err := s.RecordRefund(ctx, Refund{
				ReferenceID:         result.ReferenceID,
				Amount:              tt.amount,
				ProviderReferenceID: "bank-" + tt.name,
			})
			if err != nil {
				t.Fatalf("%s: RecordRefund: %v", tt.name, err)
			}
			if updated.RefundedAmount != tt.wantRefunded {
				t.Errorf("%s: recorded RefundedAmount = %d, want %d", tt.name, updated.RefundedAmount, tt.wantRefunded)
			}
		}

		refunds, err := s.ListRefunds(ctx, result.ReferenceID)
		if err != nil {
			t.Fatal(err)
		}
		if len(refunds) != 2 {
			t.Errorf("ListRefunds returned %d refunds, want 2", len(refunds))
		}

		_, err = s.ReserveRefund(ctx, uuid.NewString(), 1)
		if code := saturn.ErrorCodeOf(err); code != saturn.ErrCodeNotFound {
			t.Errorf("refund of unknown payment: error code = %d, want %d", code, saturn.ErrCodeNotFound)
		}
	})

	t.Run("released reservation", func(t *testing.T) {
		payment := newResult(3000)
		if err := s.SaveResult(ctx, payment); err != nil {
			t.Fatal(err)
		}
		if _, err := s.ReserveRefund(ctx, payment.ReferenceID, 3000); err != nil {
			t.Fatalf("ReserveRefund: %v", err)
		}
		if _, err := s.ReserveRefund(ctx, payment.ReferenceID, 1); saturn.ErrorCodeOf(err) != saturn.ErrCodeInvalidAmount {
			t.Errorf("reservation beyond an outstanding one: err = %v", err)
		}
		if err := s.ReleaseRefund(ctx, payment.ReferenceID, 3000); err != nil {
			t.Fatalf("ReleaseRefund: %v", err)
		}
		if err := s.ReleaseRefund(ctx, payment.ReferenceID, 1); err == nil {
			t.Error("released more than was reserved")
		}

		got, err := s.GetResult(ctx, payment.ReferenceID)
		if err != nil {
			t.Fatal(err)
		}
		if got.RefundedAmount != 0 {
			t.Errorf("RefundedAmount after release = %d, want 0", got.RefundedAmount)
		}
		refunds, _ := s.ListRefunds(ctx, payment.ReferenceID)
		if len(refunds) != 0 {
			t.Errorf("released reservation left %d refunds", len(refunds))
		}
	})

	t.Run("concurrent reservations", func(t *testing.T) {
		payment := newResult(10000)
		if err := s.SaveResult(ctx, payment); err != nil {
			t.Fatal(err)
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for range 5 {
			wg.Go(func() {
				if _, err := s.ReserveRefund(ctx, payment.ReferenceID, 3000); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			})
		}
		wg.Wait()

		if accepted != 3 {
			t.Errorf("%d reservations of 3000 accepted on a 10000 payment, want 3", accepted)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		second := newResult(500)
		if err := s.SaveResult(ctx, second); err != nil {
			t.Fatal(err)
		}
		results, err := s.ListResults(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 || results[0].ReferenceID != second.ReferenceID {
			t.Errorf("ListResults(1) = %v", results)
		}
	})
}

func TestMemoryResultStore(t *testing.T) {
	testResultStore(t, NewMemory())
}

func TestMemoryResultStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	result := newResult(100)
	if err := m.SaveResult(ctx, result); err != nil {
		t.Fatal(err)
	}
	result.Amount = 1

	got, _ := m.GetResult(ctx, result.ReferenceID)
	got.RefundedAmount = 99

	again, _ := m.GetResult(ctx, result.ReferenceID)
	if again.Amount != 100 || again.RefundedAmount != 0 {
		t.Errorf("stored result was modified through a returned pointer: %+v", again)
	}
}

// requires a migrated database, e.g. DATABASE_URL=postgres://localhost:5432/saturn_test
func TestPostgresResultStore(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	testResultStore(t, NewPostgres(pool, database.New(pool)))
}
