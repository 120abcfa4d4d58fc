package sessionstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

// testStore runs the same behaviour checks against any Store implementation.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	sessionID := uuid.NewString()

	var op saturn.PendingOperation
	found, err := s.Get(ctx, sessionID, KeyPendingOperation, &op)
	if err != nil || found {
		t.Fatalf("Get on empty session = %v, %v; want false, nil", found, err)
	}

	want := saturn.PendingOperation{
		ReferenceID:    "ref-1",
		PaymentMethod:  "https://supercard.com",
		ReservedAmount: 20000,
		TargetURL:      "https://acquirer.com/service",
		TrustRoot:      saturn.TrustRootAcquirer,
	}
	if err := s.Set(ctx, sessionID, KeyPendingOperation, want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	found, err = s.Get(ctx, sessionID, KeyPendingOperation, &op)
	if err != nil || !found {
		t.Fatalf("Get = %v, %v; want true, nil", found, err)
	}
	if op.ReferenceID != want.ReferenceID || op.ReservedAmount != want.ReservedAmount || op.TrustRoot != want.TrustRoot {
		t.Errorf("Get returned %+v, want %+v", op, want)
	}

	// attributes of other sessions are not visible
	found, _ = s.Get(ctx, uuid.NewString(), KeyPendingOperation, &op)
	if found {
		t.Error("attribute leaked to another session")
	}

	if err := s.Delete(ctx, sessionID, KeyPendingOperation); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	testTake(t, s)
	if err := s.Delete(ctx, sessionID, KeyPendingOperation); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	found, _ = s.Get(ctx, sessionID, KeyPendingOperation, &op)
	if found {
		t.Error("attribute still present after Delete")
	}
}

// testTake checks that of several concurrent Takes exactly one gets the attribute.
func testTake(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	sessionID := uuid.NewString()

	if err := s.Set(ctx, sessionID, KeyCheckout, map[string]int64{"amount": 12500}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const takers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range takers {
		wg.Go(func() {
			var checkout map[string]int64
			found, err := s.Take(ctx, sessionID, KeyCheckout, &checkout)
			if err != nil {
				t.Errorf("Take: %v", err)
				return
			}
			if found {
				if checkout["amount"] != 12500 {
					t.Errorf("Take returned %v", checkout)
				}
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d of %d concurrent Takes found the attribute, want 1", wins, takers)
	}
	var checkout map[string]int64
	if found, _ := s.Get(ctx, sessionID, KeyCheckout, &checkout); found {
		t.Error("attribute still present after Take")
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory(time.Minute))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m := NewMemory(10 * time.Minute)
	m.now = func() time.Time { return clock }

	if err := m.Set(ctx, "s1", KeyResultReference, "ref-1"); err != nil {
		t.Fatal(err)
	}

	// each Set refreshes the idle timer
	clock = clock.Add(9 * time.Minute)
	if err := m.Set(ctx, "s1", KeyCheckout, map[string]int{"amount": 100}); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(9 * time.Minute)

	var ref string
	if found, _ := m.Get(ctx, "s1", KeyResultReference, &ref); !found || ref != "ref-1" {
		t.Fatalf("Get after refresh = %v %q", found, ref)
	}

	clock = clock.Add(time.Minute)
	if found, _ := m.Get(ctx, "s1", KeyResultReference, &ref); found {
		t.Error("expired session still readable")
	}
}

func TestMemoryStorePrunesAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m := NewMemory(time.Minute)
	m.now = func() time.Time { return clock }

	for range 3 {
		if err := m.Set(ctx, uuid.NewString(), KeyCheckout, 1); err != nil {
			t.Fatal(err)
		}
	}
	clock = clock.Add(2 * time.Minute)
	if err := m.Set(ctx, "fresh", KeyCheckout, 1); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

// requires a running redis server, e.g. REDIS_URL=redis://localhost:6379/15
func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	s, err := OpenRedis(context.Background(), redisURL, time.Minute)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()

	testStore(t, s)
}
