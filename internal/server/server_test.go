package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/information-sharing-networks/saturn-demo/internal/config"
	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
	"github.com/information-sharing-networks/saturn-demo/internal/qrsession"
	"github.com/information-sharing-networks/saturn-demo/internal/server/paymenthandlers"
	"github.com/information-sharing-networks/saturn-demo/internal/sessionstore"
	"github.com/information-sharing-networks/saturn-demo/internal/store"
)

const testAdminKey = "back-office-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.ServerEnvironment{
		Environment:    "test",
		MaxRequestSize: 65536,
		WriteTimeout:   10 * time.Second,
		AdminAPIKey:    testAdminKey,
	}

	privateKey, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatal(err)
	}
	publicKeys, err := crypto.PublicJWKSet(privateKey, "merchant-key")
	if err != nil {
		t.Fatal(err)
	}

	registry := qrsession.NewRegistry(qrsession.Config{}, logger)
	sessions := sessionstore.NewMemory(time.Minute)
	merchant := &config.Merchant{CommonName: "Space Shop", Currency: "EUR"}
	payments := paymenthandlers.NewHandler(paymenthandlers.Config{
		BaseURL:   "https://shop.example.com",
		CometWait: 20 * time.Millisecond,
	}, merchant, registry, nil, sessions, store.NewMemory())

	s := NewServer(nil, nil, cfg, logger, Components{
		Registry:   registry,
		Sessions:   sessions,
		Payments:   payments,
		PublicKeys: publicKeys,
	})

	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		registry.Close()
	})
	return ts
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		header     map[string]string
		wantStatus int
		wantBody   string
	}{
		{name: "liveness", method: http.MethodGet, path: "/health/live", wantStatus: http.StatusOK, wantBody: "OK"},
		{name: "readiness with in-memory stores", method: http.MethodGet, path: "/health/ready", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{name: "version", method: http.MethodGet, path: "/version", wantStatus: http.StatusOK, wantBody: ServiceName},
		{name: "jwks", method: http.MethodGet, path: "/.well-known/jwks.json", wantStatus: http.StatusOK, wantBody: "merchant-key"},
		{name: "poll unknown session", method: http.MethodPost, path: "/api/qr/poll", body: "42", wantStatus: http.StatusOK, wantBody: "r"},
		{name: "receipts without key", method: http.MethodGet, path: "/admin/receipts", wantStatus: http.StatusUnauthorized},
		{
			name:       "receipts with key",
			method:     http.MethodGet,
			path:       "/admin/receipts",
			header:     map[string]string{"Authorization": "Bearer " + testAdminKey},
			wantStatus: http.StatusOK,
			wantBody:   "[]",
		},
		{
			name:       "request too large",
			method:     http.MethodPost,
			path:       "/api/checkout",
			body:       `{"amount":1,"pad":"` + strings.Repeat("x", 70000) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{name: "unknown route", method: http.MethodGet, path: "/v3/envelopes", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantBody != "" && !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body %q does not contain %q", body, tt.wantBody)
			}
			if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestJWKSHasNoPrivateMaterial(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/.well-known/jwks.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		t.Fatal(err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(set.Keys))
	}
	if _, ok := set.Keys[0]["d"]; ok {
		t.Error("private key material published")
	}
}
