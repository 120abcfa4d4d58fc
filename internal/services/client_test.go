package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

func TestClientPostJSON(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		delay       time.Duration
		wantCode    saturn.ErrorCode
		wantErr     bool
	}{
		{
			name:        "ok",
			status:      http.StatusOK,
			contentType: "application/json; charset=utf-8",
			body:        `{"qualifier":"AuthorizationResponse","signature":"a.b.c"}`,
		},
		{
			name:        "non 200 status",
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{}`,
			wantErr:     true,
			wantCode:    saturn.ErrCodeTransport,
		},
		{
			name:        "wrong content type",
			status:      http.StatusOK,
			contentType: "text/html",
			body:        `<html></html>`,
			wantErr:     true,
			wantCode:    saturn.ErrCodeTransport,
		},
		{
			name:        "invalid json",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{`,
			wantErr:     true,
			wantCode:    saturn.ErrCodeMalformedMessage,
		},
		{
			name:        "timeout",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{}`,
			delay:       200 * time.Millisecond,
			wantErr:     true,
			wantCode:    saturn.ErrCodeTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("request content type = %q", ct)
				}
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &gotBody)

				if tt.delay > 0 {
					time.Sleep(tt.delay)
				}
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(100 * time.Millisecond)

			var env saturn.Envelope
			err := client.PostJSON(context.Background(), srv.URL, map[string]string{"qualifier": "AuthorizationRequest"}, &env)

			if tt.wantErr {
				if got := saturn.ErrorCodeOf(err); got != tt.wantCode {
					t.Fatalf("error code = %d, want %d (err: %v)", got, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PostJSON: %v", err)
			}
			if env.Signature != "a.b.c" {
				t.Errorf("envelope = %+v", env)
			}
			if gotBody["qualifier"] != "AuthorizationRequest" {
				t.Errorf("server received %v", gotBody)
			}
		})
	}
}

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"qualifier":"ProviderAuthority","signature":"x.y.z"}`))
	}))
	defer srv.Close()

	var env saturn.Envelope
	if err := NewClient(0).GetJSON(context.Background(), srv.URL, &env); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if env.Qualifier != saturn.QualifierProviderAuthority {
		t.Errorf("qualifier = %q", env.Qualifier)
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(time.Second).GetJSON(context.Background(), url, nil)
	if saturn.ErrorCodeOf(err) != saturn.ErrCodeTransport {
		t.Errorf("expected transport error, got %v", err)
	}
}
