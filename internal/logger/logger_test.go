package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"none", LevelNone},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := middleware.RequestID(RequestLogging(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ContextRequestLogger(r.Context()).Info("inside handler")
		ContextWithLogAttrs(r.Context(), slog.String("qr_session", "7"))
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/qr", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}

	var inside, completed map[string]any
	if err := json.Unmarshal(lines[0], &inside); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(lines[1], &completed); err != nil {
		t.Fatal(err)
	}
	if inside["request_id"] == "" || inside["request_id"] != completed["request_id"] {
		t.Errorf("request ids differ: %v / %v", inside["request_id"], completed["request_id"])
	}
	if completed["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", completed["status"])
	}
	if completed["qr_session"] != "7" {
		t.Errorf("handler attribute missing from completion line: %v", completed)
	}
}

func TestLongPollsLoggedAtDebug(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := RequestLogging(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/qr/poll", nil))

	if buf.Len() != 0 {
		t.Errorf("poll logged at info: %s", buf.String())
	}
}

func TestContextWithoutRequestLogger(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if ContextRequestLogger(r.Context()) == nil {
		t.Fatal("nil logger")
	}
	// no-op outside RequestLogging
	ContextWithLogAttrs(r.Context(), slog.String("k", "v"))
}
