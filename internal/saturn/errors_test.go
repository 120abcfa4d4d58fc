package saturn

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/information-sharing-networks/saturn-demo/internal/crypto"
)

// sanity check that the error codes are in the correct range
func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		errCode  ErrorCode
		wantCode int
		wantSoft bool
	}{
		{"bad_signature", ErrCodeBadSignature, 7001, false},
		{"malformed_message", ErrCodeMalformedMessage, 7004, false},
		{"internal_error", ErrCodeInternalError, 7005, false},
		{"malformed_request", ErrCodeMalformedRequest, 7006, false},
		{"key_error", ErrCodeKeyError, 7007, false},
		{"transport", ErrCodeTransport, 7011, false},
		{"unknown_method", ErrCodeUnknownPaymentMethod, 7012, false},
		{"unsupported_method", ErrCodeUnsupportedMethod, 8003, true},
		{"refund_not_supported", ErrCodeRefundNotSupported, 8004, true},
		{"session_absent", ErrCodeSessionAbsent, 8005, true},
	}
	for _, tt := range tests {
		if int(tt.errCode) != tt.wantCode {
			t.Errorf("%s: got %d, want %d", tt.name, tt.errCode, tt.wantCode)
		}
		if tt.errCode.Soft() != tt.wantSoft {
			t.Errorf("%s: Soft() = %v, want %v", tt.name, tt.errCode.Soft(), tt.wantSoft)
		}
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"saturn error", NewUnsupportedMethodError("x"), ErrCodeUnsupportedMethod},
		{"wrapped saturn error", WrapTransportError(errors.New("dial"), "post failed"), ErrCodeTransport},
		{"crypto signature", crypto.NewSignatureError("bad"), ErrCodeBadSignature},
		{"crypto key", crypto.NewKeyManagementError("no key"), ErrCodeKeyError},
		{"plain error", errors.New("boom"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCodeOf(tt.err); got != tt.want {
				t.Errorf("ErrorCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRespondWithErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"malformed request", NewMalformedRequestError("bad json"), http.StatusBadRequest, ErrCodeMalformedRequest},
		{"bad signature", WrapSignatureError(errors.New("verify"), "payment root"), http.StatusBadGateway, ErrCodeBadSignature},
		{"not found", NewNotFoundError("no receipt"), http.StatusNotFound, ErrCodeNotFound},
		{"crypto validation", crypto.NewValidationError("bad jws"), http.StatusBadGateway, ErrCodeMalformedMessage},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/finalize", nil)
			w := httptest.NewRecorder()

			RespondWithErrorResponse(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Errors) != 1 || resp.Errors[0].ErrorCode != tt.wantCode {
				t.Errorf("errors = %+v, want code %d", resp.Errors, tt.wantCode)
			}
			if resp.RequestURI != "/api/finalize" {
				t.Errorf("requestUri = %q", resp.RequestURI)
			}
		})
	}
}

func TestRespondWithAlert(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/wallet/authorize", nil)
	w := httptest.NewRecorder()

	RespondWithAlert(w, r, AlertMessage(ErrCodeSessionAbsent))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp AlertResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != StatusAlert || resp.Message != AlertSessionTimedOut {
		t.Errorf("got %+v", resp)
	}
}

func TestRespondWithTextDisablesCaching(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithText(w, http.StatusOK, "c")

	if got := w.Header().Get("Cache-Control"); got == "" {
		t.Error("Cache-Control not set")
	}
	if w.Body.String() != "c" {
		t.Errorf("body = %q, want c", w.Body.String())
	}
}
