package saturn

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		msg      Message
		wantCode ErrorCode
		wantErr  bool
	}{
		{
			name:    "valid authorization response",
			payload: `{"@qualifier":"AuthorizationResponse","referenceId":"r1","accountReference":"****1234","providerReferenceId":"p1"}`,
			msg:     &AuthorizationResponse{},
		},
		{
			name:     "wrong qualifier",
			payload:  `{"@qualifier":"TransactionResponse","referenceId":"r1","accountReference":"a","providerReferenceId":"p1"}`,
			msg:      &AuthorizationResponse{},
			wantErr:  true,
			wantCode: ErrCodeMalformedMessage,
		},
		{
			name:     "missing field",
			payload:  `{"@qualifier":"AuthorizationResponse","referenceId":"r1","providerReferenceId":"p1"}`,
			msg:      &AuthorizationResponse{},
			wantErr:  true,
			wantCode: ErrCodeMalformedMessage,
		},
		{
			name:     "not json",
			payload:  `not json`,
			msg:      &TransactionResponse{},
			wantErr:  true,
			wantCode: ErrCodeMalformedMessage,
		},
		{
			name:    "provider authority",
			payload: `{"@qualifier":"ProviderAuthority","providerAuthorityUrl":"https://bank/authority","commonName":"Bank","serviceUrl":"https://bank/service","expires":"2030-01-01T00:00:00Z"}`,
			msg:     &ProviderAuthority{},
		},
		{
			name:     "provider authority with empty extensions",
			payload:  `{"@qualifier":"ProviderAuthority","providerAuthorityUrl":"https://bank/authority","commonName":"Bank","serviceUrl":"https://bank/service","expires":"2030-01-01T00:00:00Z","extensions":{}}`,
			msg:      &ProviderAuthority{},
			wantErr:  true,
			wantCode: ErrCodeMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeMessage([]byte(tt.payload), tt.msg)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var saturnErr *SaturnError
			if !errors.As(err, &saturnErr) {
				t.Fatalf("expected SaturnError, got %v", err)
			}
			if saturnErr.Code() != tt.wantCode {
				t.Errorf("code = %d, want %d", saturnErr.Code(), tt.wantCode)
			}
		})
	}
}

func TestProviderAuthorityBackendMethods(t *testing.T) {
	p := &ProviderAuthority{
		SupportedPaymentMethods: []PaymentMethodDeclaration{
			{ClientPaymentMethod: "https://supercard.com", BackendMethods: []string{"https://supercard.com"}},
			{ClientPaymentMethod: "https://banknet2.org", BackendMethods: []string{"https://sepa.bank.eu", "https://banknet2.org"}},
		},
		Extensions: map[string]string{ExtensionRefundRequest: "https://bank/refund"},
	}

	got := p.BackendMethods("https://banknet2.org")
	if len(got) != 2 || got[0] != "https://sepa.bank.eu" {
		t.Errorf("BackendMethods() = %v", got)
	}
	if p.BackendMethods("https://unknown") != nil {
		t.Error("expected nil for undeclared method")
	}
	if u, ok := p.Extension(ExtensionRefundRequest); !ok || u != "https://bank/refund" {
		t.Errorf("Extension(refundRequest) = %q, %v", u, ok)
	}
	if _, ok := p.Extension(ExtensionHybridPayment); ok {
		t.Error("hybridPayment should be absent")
	}
}

func TestWalletResponseValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"complete", `{"paymentMethod":"https://supercard.com","providerAuthorityUrl":"https://bank/authority","encryptedAuthorization":{"enc":"A128GCM"}}`, false},
		{"authorization missing", `{"paymentMethod":"https://supercard.com","providerAuthorityUrl":"https://bank/authority"}`, true},
		{"authorization null", `{"paymentMethod":"https://supercard.com","providerAuthorityUrl":"https://bank/authority","encryptedAuthorization":null}`, true},
		{"authorization null with spacing", `{"paymentMethod":"https://supercard.com","providerAuthorityUrl":"https://bank/authority","encryptedAuthorization":  null }`, true},
		{"method missing", `{"providerAuthorityUrl":"https://bank/authority","encryptedAuthorization":{}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w WalletResponse
			if err := json.Unmarshal([]byte(tt.body), &w); err != nil {
				t.Fatal(err)
			}
			err := w.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && ErrorCodeOf(err) != ErrCodeMalformedRequest {
				t.Errorf("code = %d, want %d", ErrorCodeOf(err), ErrCodeMalformedRequest)
			}
		})
	}
}

func TestIsAbsent(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"null", true},
		{" null\n", true},
		{`{}`, false},
		{`"null"`, false},
		{`0`, false},
	}
	for _, tt := range tests {
		if got := IsAbsent(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("IsAbsent(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
