package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() ServerEnvironment {
	return ServerEnvironment{
		Environment:        "dev",
		Port:               8080,
		WriteTimeout:       60 * time.Second,
		MaxRequestSize:     65536,
		DBMaxConnections:   4,
		QRMaxSession:       300 * time.Second,
		QRCycleTime:        60 * time.Second,
		QRCometWait:        30 * time.Second,
		ReservationAmount:  20000,
		MerchantBaseURL:    "https://merchant.example.com",
		PaymentRootKeysDir: "keys/payment",
		AcquirerRootJWKSURLs: []string{
			"https://acquirer.example.com/.well-known/jwks.json",
		},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *ServerEnvironment)
		wantErr string
	}{
		{"valid", func(cfg *ServerEnvironment) {}, ""},
		{"bad port", func(cfg *ServerEnvironment) { cfg.Port = 0 }, "PORT"},
		{"bad environment", func(cfg *ServerEnvironment) { cfg.Environment = "qa" }, "ENVIRONMENT"},
		{"min above max connections", func(cfg *ServerEnvironment) { cfg.DBMinConnections = 5 }, "DB_MIN_CONNECTIONS"},
		{"relative base url", func(cfg *ServerEnvironment) { cfg.MerchantBaseURL = "/shop" }, "MERCHANT_BASE_URL"},
		{"write timeout shorter than comet wait", func(cfg *ServerEnvironment) { cfg.WriteTimeout = 10 * time.Second }, "WRITE_TIMEOUT"},
		{"zero reservation", func(cfg *ServerEnvironment) { cfg.ReservationAmount = 0 }, "RESERVATION_AMOUNT"},
		{"no payment root", func(cfg *ServerEnvironment) { cfg.PaymentRootKeysDir = "" }, "PAYMENT_ROOT"},
		{"prod without admin key", func(cfg *ServerEnvironment) { cfg.Environment = "prod" }, "ADMIN_API_KEY"},
		{"no acquirer root", func(cfg *ServerEnvironment) { cfg.AcquirerRootJWKSURLs = nil }, "ACQUIRER_ROOT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestNewServerConfigFromEnvironment(t *testing.T) {
	t.Setenv("MERCHANT_BASE_URL", "https://merchant.example.com")
	t.Setenv("MERCHANT_CONFIG_PATH", "merchant.yaml")
	t.Setenv("SIGNING_KEY_PATH", "keys/merchant.private.jwk")
	t.Setenv("DATABASE_URL", MemoryDatabaseURL)
	t.Setenv("PAYMENT_ROOT_KEYS_DIR", "keys/payment")
	t.Setenv("ACQUIRER_ROOT_JWKS_URLS", "https://a.example.com/jwks.json|https://b.example.com/jwks.json")

	cfg, err := NewServerConfig()
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	if cfg.QRCometWait != 30*time.Second || cfg.ReservationAmount != 20000 || cfg.OutboundRequestTimeout != 5*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.AcquirerRootJWKSURLs) != 2 {
		t.Errorf("AcquirerRootJWKSURLs = %v", cfg.AcquirerRootJWKSURLs)
	}
}

func TestNewCLIConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PAYMENT_ROOT_JWKS_URLS", "https://a.example.com/jwks.json")

	cfg, err := NewCLIConfig()
	if err != nil {
		t.Fatalf("NewCLIConfig: %v", err)
	}
	if cfg.LogLevel != "info" || len(cfg.PaymentRootJWKSURLs) != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	t.Setenv("ENVIRONMENT", "qa")
	if _, err := NewCLIConfig(); err == nil {
		t.Error("invalid ENVIRONMENT accepted")
	}
}

const merchantYAML = `
commonName: Space Shop
payeeAuthorityUrl: https://spacebank.com/payees/86344
paymentMethods:
  - clientPaymentMethod: https://supercard.com
    card: true
    acquirerAuthorityUrl: https://acquirer.com/authority
    receivingAccounts:
      - context: https://supercard.com
  - clientPaymentMethod: https://banknet2.org
    receivingAccounts:
      - context: https://swift.com
        fields:
          iban: FR7630004003200001019471656
      - context: https://sepa.eu
        fields:
          iban: FR7630004003200001019471656
`

func TestLoadMerchant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merchant.yaml")
	if err := os.WriteFile(path, []byte(merchantYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMerchant(path)
	if err != nil {
		t.Fatalf("LoadMerchant: %v", err)
	}
	if m.Currency != "EUR" {
		t.Errorf("Currency = %q, want default EUR", m.Currency)
	}
	if got := m.ClientPaymentMethods(); len(got) != 2 || got[0] != "https://supercard.com" {
		t.Errorf("ClientPaymentMethods() = %v", got)
	}

	pm, ok := m.PaymentMethod("https://banknet2.org")
	if !ok || pm.Card {
		t.Fatalf("PaymentMethod(banknet2) = %+v, %v", pm, ok)
	}
	acct, ok := pm.ReceivingAccount("https://sepa.eu")
	if !ok || acct.Fields["iban"] != "FR7630004003200001019471656" {
		t.Errorf("ReceivingAccount(sepa) = %+v, %v", acct, ok)
	}
	if _, ok := m.PaymentMethod("https://unknown.org"); ok {
		t.Error("unknown payment method found")
	}
}

func TestParseMerchantRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "commonName: x\npayeeAuthorityUrl: u\ncolour: blue\n"},
		{"no methods", "commonName: x\npayeeAuthorityUrl: u\n"},
		{"card without acquirer", `
commonName: x
payeeAuthorityUrl: u
paymentMethods:
  - clientPaymentMethod: https://supercard.com
    card: true
    receivingAccounts: [{context: https://supercard.com}]
`},
		{"duplicate method", `
commonName: x
payeeAuthorityUrl: u
paymentMethods:
  - clientPaymentMethod: https://banknet2.org
    receivingAccounts: [{context: https://swift.com}]
  - clientPaymentMethod: https://banknet2.org
    receivingAccounts: [{context: https://swift.com}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMerchant([]byte(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
