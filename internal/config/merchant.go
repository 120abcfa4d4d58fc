package config

// merchant.go loads the merchant's static configuration: who the merchant is and which
// payment methods it accepts.
//
// Example:
//
//	commonName: Space Shop
//	payeeAuthorityUrl: https://spacebank.com/payees/86344
//	paymentMethods:
//	  - clientPaymentMethod: https://supercard.com
//	    card: true
//	    acquirerAuthorityUrl: https://acquirer.com/authority
//	    receivingAccounts:
//	      - context: https://supercard.com
//	  - clientPaymentMethod: https://banknet2.org
//	    receivingAccounts:
//	      - context: https://swift.com
//	        fields:
//	          iban: FR7630004003200001019471656

import (
	"bytes"
	"fmt"
	"os"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
	"gopkg.in/yaml.v3"
)

// PaymentMethod is one client payment method accepted by the merchant.
type PaymentMethod struct {
	ClientPaymentMethod string `yaml:"clientPaymentMethod"`

	// Card methods are settled through the acquirer
	Card                 bool   `yaml:"card"`
	AcquirerAuthorityURL string `yaml:"acquirerAuthorityUrl"`

	// ReceivingAccounts are the merchant accounts for this method, keyed by backend method (context)
	ReceivingAccounts []saturn.ReceivingAccount `yaml:"receivingAccounts"`
}

// ReceivingAccount returns the configured account for a backend method.
func (p *PaymentMethod) ReceivingAccount(backendMethod string) (saturn.ReceivingAccount, bool) {
	for _, a := range p.ReceivingAccounts {
		if a.Context == backendMethod {
			return a, true
		}
	}
	return saturn.ReceivingAccount{}, false
}

type Merchant struct {
	CommonName        string          `yaml:"commonName"`
	PayeeAuthorityURL string          `yaml:"payeeAuthorityUrl"`
	Currency          string          `yaml:"currency"`
	PaymentMethods    []PaymentMethod `yaml:"paymentMethods"`
}

// PaymentMethod returns the configuration of a client payment method.
func (m *Merchant) PaymentMethod(clientPaymentMethod string) (*PaymentMethod, bool) {
	for i := range m.PaymentMethods {
		if m.PaymentMethods[i].ClientPaymentMethod == clientPaymentMethod {
			return &m.PaymentMethods[i], true
		}
	}
	return nil, false
}

// ClientPaymentMethods lists the accepted client payment methods in configuration order.
func (m *Merchant) ClientPaymentMethods() []string {
	methods := make([]string, 0, len(m.PaymentMethods))
	for _, p := range m.PaymentMethods {
		methods = append(methods, p.ClientPaymentMethod)
	}
	return methods
}

// LoadMerchant reads and validates the merchant YAML file.
func LoadMerchant(path string) (*Merchant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read merchant config: %w", err)
	}
	return ParseMerchant(data)
}

// ParseMerchant decodes merchant YAML. Unknown fields are rejected.
func ParseMerchant(data []byte) (*Merchant, error) {
	var m Merchant
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse merchant config: %w", err)
	}
	if m.Currency == "" {
		m.Currency = "EUR"
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Merchant) validate() error {
	if m.CommonName == "" {
		return fmt.Errorf("merchant commonName is required")
	}
	if m.PayeeAuthorityURL == "" {
		return fmt.Errorf("merchant payeeAuthorityUrl is required")
	}
	if len(m.PaymentMethods) == 0 {
		return fmt.Errorf("at least one payment method must be configured")
	}

	seen := make(map[string]bool)
	for _, p := range m.PaymentMethods {
		if p.ClientPaymentMethod == "" {
			return fmt.Errorf("payment method without clientPaymentMethod")
		}
		if seen[p.ClientPaymentMethod] {
			return fmt.Errorf("payment method %s configured twice", p.ClientPaymentMethod)
		}
		seen[p.ClientPaymentMethod] = true

		if p.Card && p.AcquirerAuthorityURL == "" {
			return fmt.Errorf("card payment method %s needs acquirerAuthorityUrl", p.ClientPaymentMethod)
		}
		if len(p.ReceivingAccounts) == 0 {
			return fmt.Errorf("payment method %s has no receiving accounts", p.ClientPaymentMethod)
		}
		for _, a := range p.ReceivingAccounts {
			if a.Context == "" {
				return fmt.Errorf("payment method %s: receiving account without context", p.ClientPaymentMethod)
			}
		}
	}
	return nil
}
