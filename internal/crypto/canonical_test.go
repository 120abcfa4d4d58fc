package crypto

import (
	"errors"
	"testing"
)

func TestCanonicalJSON(t *testing.T) {
	msg := struct {
		Qualifier string  `json:"@qualifier"`
		Amount    int64   `json:"amount"`
		Rate      float64 `json:"rate"`
		Currency  string  `json:"currency"`
	}{"TransactionRequest", 12500, 1.50, "EUR"}

	got, err := CanonicalJSON(msg)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"@qualifier":"TransactionRequest","amount":12500,"currency":"EUR","rate":1.5}`
	if string(got) != want {
		t.Errorf("CanonicalJSON = %s, want %s", got, want)
	}
}

func TestCanonicalizeJSONRejectsInvalidJSON(t *testing.T) {
	_, err := CanonicalizeJSON([]byte(`{"amount": 1`))

	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) || cryptoErr.Code() != ErrCodeValidation {
		t.Fatalf("CanonicalizeJSON(invalid) error = %v, want a validation error", err)
	}
}
