package crypto

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantOK   bool
	}{
		{"validation", NewValidationError("bad header"), ErrCodeValidation, true},
		{"wrapped signature", WrapSignatureError(errors.New("mismatch"), "verify failed"), ErrCodeInvalidSignature, true},
		{"key file", WrapKeyManagementError(fs.ErrNotExist, "read key"), ErrCodeKeyManagement, true},
		{"behind fmt wrap", fmt.Errorf("authorize: %w", NewInternalError("sign")), ErrCodeInternal, true},
		{"foreign error", errors.New("network down"), "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := CodeOf(tt.err)
			if code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("CodeOf() = %q, %v; want %q, %v", code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestWrappedCauseIsReachable(t *testing.T) {
	err := WrapKeyManagementError(fs.ErrNotExist, "failed to read signing key")

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is did not find the wrapped cause")
	}
	if got, want := err.Error(), "failed to read signing key: file does not exist"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := NewSignatureError("no signature").Error(); got != "no signature" {
		t.Errorf("Error() without cause = %q", got)
	}
}
