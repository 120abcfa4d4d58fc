package orchestrator

import (
	"encoding/json"

	"github.com/information-sharing-networks/saturn-demo/internal/saturn"
)

// Outcome is the result of an orchestrator call: Complete, StepUpRequired, Reserved or Failed.
type Outcome interface {
	outcome()
}

// Complete means the result has been persisted.
type Complete struct {
	Result *saturn.ResultData
}

// StepUpRequired relays the payer provider's challenge to the wallet. Nothing has been persisted.
type StepUpRequired struct {
	Challenge json.RawMessage
}

// Reserved means funds were reserved and the pending operation has been stored.
type Reserved struct {
	Pending *saturn.PendingOperation
}

// Failed carries the error of an aborted call.
type Failed struct {
	Kind saturn.ErrorCode

	// URL is the party being called when the failure occurred (empty for local failures)
	URL string
	Err error
}

func (Complete) outcome()       {}
func (StepUpRequired) outcome() {}
func (Reserved) outcome()       {}
func (Failed) outcome()         {}

// Soft reports whether the failure should be shown to the user as an alert.
func (f Failed) Soft() bool { return f.Kind.Soft() }

func (f Failed) Error() string {
	if f.URL != "" {
		return f.URL + ": " + f.Err.Error()
	}
	return f.Err.Error()
}

func (f Failed) Unwrap() error { return f.Err }

func fail(url string, err error) Failed {
	return Failed{Kind: saturn.ErrorCodeOf(err), URL: url, Err: err}
}
