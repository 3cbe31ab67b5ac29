package harness

import (
	"github.com/roach88/crmbdd/internal/command"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every step and assertion passed.
	Pass bool `json:"pass"`

	// Trace contains every executed command in order.
	Trace []command.Record `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Aborted is set when a step failed and the remaining steps and
	// assertions were skipped.
	Aborted bool `json:"aborted,omitempty"`

	// Digest is the hash of the canonical trace snapshot. Equal digests mean
	// byte-identical golden output.
	Digest string `json:"digest,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []command.Record{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addRecord appends a trace record; used as the processor observer.
func (r *Result) addRecord(rec command.Record) {
	r.Trace = append(r.Trace, rec)
}
