// Package ui checks what a user would see on a record form.
//
// Driving a real browser is out of scope. Verifier is the seam a browser
// automation backend plugs into; Recorded serves tests and scenario
// fixtures that declare the notifications a form shows.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/crmbdd/internal/crm"
)

// ErrUnavailable is returned by Unavailable.
var ErrUnavailable = errors.New("form verification is not available: no UI backend configured")

// Verifier asserts the notifications shown on a record's form.
type Verifier interface {
	AssertNotifications(ctx context.Context, alias string, ref crm.EntityReference, expected []crm.FormNotification) error
}

// Unavailable fails every check.
type Unavailable struct{}

// AssertNotifications always returns ErrUnavailable.
func (Unavailable) AssertNotifications(context.Context, string, crm.EntityReference, []crm.FormNotification) error {
	return ErrUnavailable
}

// Recorded answers from notifications registered per record.
//
// Thread-safety: Recorded is safe for concurrent use.
type Recorded struct {
	mu    sync.Mutex
	shown map[string][]crm.FormNotification
}

// NewRecorded creates an empty Recorded verifier.
func NewRecorded() *Recorded {
	return &Recorded{shown: make(map[string][]crm.FormNotification)}
}

// Show registers the notifications the form of the aliased record displays.
// Records never shown display no notifications.
func (r *Recorded) Show(alias string, notifications ...crm.FormNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown[alias] = append(r.shown[alias], notifications...)
}

// AssertNotifications requires expected and shown notifications to match as
// sets, reporting every missing and unexpected one.
func (r *Recorded) AssertNotifications(_ context.Context, alias string, ref crm.EntityReference, expected []crm.FormNotification) error {
	r.mu.Lock()
	shown := append([]crm.FormNotification(nil), r.shown[alias]...)
	r.mu.Unlock()

	remaining := make(map[crm.FormNotification]int, len(shown))
	for _, n := range shown {
		remaining[n]++
	}

	var mismatches []crm.Mismatch
	for _, want := range expected {
		if remaining[want] > 0 {
			remaining[want]--
			continue
		}
		mismatches = append(mismatches, crm.Mismatch{Field: "notification", Expected: want.String(), Actual: "<missing>"})
	}
	for _, n := range shown {
		if remaining[n] > 0 {
			remaining[n]--
			mismatches = append(mismatches, crm.Mismatch{Field: "notification", Expected: "<none>", Actual: n.String()})
		}
	}

	if len(mismatches) > 0 {
		return &crm.AssertionFailure{
			Check:      "notifications",
			Subject:    fmt.Sprintf("%s (%s)", alias, ref),
			Mismatches: mismatches,
		}
	}
	return nil
}
