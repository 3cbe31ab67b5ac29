package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/crmbdd/internal/command"
	"github.com/roach88/crmbdd/internal/criteria"
	"github.com/roach88/crmbdd/internal/ir"
	"github.com/roach88/crmbdd/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Trace    []command.Record // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, rec := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v", rec.Seq, rec.Command, rec.Args)
			if rec.Kind != "" {
				fmt.Fprintf(&buf, " (%s error)", rec.Kind)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext carries what record assertions need to query the store.
type AssertionContext struct {
	Ctx       context.Context
	Converter criteria.Converter
	Records   store.Service
}

// assertTraceContains checks if the trace contains a command matching the
// specified name and args (subset match).
func assertTraceContains(trace []command.Record, assertion Assertion) error {
	for _, rec := range trace {
		if rec.Command == assertion.Action && matchArgs(rec.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("command %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if commands appear in the specified order.
// Commands don't need to be consecutive; the first occurrence of each counts.
func assertTraceOrder(trace []command.Record, assertion Assertion) error {
	positions := make(map[string]int)
	for i, rec := range trace {
		if _, seen := positions[rec.Command]; !seen {
			positions[rec.Command] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range assertion.Actions {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all commands present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing command: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("commands in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the command appears exactly the specified
// number of times.
func assertTraceCount(trace []command.Record, assertion Assertion) error {
	count := 0
	for _, rec := range trace {
		if rec.Command == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertRecordCount counts the records of an entity matching the where
// table. The query bypasses the processor so it does not appear in the
// trace.
func assertRecordCount(actx *AssertionContext, assertion Assertion) error {
	if actx == nil || actx.Records == nil {
		return fmt.Errorf("record_count assertion requires a record store")
	}

	q, err := criteria.BuildQuery(actx.Ctx, actx.Converter, assertion.Entity, assertion.Where)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	records, err := actx.Records.RetrieveMultiple(actx.Ctx, q)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}

	if len(records) != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s records matching %v", assertion.Count, assertion.Entity, assertion.Where),
			Actual:   fmt.Sprintf("%d records", len(records)),
		}
	}
	return nil
}

// matchArgs reports whether every expected key is present in actual with
// an equal value. Values are compared in canonical JSON form, so YAML ints
// match the trace's int64s and nested tables match row by row.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		wantJSON, err := ir.MarshalCanonical(want)
		if err != nil {
			return false
		}
		gotJSON, err := ir.MarshalCanonical(got)
		if err != nil {
			return false
		}
		if !bytes.Equal(wantJSON, gotJSON) {
			return false
		}
	}
	return true
}

// EvaluateAssertions runs every assertion and returns the failure messages.
// All assertions run even after one fails.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertRecordCount:
			err = assertRecordCount(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
