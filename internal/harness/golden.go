package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/crmbdd/internal/ir"
)

// GoldenDir is where golden trace files live, relative to the test's
// package directory.
const GoldenDir = "testdata/golden"

// GoldenSuffix is the golden file extension.
const GoldenSuffix = ".golden"

// Snapshot builds the canonical form of a scenario trace.
//
// Error messages are left out: they can carry ids and timings. The error
// kind is kept, so a golden still pins down which steps failed and how.
func Snapshot(scenarioName string, result *Result) map[string]any {
	trace := make([]any, len(result.Trace))
	for i, rec := range result.Trace {
		entry := map[string]any{
			"seq":     rec.Seq,
			"command": rec.Command,
		}
		if len(rec.Args) > 0 {
			entry["args"] = rec.Args
		}
		if len(rec.Result) > 0 {
			entry["result"] = rec.Result
		}
		if rec.Kind != "" {
			entry["kind"] = rec.Kind
		}
		trace[i] = entry
	}
	return map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	}
}

// MarshalSnapshot renders the snapshot as canonical JSON, the golden file
// format.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot(scenarioName, result))
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}

// GoldenMismatchError reports a trace that differs from its golden file.
type GoldenMismatchError struct {
	Path     string
	Expected []byte
	Actual   []byte
}

func (e *GoldenMismatchError) Error() string {
	return fmt.Sprintf("trace differs from golden file %s\n  expected: %s\n  actual:   %s",
		e.Path, e.Expected, e.Actual)
}

// GoldenPath returns the golden file for a scenario under dir.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+GoldenSuffix)
}

// CompareGolden checks a result against its golden file under dir outside
// of a test. A missing golden file is reported as an error.
func CompareGolden(dir, scenarioName string, result *Result) error {
	actual, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	path := GoldenPath(dir, scenarioName)
	expected, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(expected, actual) {
		return &GoldenMismatchError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}

// WriteGolden writes a result's snapshot as the scenario's golden file
// under dir.
func WriteGolden(dir, scenarioName string, result *Result) error {
	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(GoldenPath(dir, scenarioName), data, 0o644)
}
