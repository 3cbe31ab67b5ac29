package harness

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// NoScenariosError is returned when a path holds no scenario files.
type NoScenariosError struct {
	Path string
}

// Error implements the error interface.
func (e *NoScenariosError) Error() string {
	return fmt.Sprintf("no scenario files (*.yaml, *.yml) found in %s", e.Path)
}

// FindScenarios returns the scenario files at path. A file is returned
// as is; a directory is searched recursively for .yaml and .yml files,
// skipping testdata/golden. Results are sorted.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(p) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk scenarios: %w", err)
	}
	if len(files) == 0 {
		return nil, &NoScenariosError{Path: path}
	}
	sort.Strings(files)
	return files, nil
}

// SuiteOptions controls golden handling for a suite run.
type SuiteOptions struct {
	// GoldenDir, when set, compares every trace with its golden file there.
	GoldenDir string

	// Update rewrites golden files instead of comparing them.
	Update bool
}

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Scenarios      []ScenarioSummary `json:"scenarios"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioSummary is the outcome of one scenario in a suite.
type ScenarioSummary struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Pass     bool   `json:"pass"`
	Commands int    `json:"commands"`
	Digest   string `json:"digest,omitempty"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	ScenarioPath string   `json:"scenario_path"`
	Scenario     string   `json:"scenario,omitempty"`
	Errors       []string `json:"errors"`
}

// OK reports whether every scenario passed.
func (r *SuiteResult) OK() bool {
	return r.Failed == 0
}

func (r *SuiteResult) fail(path, name string, errs ...string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{ScenarioPath: path, Scenario: name, Errors: errs})
}

// RunFiles loads and runs every scenario file, collecting results.
//
// For each file:
// 1. Load the scenario with schema paths relative to the file
// 2. Run it via Run
// 3. Compare or update its golden file when configured
// 4. Record pass or failure
//
// A scenario that fails to load or run counts as failed; the suite
// continues with the next file.
func RunFiles(ctx context.Context, paths []string, sopts SuiteOptions, opts ...Option) *SuiteResult {
	result := &SuiteResult{}

	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(path, "", fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(ctx, scenario, opts...)
		if err != nil {
			result.fail(path, scenario.Name, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		errs := append([]string(nil), runResult.Errors...)
		if sopts.GoldenDir != "" {
			if sopts.Update {
				if err := WriteGolden(sopts.GoldenDir, scenario.Name, runResult); err != nil {
					errs = append(errs, fmt.Sprintf("failed to write golden file: %v", err))
				}
			} else if err := CompareGolden(sopts.GoldenDir, scenario.Name, runResult); err != nil {
				errs = append(errs, err.Error())
			}
		}

		pass := len(errs) == 0
		result.Scenarios = append(result.Scenarios, ScenarioSummary{
			Path:     path,
			Name:     scenario.Name,
			Pass:     pass,
			Commands: len(runResult.Trace),
			Digest:   runResult.Digest,
		})
		if !pass {
			result.fail(path, scenario.Name, errs...)
			continue
		}
		result.Passed++
	}

	return result
}
