package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/crmbdd/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern on the file name)
	GoldenDir string // golden trace directory; empty disables comparison
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file-or-dir>",
		Short: "Run behaviour scenarios",
		Long: `Run scenario files against a fresh in-memory record store each.

Every step runs as a fixture command; the first unexpected failure aborts
the scenario. Assertions check the command trace and the final records.
With --golden, traces are also compared with golden files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  crmbdd test ./scenarios
  crmbdd test ./scenarios --filter "contact_*"
  crmbdd test ./scenarios --golden ./scenarios/golden
  crmbdd test ./scenarios --golden ./scenarios/golden --update
  crmbdd test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "compare traces with golden files in this directory")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	files, err := harness.FindScenarios(path)
	var none *harness.NoScenariosError
	switch {
	case errors.As(err, &none):
		files = nil
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}

	if len(files) == 0 {
		if formatter.IsJSON() {
			return formatter.Success(&harness.SuiteResult{Scenarios: []harness.ScenarioSummary{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}
	formatter.VerboseLog("Running %d scenario(s) from %s", len(files), path)

	result := harness.RunFiles(cmd.Context(), files,
		harness.SuiteOptions{GoldenDir: opts.GoldenDir, Update: opts.Update},
		harness.WithConfig(opts.runConfig()),
		harness.WithLogger(opts.logger()),
	)

	if formatter.IsJSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(cmd, opts, result)
}

// filterScenarios keeps the files whose base name without extension
// matches pattern. An empty pattern keeps everything.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var kept []string
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if matched {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(formatter *OutputFormatter, result *harness.SuiteResult) error {
	if result.OK() {
		return formatter.Success(result)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := formatter.Failure(result, ErrCodeTestFailed, msg); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs one line per scenario and a summary.
func outputTestText(cmd *cobra.Command, opts *TestOptions, result *harness.SuiteResult) error {
	w := cmd.OutOrStdout()

	failures := make(map[string][]string, len(result.Failures))
	for _, f := range result.Failures {
		failures[f.ScenarioPath] = f.Errors
	}

	for _, s := range result.Scenarios {
		switch {
		case !s.Pass:
			fmt.Fprintf(w, "✗ %s\n", s.Name)
		case opts.Update:
			fmt.Fprintf(w, "✓ %s (golden updated)\n", s.Name)
		default:
			fmt.Fprintf(w, "✓ %s\n", s.Name)
		}
		if opts.Verbose && s.Pass {
			fmt.Fprintf(w, "  %d commands, trace %s\n", s.Commands, s.Digest)
		}
		for _, e := range failures[s.Path] {
			fmt.Fprintf(w, "  %s\n", indent(e))
		}
		delete(failures, s.Path)
	}
	// Scenarios that never ran (load or setup errors).
	for _, f := range result.Failures {
		if errs, ok := failures[f.ScenarioPath]; ok {
			fmt.Fprintf(w, "✗ %s\n", filepath.Base(f.ScenarioPath))
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", indent(e))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.TotalScenarios)

	if !result.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

// indent aligns continuation lines of multi-line messages under the
// first one.
func indent(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
