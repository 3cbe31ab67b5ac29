package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/crmbdd/internal/harness"
	"github.com/roach88/crmbdd/internal/metadata"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Scenarios string // scenario file or directory checked against the schema
}

// ValidationIssue is one problem found in a schema or scenario file.
type ValidationIssue struct {
	File    string `json:"file,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Entities  []string          `json:"entities,omitempty"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <schema-file-or-dir>",
		Short: "Validate a schema and, optionally, scenarios against it",
		Long: `Compile CUE schema files without running anything.

With --scenarios, scenario files are also parsed and every entity they
name is checked against the schema. Faster than test for development
feedback.

Exit codes:
  0 - Schema (and scenarios) valid
  1 - Validation errors found
  2 - Command error (path not found, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenarios, "scenarios", "", "scenario file or directory to check against the schema")

	return cmd
}

func runValidate(opts *ValidateOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	schema, err := LoadSchema(schemaPath)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		switch loadErr.Code {
		case ErrCodeNotFound, ErrCodeNoFiles, ErrCodeScanError:
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidationErrors(formatter, ValidationResult{Errors: []ValidationIssue{issueFromLoadError(loadErr)}})
	}

	result := ValidationResult{Entities: schema.Source.EntityNames()}
	formatter.VerboseLog("Compiled %d CUE file(s): %d entities", len(schema.Files), len(result.Entities))

	if opts.Scenarios != "" {
		files, err := harness.FindScenarios(opts.Scenarios)
		if err != nil {
			return outputValidateError(formatter, ErrCodeNotFound, err.Error())
		}
		for _, f := range files {
			formatter.VerboseLog("Validating scenario: %s", f)
			result.Scenarios++
			result.Errors = append(result.Errors, validateScenarioFile(cmd.Context(), f, schema.Source)...)
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

// validateScenarioFile parses a scenario and checks every entity it names
// against the schema.
func validateScenarioFile(ctx context.Context, path string, meta metadata.Source) []ValidationIssue {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return []ValidationIssue{{File: path, Code: ErrCodeLoadFailed, Message: err.Error()}}
	}

	var issues []ValidationIssue
	check := func(where, entity string) {
		if entity == "" {
			return
		}
		if _, err := meta.FetchEntity(ctx, entity); err != nil {
			issues = append(issues, ValidationIssue{
				File:    path,
				Code:    ErrCodeUnknown,
				Message: fmt.Sprintf("%s: unknown entity %q", where, entity),
			})
		}
	}

	for i, step := range scenario.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		switch kind, subject := step.Kind(); kind {
		case harness.StepCreate, harness.StepCreateRelated, harness.StepExists:
			check(where, subject)
		case harness.StepAssociate, harness.StepAssertAssociated:
			check(where, step.Related)
		}
	}
	for i, a := range scenario.Assertions {
		if a.Type == harness.AssertRecordCount {
			check(fmt.Sprintf("assertions[%d]", i), a.Entity)
		}
	}
	return issues
}

func issueFromLoadError(e *LoadError) ValidationIssue {
	issue := ValidationIssue{Code: e.Code, Message: e.Message, Line: e.Line()}
	if e.Pos.IsValid() {
		issue.File = e.Pos.Filename()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid (%d entities)\n", len(result.Entities))
	if result.Scenarios > 0 {
		fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) valid\n", result.Scenarios)
	}
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every validation issue.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		if err := formatter.Failure(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return failed
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range errs {
		writeIssue(w, issue)
	}
	return failed
}

func writeIssue(w io.Writer, issue ValidationIssue) {
	switch {
	case issue.File != "" && issue.Line > 0:
		fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
	case issue.File != "":
		fmt.Fprintln(w, issue.File)
	}
	fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
}
