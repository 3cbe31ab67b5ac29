package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/roach88/crmbdd/internal/command"
	"github.com/roach88/crmbdd/internal/config"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/ir"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/store"
	"github.com/roach88/crmbdd/internal/testutil"
	"github.com/roach88/crmbdd/internal/ui"
)

// Harness executes the steps of one scenario.
type Harness struct {
	proc   *command.Processor
	logger *slog.Logger
}

type runOptions struct {
	cfg    config.Config
	logger *slog.Logger
	meta   metadata.Provider
}

// Option configures Run.
type Option func(*runOptions)

// WithConfig sets the run configuration. Defaults to config.Default().
func WithConfig(cfg config.Config) Option {
	return func(o *runOptions) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger for harness and command logs. Defaults to a
// logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// WithMetadata supplies entity metadata instead of compiling the scenario's
// schema files.
func WithMetadata(p metadata.Provider) Option {
	return func(o *runOptions) {
		o.meta = p
	}
}

// openStore opens the record store for one scenario. A database file is
// recreated, so it holds the records of the last scenario run against it.
func openStore(path string, opts ...store.Option) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return store.Open(path, opts...)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh database with record ids seeded
// from the scenario name and a deterministic clock, so repeated runs
// produce identical traces.
//
// Execution flow:
// 1. Compile the schema and open the store
// 2. Execute steps in order, stopping at the first unexpected failure
// 3. Evaluate assertions unless a step aborted the run
// 4. Compute the trace digest
//
// The returned error covers setup problems only; step and assertion
// failures are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meta := o.meta
	if meta == nil {
		src, err := metadata.LoadFiles(scenario.Schema...)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
		meta = metadata.NewCached(src)
	}

	st, err := openStore(o.cfg.DatabasePath,
		store.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
		store.WithClock(testutil.NewDeterministicClock().Now),
		store.WithMetadata(meta),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	forms := ui.NewRecorded()
	for aliasName, notifications := range scenario.Forms {
		forms.Show(aliasName, notifications...)
	}

	cmdCtx, err := command.NewContext(meta, st, forms, o.cfg)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	h := &Harness{
		proc: command.NewProcessor(cmdCtx,
			command.WithLogger(o.logger),
			command.WithObserver(result.addRecord),
		),
		logger: o.logger.With("scenario", scenario.Name),
	}

	h.executeSteps(ctx, scenario.Steps, result)

	if !result.Aborted {
		actx := &AssertionContext{Ctx: ctx, Converter: cmdCtx.Converter, Records: st}
		for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
			result.AddError(msg)
		}
	}

	digest, err := ir.Digest(ir.DomainTrace, Snapshot(scenario.Name, result))
	if err != nil {
		return nil, fmt.Errorf("failed to digest trace: %w", err)
	}
	result.Digest = digest

	h.logger.Info("scenario finished",
		"pass", result.Pass,
		"commands", len(result.Trace),
		"errors", len(result.Errors),
	)
	return result, nil
}

// executeSteps runs the steps in order. A step failing without a matching
// expect_error, or a step expected to fail that succeeds, aborts the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		kind, subject := step.Kind()
		err := h.executeStep(ctx, step)

		switch {
		case err == nil && step.ExpectError == "":
			h.logger.Debug("step completed", "step", i, "kind", kind, "subject", subject)
			continue

		case err == nil:
			result.AddError(fmt.Sprintf("step %d (%s %s): expected %s error, got success",
				i, kind, subject, step.ExpectError))

		case command.ErrorKind(err) == step.ExpectError:
			h.logger.Debug("step failed as expected", "step", i, "kind", kind, "error_kind", step.ExpectError)
			continue

		case step.ExpectError != "":
			result.AddError(fmt.Sprintf("step %d (%s %s): expected %s error, got %s: %v",
				i, kind, subject, step.ExpectError, command.ErrorKind(err), err))

		default:
			result.AddError(fmt.Sprintf("step %d (%s %s): %v", i, kind, subject, err))
		}

		h.logger.Warn("scenario aborted", "step", i, "kind", kind)
		result.Aborted = true
		return
	}
}

// executeStep translates one step into its command.
func (h *Harness) executeStep(ctx context.Context, s Step) error {
	kind, subject := s.Kind()
	switch kind {
	case StepCreate:
		_, err := command.Execute(ctx, h.proc, command.CreateRecord{
			Entity: subject, Alias: s.Alias, Values: s.Values,
		})
		return err
	case StepCreateRelated:
		_, err := command.Execute(ctx, h.proc, command.CreateRelatedRecord{
			Entity: subject, Alias: s.Alias, ParentAlias: s.Parent, Values: s.Values,
		})
		return err
	case StepExists:
		return h.exists(ctx, subject, s)
	case StepUpdate:
		return run(ctx, h.proc, command.UpdateRecord{Target: subject, Values: s.Values})
	case StepDelete:
		return run(ctx, h.proc, command.DeleteRecord{Alias: subject})
	case StepAssign:
		return run(ctx, h.proc, command.AssignRecord{Alias: subject, OwnerAlias: s.To})
	case StepAssert:
		return run(ctx, h.proc, command.AssertRecord{Target: subject, Expected: s.Values})
	case StepSetStatus:
		return run(ctx, h.proc, command.UpdateStatus{Alias: subject, Status: s.Status})
	case StepMoveStage:
		return run(ctx, h.proc, command.MoveToProcessStage{Alias: subject, Stage: s.Stage})
	case StepNextStage:
		return run(ctx, h.proc, command.MoveToNextProcessStage{Alias: subject})
	case StepAssertStage:
		return run(ctx, h.proc, command.AssertProcessStage{Alias: subject, Stage: s.Stage})
	case StepAssociate:
		return run(ctx, h.proc, command.AssociateRecords{Alias: subject, RelatedEntity: s.Related, Records: s.Records})
	case StepAssertAssociated:
		return run(ctx, h.proc, command.AssertAssociations{Alias: subject, RelatedEntity: s.Related, Records: s.Records})
	case StepMerge:
		return run(ctx, h.proc, command.MergeRecords{TargetAlias: s.Into, SubordinateAlias: subject, Fields: s.Values})
	case StepWaitAsync:
		return run(ctx, h.proc, command.WaitForAsyncJobs{Alias: subject})
	case StepAssertNotifications:
		return run(ctx, h.proc, command.AssertFormNotifications{Alias: subject, Expected: s.Notifications})
	default:
		return fmt.Errorf("unknown step kind %q", kind)
	}
}

func run(ctx context.Context, p *command.Processor, cmd command.Command[command.Void]) error {
	_, err := command.Execute(ctx, p, cmd)
	return err
}

// exists requires exactly one record matching the step values and binds the
// step alias to it.
func (h *Harness) exists(ctx context.Context, entity string, s Step) error {
	records, err := command.Execute(ctx, h.proc, command.GetRecords{Entity: entity, Criteria: s.Values})
	if err != nil {
		return err
	}
	if len(records) != 1 {
		return &crm.AssertionFailure{
			Check:   "records",
			Subject: entity,
			Mismatches: []crm.Mismatch{{
				Field:    "count",
				Expected: "1",
				Actual:   strconv.Itoa(len(records)),
			}},
		}
	}
	if s.Alias == "" {
		return nil
	}

	cmdCtx := h.proc.Context()
	ref := records[0].Ref()
	if em, err := cmdCtx.Metadata.Entity(ctx, entity); err == nil && em.PrimaryNameAttribute != "" {
		if name, ok := records[0].Attributes[em.PrimaryNameAttribute].(string); ok {
			ref.Name = name
		}
	}
	cmdCtx.Aliases.Add(s.Alias, ref)
	return nil
}
