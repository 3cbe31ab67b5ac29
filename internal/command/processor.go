package command

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/crmbdd/internal/crm"
)

const instrumentationName = "github.com/roach88/crmbdd/internal/command"

// Record is the trace entry of one executed command.
type Record struct {
	Seq     int64          `json:"seq"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Kind    string         `json:"kind,omitempty"` // see ErrorKind
}

// Observer receives a Record after every command, successful or not.
type Observer func(Record)

// Processor executes commands against one scenario Context.
//
// Thread-safety: a Processor serves a single scenario and must be driven
// from one goroutine.
type Processor struct {
	scenario  *Context
	clock     *Clock
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(t trace.Tracer) ProcessorOption {
	return func(p *Processor) {
		p.tracer = t
	}
}

// WithObserver registers an observer called after every command.
func WithObserver(o Observer) ProcessorOption {
	return func(p *Processor) {
		p.observers = append(p.observers, o)
	}
}

// NewProcessor creates a Processor for the scenario.
func NewProcessor(scenario *Context, opts ...ProcessorOption) *Processor {
	p := &Processor{
		scenario: scenario,
		clock:    NewClock(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Context returns the scenario context.
func (p *Processor) Context() *Context {
	return p.scenario
}

// Command is one scenario step. The interface is sealed: only this package
// defines commands.
type Command[R any] interface {
	// Name is the command's stable name, used in logs and traces.
	Name() string

	args() map[string]any
	execute(ctx context.Context, c *Context) (R, error)
}

// Void is the result of commands that return nothing.
type Void struct{}

// summarize renders the trace-relevant part of a command result.
func summarize(result any) map[string]any {
	switch r := result.(type) {
	case crm.EntityReference:
		return map[string]any{"entity": r.LogicalName, "id": r.ID.String()}
	case []crm.Entity:
		return map[string]any{"count": len(r)}
	default:
		return nil
	}
}

// Execute runs cmd and returns its result.
func Execute[R any](ctx context.Context, p *Processor, cmd Command[R]) (R, error) {
	seq := p.clock.Next()
	name := cmd.Name()
	args := cmd.args()

	ctx, span := p.tracer.Start(ctx, "command."+name,
		trace.WithAttributes(
			attribute.String("crmbdd.command", name),
			attribute.Int64("crmbdd.seq", seq),
		))
	defer span.End()

	start := time.Now()
	result, err := cmd.execute(ctx, p.scenario)
	elapsed := time.Since(start)

	rec := Record{Seq: seq, Command: name, Args: args}
	if err == nil {
		rec.Result = summarize(result)
	}

	if err != nil {
		rec.Error = err.Error()
		rec.Kind = ErrorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("command failed",
			"seq", seq,
			"command", name,
			"duration", elapsed,
			"kind", rec.Kind,
			"error", err,
		)
	} else {
		p.logger.Info("command executed",
			"seq", seq,
			"command", name,
			"duration", elapsed,
		)
	}

	for _, o := range p.observers {
		o(rec)
	}
	return result, err
}
