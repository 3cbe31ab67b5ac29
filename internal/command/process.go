package command

import (
	"context"
	"fmt"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
)

// processOf returns the business process of the record's entity.
func (c *Context) processOf(ctx context.Context, ref crm.EntityReference) (*metadata.ProcessDefinition, error) {
	em, err := c.entity(ctx, ref)
	if err != nil {
		return nil, err
	}
	if em.Process == nil || len(em.Process.Stages) == 0 {
		return nil, &crm.StageError{Record: ref, Message: "entity has no business process"}
	}
	return em.Process, nil
}

// stageIndex returns the position of stage, failing for unknown stages.
func stageIndex(ref crm.EntityReference, p *metadata.ProcessDefinition, stage string) (int, error) {
	idx := p.IndexOf(stage)
	if idx < 0 {
		return -1, &crm.StageError{
			Record:  ref,
			Process: p.Name,
			Message: fmt.Sprintf("unknown stage %q", stage),
		}
	}
	return idx, nil
}

// AssertProcessStage checks the active stage of the aliased record.
type AssertProcessStage struct {
	Alias string
	Stage string
}

func (AssertProcessStage) Name() string { return "AssertProcessStage" }

func (cmd AssertProcessStage) args() map[string]any {
	return map[string]any{"alias": cmd.Alias, "stage": cmd.Stage}
}

func (cmd AssertProcessStage) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	p, err := c.processOf(ctx, ref)
	if err != nil {
		return Void{}, err
	}
	if _, err := stageIndex(ref, p, cmd.Stage); err != nil {
		return Void{}, err
	}
	active, err := c.Records.ActiveStage(ctx, ref)
	if err != nil {
		return Void{}, err
	}
	if active != cmd.Stage {
		return Void{}, &crm.AssertionFailure{
			Check:   "process_stage",
			Subject: fmt.Sprintf("%s (%s)", cmd.Alias, ref),
			Mismatches: []crm.Mismatch{
				{Field: p.Name, Expected: cmd.Stage, Actual: active},
			},
		}
	}
	return Void{}, nil
}

// MoveToProcessStage makes Stage the active stage of the aliased record.
type MoveToProcessStage struct {
	Alias string
	Stage string
}

func (MoveToProcessStage) Name() string { return "MoveToProcessStage" }

func (cmd MoveToProcessStage) args() map[string]any {
	return map[string]any{"alias": cmd.Alias, "stage": cmd.Stage}
}

func (cmd MoveToProcessStage) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	p, err := c.processOf(ctx, ref)
	if err != nil {
		return Void{}, err
	}
	if _, err := stageIndex(ref, p, cmd.Stage); err != nil {
		return Void{}, err
	}
	return Void{}, c.Records.SetActiveStage(ctx, ref, p.Name, cmd.Stage)
}

// MoveToNextProcessStage advances the aliased record by one stage. There is
// no stage after the final one.
type MoveToNextProcessStage struct {
	Alias string
}

func (MoveToNextProcessStage) Name() string { return "MoveToNextProcessStage" }

func (cmd MoveToNextProcessStage) args() map[string]any {
	return map[string]any{"alias": cmd.Alias}
}

func (cmd MoveToNextProcessStage) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	p, err := c.processOf(ctx, ref)
	if err != nil {
		return Void{}, err
	}
	active, err := c.Records.ActiveStage(ctx, ref)
	if err != nil {
		return Void{}, err
	}
	idx, err := stageIndex(ref, p, active)
	if err != nil {
		return Void{}, err
	}
	if idx == len(p.Stages)-1 {
		return Void{}, &crm.StageError{
			Record:  ref,
			Process: p.Name,
			Message: fmt.Sprintf("%q is the final stage", active),
		}
	}
	return Void{}, c.Records.SetActiveStage(ctx, ref, p.Name, p.Stages[idx+1])
}
