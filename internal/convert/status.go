package convert

import (
	"context"
	"fmt"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/store"
)

// ToSetState builds the request that moves target to the status labelled
// label. State and status always come from the same status option.
func (c *Converter) ToSetState(ctx context.Context, target crm.EntityReference, label string) (store.SetStateRequest, error) {
	statusAttr, err := c.meta.Attribute(ctx, target.LogicalName, store.StatusAttribute)
	if err != nil {
		return store.SetStateRequest{}, err
	}
	opt, statusLabel, err := c.findOption(statusAttr, label)
	if err != nil {
		return store.SetStateRequest{}, err
	}
	if opt.State == nil {
		return store.SetStateRequest{}, &crm.SchemaError{
			Code:      crm.ErrCodeInvalidSchema,
			Entity:    target.LogicalName,
			Attribute: store.StatusAttribute,
			Message:   fmt.Sprintf("status %q does not declare its state", statusLabel),
		}
	}

	state := crm.OptionSetValue{Value: *opt.State}
	if stateAttr, err := c.meta.Attribute(ctx, target.LogicalName, store.StateAttribute); err == nil {
		for _, so := range stateAttr.Options {
			if so.Value != nil && *so.Value == *opt.State {
				state.Label, _ = so.LabelFor(c.opts.LanguageCode)
				break
			}
		}
	}

	return store.SetStateRequest{
		Target: target,
		State:  state,
		Status: crm.OptionSetValue{Value: *opt.Value, Label: statusLabel},
	}, nil
}
