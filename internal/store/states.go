package store

import (
	"context"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
)

// Well-known state attributes.
const (
	StateAttribute  = "statecode"
	StatusAttribute = "statuscode"

	stateActive   int64 = 0
	stateInactive int64 = 1
)

// statusForState returns the first statuscode option belonging to state,
// paired with the state option itself. ok is false when metadata is absent
// or does not describe the entity's state attributes.
func (s *Store) statusForState(ctx context.Context, entity string, state int64) (crm.OptionSetValue, crm.OptionSetValue, bool) {
	em := s.entityMetadata(ctx, entity)
	if em == nil {
		return crm.OptionSetValue{}, crm.OptionSetValue{}, false
	}
	statusAttr, ok := em.Attribute(StatusAttribute)
	if !ok {
		return crm.OptionSetValue{}, crm.OptionSetValue{}, false
	}

	stateValue := crm.OptionSetValue{Value: state}
	if stateAttr, ok := em.Attribute(StateAttribute); ok {
		if opt, ok := findOption(stateAttr, state); ok {
			stateValue.Label = firstLabel(opt)
		}
	}

	for _, opt := range statusAttr.Options {
		if opt.Value == nil || opt.State == nil || *opt.State != state {
			continue
		}
		return stateValue, crm.OptionSetValue{Value: *opt.Value, Label: firstLabel(opt)}, true
	}
	return crm.OptionSetValue{}, crm.OptionSetValue{}, false
}

func findOption(attr *metadata.AttributeMetadata, value int64) (metadata.Option, bool) {
	for _, opt := range attr.Options {
		if opt.Value != nil && *opt.Value == value {
			return opt, true
		}
	}
	return metadata.Option{}, false
}

func firstLabel(opt metadata.Option) string {
	if len(opt.Labels) == 0 {
		return ""
	}
	return opt.Labels[0].Label
}

// entityMetadata returns nil when no provider is configured or the entity is
// not described. The store accepts records of any entity.
func (s *Store) entityMetadata(ctx context.Context, entity string) *metadata.EntityMetadata {
	if s.meta == nil {
		return nil
	}
	em, err := s.meta.Entity(ctx, entity)
	if err != nil {
		return nil
	}
	return em
}
