package convert

import (
	"context"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/queryir"
)

// ResolveLookup resolves text for a reference attribute. Only the first
// declared target entity is searched.
func (c *Converter) ResolveLookup(ctx context.Context, attr *metadata.AttributeMetadata, text string) (crm.EntityReference, error) {
	if ref := c.aliases.GetOrNil(text); ref != nil {
		return *ref, nil
	}
	if len(attr.Targets) == 0 {
		return crm.EntityReference{}, &crm.SchemaError{
			Code:      crm.ErrCodeInvalidSchema,
			Entity:    attr.EntityLogicalName,
			Attribute: attr.LogicalName,
			Message:   "reference attribute has no targets",
		}
	}
	return c.lookupByName(ctx, attr.Targets[0], text)
}

// ResolveReference resolves text to a record of entity: an alias when one is
// bound, otherwise the single record whose primary name equals text.
func (c *Converter) ResolveReference(ctx context.Context, entity, text string) (crm.EntityReference, error) {
	if ref := c.aliases.GetOrNil(text); ref != nil {
		return *ref, nil
	}
	return c.lookupByName(ctx, entity, text)
}

func (c *Converter) lookupByName(ctx context.Context, entity, text string) (crm.EntityReference, error) {
	em, err := c.meta.Entity(ctx, entity)
	if err != nil {
		return crm.EntityReference{}, err
	}

	records, err := c.records.RetrieveMultiple(ctx, queryir.Select{
		From:    entity,
		Filter:  queryir.Equals{Field: em.PrimaryNameAttribute, Value: text},
		Columns: []string{},
	})
	if err != nil {
		return crm.EntityReference{}, err
	}
	if len(records) != 1 {
		return crm.EntityReference{}, &crm.ReferenceResolutionError{
			Entity:      entity,
			PrimaryName: em.PrimaryNameAttribute,
			Text:        text,
			Count:       len(records),
		}
	}
	return crm.EntityReference{LogicalName: entity, ID: records[0].ID, Name: text}, nil
}
