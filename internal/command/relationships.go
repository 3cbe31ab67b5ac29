package command

import (
	"context"
	"fmt"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
)

// relationship returns the many-to-many relationship between the record's
// entity and related.
func (c *Context) relationship(ctx context.Context, ref crm.EntityReference, related string) (metadata.ManyToManyRelationship, error) {
	em, err := c.entity(ctx, ref)
	if err != nil {
		return metadata.ManyToManyRelationship{}, err
	}
	rel, err := em.RelationshipTo(related)
	if err != nil {
		return metadata.ManyToManyRelationship{}, &crm.SchemaError{
			Code:    crm.ErrCodeInvalidSchema,
			Entity:  ref.LogicalName,
			Message: err.Error(),
		}
	}
	return rel, nil
}

// resolveAll resolves each text as an alias or a primary name of entity.
func (c *Context) resolveAll(ctx context.Context, entity string, texts []string) ([]crm.EntityReference, error) {
	refs := make([]crm.EntityReference, 0, len(texts))
	for _, text := range texts {
		ref, err := c.Converter.ResolveReference(ctx, entity, text)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// AssociateRecords links the aliased record to each listed record of
// RelatedEntity through their many-to-many relationship.
type AssociateRecords struct {
	Alias         string
	RelatedEntity string
	Records       []string
}

func (AssociateRecords) Name() string { return "AssociateRecords" }

func (cmd AssociateRecords) args() map[string]any {
	return map[string]any{"alias": cmd.Alias, "related_entity": cmd.RelatedEntity, "records": stringArgs(cmd.Records)}
}

func (cmd AssociateRecords) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	rel, err := c.relationship(ctx, ref, cmd.RelatedEntity)
	if err != nil {
		return Void{}, err
	}
	related, err := c.resolveAll(ctx, cmd.RelatedEntity, cmd.Records)
	if err != nil {
		return Void{}, err
	}
	return Void{}, c.Records.Associate(ctx, rel.SchemaName, ref, related)
}

// AssertAssociations requires the records of RelatedEntity linked to the
// aliased record to be exactly the listed ones.
type AssertAssociations struct {
	Alias         string
	RelatedEntity string
	Records       []string
}

func (AssertAssociations) Name() string { return "AssertAssociations" }

func (cmd AssertAssociations) args() map[string]any {
	return map[string]any{"alias": cmd.Alias, "related_entity": cmd.RelatedEntity, "records": stringArgs(cmd.Records)}
}

func (cmd AssertAssociations) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	rel, err := c.relationship(ctx, ref, cmd.RelatedEntity)
	if err != nil {
		return Void{}, err
	}
	expected, err := c.resolveAll(ctx, cmd.RelatedEntity, cmd.Records)
	if err != nil {
		return Void{}, err
	}
	linked, err := c.Records.Associations(ctx, rel.SchemaName, ref)
	if err != nil {
		return Void{}, err
	}

	actual := make(map[string]bool, len(linked))
	for _, r := range linked {
		if r.LogicalName == cmd.RelatedEntity {
			actual[r.ID.String()] = true
		}
	}
	want := make(map[string]bool, len(expected))

	var mismatches []crm.Mismatch
	for i, r := range expected {
		id := r.ID.String()
		want[id] = true
		if !actual[id] {
			mismatches = append(mismatches, crm.Mismatch{Field: cmd.RelatedEntity, Expected: cmd.Records[i], Actual: "<not associated>"})
		}
	}
	for _, r := range linked {
		if r.LogicalName == cmd.RelatedEntity && !want[r.ID.String()] {
			mismatches = append(mismatches, crm.Mismatch{Field: cmd.RelatedEntity, Expected: "<not associated>", Actual: display(r)})
		}
	}
	if len(mismatches) > 0 {
		return Void{}, &crm.AssertionFailure{
			Check:      "associations",
			Subject:    fmt.Sprintf("%s (%s) via %s", cmd.Alias, ref, rel.SchemaName),
			Mismatches: mismatches,
		}
	}
	return Void{}, nil
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
