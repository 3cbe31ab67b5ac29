package command

import (
	"context"
	"fmt"

	"github.com/roach88/crmbdd/internal/convert"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/criteria"
	"github.com/roach88/crmbdd/internal/store"
)

// CreateRecord creates a record from converted values and binds the alias.
type CreateRecord struct {
	Entity string
	Alias  string // optional
	Values criteria.Table
}

func (CreateRecord) Name() string { return "CreateRecord" }

func (cmd CreateRecord) args() map[string]any {
	return map[string]any{"entity": cmd.Entity, "alias": cmd.Alias, "values": tableArgs(cmd.Values)}
}

func (cmd CreateRecord) execute(ctx context.Context, c *Context) (crm.EntityReference, error) {
	record, err := criteria.ToEntity(ctx, c.Converter, cmd.Entity, cmd.Values)
	if err != nil {
		return crm.EntityReference{}, err
	}
	return c.create(ctx, record, cmd.Alias)
}

// CreateRelatedRecord creates a record linked to the aliased parent through
// the single lookup whose targets include the parent's entity.
type CreateRelatedRecord struct {
	Entity      string
	Alias       string // optional
	ParentAlias string
	Values      criteria.Table
}

func (CreateRelatedRecord) Name() string { return "CreateRelatedRecord" }

func (cmd CreateRelatedRecord) args() map[string]any {
	return map[string]any{
		"entity": cmd.Entity, "alias": cmd.Alias, "parent": cmd.ParentAlias,
		"values": tableArgs(cmd.Values),
	}
}

func (cmd CreateRelatedRecord) execute(ctx context.Context, c *Context) (crm.EntityReference, error) {
	parent, err := c.resolve(cmd.ParentAlias)
	if err != nil {
		return crm.EntityReference{}, err
	}
	em, err := c.Metadata.Entity(ctx, cmd.Entity)
	if err != nil {
		return crm.EntityReference{}, err
	}
	link, err := em.LookupTo(parent.LogicalName)
	if err != nil {
		return crm.EntityReference{}, &crm.SchemaError{
			Code:    crm.ErrCodeInvalidSchema,
			Entity:  cmd.Entity,
			Message: err.Error(),
		}
	}

	record, err := criteria.ToEntity(ctx, c.Converter, cmd.Entity, cmd.Values)
	if err != nil {
		return crm.EntityReference{}, err
	}
	record.Set(link.LogicalName, parent)
	return c.create(ctx, record, cmd.Alias)
}

// create writes the record and binds the alias to the new reference.
func (c *Context) create(ctx context.Context, record crm.Entity, aliasName string) (crm.EntityReference, error) {
	id, err := c.Records.Create(ctx, record)
	if err != nil {
		return crm.EntityReference{}, err
	}
	ref := crm.EntityReference{LogicalName: record.LogicalName, ID: id}
	if em, err := c.Metadata.Entity(ctx, record.LogicalName); err == nil && em.PrimaryNameAttribute != "" {
		if name, ok := record.Attributes[em.PrimaryNameAttribute].(string); ok {
			ref.Name = name
		}
	}
	if aliasName != "" {
		c.Aliases.Add(aliasName, ref)
	}
	return ref, nil
}

// UpdateRecord writes converted values onto the aliased record.
type UpdateRecord struct {
	Target string
	Values criteria.Table
}

func (UpdateRecord) Name() string { return "UpdateRecord" }

func (cmd UpdateRecord) args() map[string]any {
	return map[string]any{"target": cmd.Target, "values": tableArgs(cmd.Values)}
}

func (cmd UpdateRecord) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Target)
	if err != nil {
		return Void{}, err
	}
	record, err := criteria.ToEntity(ctx, c.Converter, ref.LogicalName, cmd.Values)
	if err != nil {
		return Void{}, err
	}
	record.ID = ref.ID
	return Void{}, c.Records.Update(ctx, record)
}

// DeleteRecord deletes the aliased record. The alias stays bound.
type DeleteRecord struct {
	Alias string
}

func (DeleteRecord) Name() string { return "DeleteRecord" }

func (cmd DeleteRecord) args() map[string]any {
	return map[string]any{"alias": cmd.Alias}
}

func (cmd DeleteRecord) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	return Void{}, c.Records.Delete(ctx, ref)
}

// OwnerAttribute is written by AssignRecord.
const OwnerAttribute = "ownerid"

// AssignRecord sets the owner of the aliased record. The owner is an alias
// or the primary name of a record of the owner attribute's first target.
type AssignRecord struct {
	Alias      string
	OwnerAlias string
}

func (AssignRecord) Name() string { return "AssignRecord" }

func (cmd AssignRecord) args() map[string]any {
	return map[string]any{"alias": cmd.Alias, "owner": cmd.OwnerAlias}
}

func (cmd AssignRecord) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	owner, err := c.Converter.Convert(ctx, ref.LogicalName, OwnerAttribute, cmd.OwnerAlias, convert.Rich)
	if err != nil {
		return Void{}, err
	}
	record := crm.NewEntity(ref.LogicalName)
	record.ID = ref.ID
	record.Set(OwnerAttribute, owner)
	return Void{}, c.Records.Update(ctx, record)
}

// GetRecords returns every record of Entity matching all criteria rows.
type GetRecords struct {
	Entity   string
	Criteria criteria.Table
}

func (GetRecords) Name() string { return "GetRecords" }

func (cmd GetRecords) args() map[string]any {
	return map[string]any{"entity": cmd.Entity, "criteria": tableArgs(cmd.Criteria)}
}

func (cmd GetRecords) execute(ctx context.Context, c *Context) ([]crm.Entity, error) {
	q, err := criteria.BuildQuery(ctx, c.Converter, cmd.Entity, cmd.Criteria)
	if err != nil {
		return nil, err
	}
	return c.Records.RetrieveMultiple(ctx, q)
}

// AssertRecord compares the aliased record with expected values and reports
// every mismatching attribute.
type AssertRecord struct {
	Target   string
	Expected criteria.Table
}

func (AssertRecord) Name() string { return "AssertRecord" }

func (cmd AssertRecord) args() map[string]any {
	return map[string]any{"target": cmd.Target, "expected": tableArgs(cmd.Expected)}
}

func (cmd AssertRecord) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Target)
	if err != nil {
		return Void{}, err
	}
	expected, err := criteria.ToEntity(ctx, c.Converter, ref.LogicalName, cmd.Expected)
	if err != nil {
		return Void{}, err
	}
	columns := uniqueAttributes(cmd.Expected)
	actual, err := c.Records.Retrieve(ctx, ref, columns)
	if err != nil {
		return Void{}, err
	}

	var mismatches []crm.Mismatch
	for _, attr := range columns {
		want := expected.Attributes[attr]
		got, _ := actual.Get(attr)
		if !crm.ValuesEqual(want, got) {
			mismatches = append(mismatches, crm.Mismatch{
				Field:    attr,
				Expected: display(want),
				Actual:   display(got),
			})
		}
	}
	if len(mismatches) > 0 {
		return Void{}, &crm.AssertionFailure{
			Check:      "record",
			Subject:    fmt.Sprintf("%s (%s)", cmd.Target, ref),
			Mismatches: mismatches,
		}
	}
	return Void{}, nil
}

// UpdateStatus moves the aliased record to the status with the given label,
// together with the state that status belongs to.
type UpdateStatus struct {
	Alias  string
	Status string
}

func (UpdateStatus) Name() string { return "UpdateStatus" }

func (cmd UpdateStatus) args() map[string]any {
	return map[string]any{"alias": cmd.Alias, "status": cmd.Status}
}

func (cmd UpdateStatus) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}
	req, err := c.Converter.ToSetState(ctx, ref, cmd.Status)
	if err != nil {
		return Void{}, err
	}
	return Void{}, c.Records.SetState(ctx, req)
}

// MergeRecords merges the subordinate into the target. Fields, when given,
// are converted and written onto the target as part of the merge.
type MergeRecords struct {
	TargetAlias      string
	SubordinateAlias string
	Fields           criteria.Table
}

func (MergeRecords) Name() string { return "MergeRecords" }

func (cmd MergeRecords) args() map[string]any {
	return map[string]any{
		"target": cmd.TargetAlias, "subordinate": cmd.SubordinateAlias,
		"fields": tableArgs(cmd.Fields),
	}
}

func (cmd MergeRecords) execute(ctx context.Context, c *Context) (Void, error) {
	target, err := c.resolve(cmd.TargetAlias)
	if err != nil {
		return Void{}, err
	}
	subordinate, err := c.resolve(cmd.SubordinateAlias)
	if err != nil {
		return Void{}, err
	}
	req := store.MergeRequest{Target: target, Subordinate: subordinate}
	if len(cmd.Fields) > 0 {
		content, err := criteria.ToEntity(ctx, c.Converter, subordinate.LogicalName, cmd.Fields)
		if err != nil {
			return Void{}, err
		}
		content.LogicalName = target.LogicalName
		content.ID = target.ID
		req.UpdateContent = content
	}
	return Void{}, c.Records.Merge(ctx, req)
}

// uniqueAttributes returns table attributes in first-appearance order.
func uniqueAttributes(t criteria.Table) []string {
	seen := make(map[string]bool, len(t))
	out := make([]string, 0, len(t))
	for _, attr := range t.Attributes() {
		if !seen[attr] {
			seen[attr] = true
			out = append(out, attr)
		}
	}
	return out
}

// tableArgs renders a table for the trace.
func tableArgs(t criteria.Table) []any {
	rows := make([]any, len(t))
	for i, r := range t {
		rows[i] = map[string]any{"property": r.Attribute, "value": r.Value}
	}
	return rows
}

// display renders a value for assertion messages.
func display(v any) string {
	switch val := v.(type) {
	case crm.OptionSetValue:
		return val.String()
	case crm.EntityReference:
		if val.Name != "" {
			return val.Name
		}
		return val.String()
	default:
		return crm.FormatValue(v)
	}
}
