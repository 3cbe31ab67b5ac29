package metadata

import (
	"fmt"
	"sort"
)

// AttributeType is the declared type of an attribute. The converter dispatches
// on it with one handler per supported type.
type AttributeType string

const (
	TypeBoolean          AttributeType = "boolean"
	TypeDateTime         AttributeType = "datetime"
	TypeDouble           AttributeType = "double"
	TypeDecimal          AttributeType = "decimal"
	TypeInteger          AttributeType = "integer"
	TypeString           AttributeType = "string"
	TypeMemo             AttributeType = "memo"
	TypeMoney            AttributeType = "money"
	TypePicklist         AttributeType = "picklist"
	TypeState            AttributeType = "state"
	TypeStatus           AttributeType = "status"
	TypeLookup           AttributeType = "lookup"
	TypeCustomer         AttributeType = "customer"
	TypeOwner            AttributeType = "owner"
	TypeUniqueIdentifier AttributeType = "uniqueidentifier"
	TypeVirtual          AttributeType = "virtual"
)

// ValidTypes lists every type a schema may declare, convertible or not.
var ValidTypes = map[AttributeType]bool{
	TypeBoolean: true, TypeDateTime: true, TypeDouble: true, TypeDecimal: true,
	TypeInteger: true, TypeString: true, TypeMemo: true, TypeMoney: true,
	TypePicklist: true, TypeState: true, TypeStatus: true, TypeLookup: true,
	TypeCustomer: true, TypeOwner: true, TypeUniqueIdentifier: true, TypeVirtual: true,
}

// IsOptionSet reports whether the type carries an option set.
func (t AttributeType) IsOptionSet() bool {
	return t == TypePicklist || t == TypeState || t == TypeStatus
}

// IsReference reports whether the type points at other records.
func (t AttributeType) IsReference() bool {
	return t == TypeLookup || t == TypeCustomer || t == TypeOwner
}

// Label is one localized option label.
type Label struct {
	LanguageCode int    `json:"language_code"`
	Label        string `json:"label"`
}

// Option is one entry of an option set. Value may be absent in metadata
// retrieved from a live system; such options never convert.
type Option struct {
	Value  *int64  `json:"value,omitempty"`
	State  *int64  `json:"state,omitempty"` // status options only: the owning state code
	Labels []Label `json:"labels"`
}

// LabelFor returns the label for the language code, without fallback.
func (o Option) LabelFor(languageCode int) (string, bool) {
	for _, l := range o.Labels {
		if l.LanguageCode == languageCode {
			return l.Label, true
		}
	}
	return "", false
}

// AttributeMetadata describes one attribute of an entity.
type AttributeMetadata struct {
	LogicalName       string        `json:"logical_name"`
	EntityLogicalName string        `json:"entity"`
	Type              AttributeType `json:"type"`
	Options           []Option      `json:"options,omitempty"`
	Targets           []string      `json:"targets,omitempty"`
}

// ProcessDefinition is a business process: a finite ordered list of stages.
type ProcessDefinition struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

// IndexOf returns the position of the stage or -1.
func (p ProcessDefinition) IndexOf(stage string) int {
	for i, s := range p.Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// ManyToManyRelationship links two entities through intersect records.
type ManyToManyRelationship struct {
	SchemaName string `json:"schema_name"`
	Entity1    string `json:"entity1"`
	Entity2    string `json:"entity2"`
}

// Other returns the entity on the opposite side of the relationship.
func (r ManyToManyRelationship) Other(entity string) (string, bool) {
	switch entity {
	case r.Entity1:
		return r.Entity2, true
	case r.Entity2:
		return r.Entity1, true
	}
	return "", false
}

// EntityMetadata describes one entity type.
type EntityMetadata struct {
	LogicalName          string                        `json:"logical_name"`
	PrimaryIDAttribute   string                        `json:"primary_id"`
	PrimaryNameAttribute string                        `json:"primary_name"`
	Attributes           map[string]*AttributeMetadata `json:"attributes"`
	Process              *ProcessDefinition            `json:"process,omitempty"`
	ManyToMany           []ManyToManyRelationship      `json:"many_to_many,omitempty"`
}

// Attribute returns the named attribute.
func (e *EntityMetadata) Attribute(name string) (*AttributeMetadata, bool) {
	a, ok := e.Attributes[name]
	return a, ok
}

// AttributeNames returns attribute names in sorted order.
func (e *EntityMetadata) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for n := range e.Attributes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RelationshipTo returns the many-to-many relationship between this entity
// and other. Exactly one must exist.
func (e *EntityMetadata) RelationshipTo(other string) (ManyToManyRelationship, error) {
	var found []ManyToManyRelationship
	for _, r := range e.ManyToMany {
		if o, ok := r.Other(e.LogicalName); ok && o == other {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return ManyToManyRelationship{}, fmt.Errorf("no many-to-many relationship between %s and %s", e.LogicalName, other)
	default:
		return ManyToManyRelationship{}, fmt.Errorf("%d many-to-many relationships between %s and %s", len(found), e.LogicalName, other)
	}
}

// LookupTo returns the reference attribute whose first targets include the
// given entity. Used to find the parent-linking attribute of a related record.
func (e *EntityMetadata) LookupTo(target string) (*AttributeMetadata, error) {
	var found []*AttributeMetadata
	for _, name := range e.AttributeNames() {
		a := e.Attributes[name]
		if !a.Type.IsReference() || a.Type == TypeOwner {
			continue
		}
		for _, t := range a.Targets {
			if t == target {
				found = append(found, a)
				break
			}
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return nil, fmt.Errorf("%s has no lookup to %s", e.LogicalName, target)
	default:
		return nil, fmt.Errorf("%s has %d lookups to %s", e.LogicalName, len(found), target)
	}
}
