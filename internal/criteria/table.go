// Package criteria holds tabular step data and turns it into records and
// queries.
package criteria

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Row is one attribute/value pair of a step table. Value is raw step text.
type Row struct {
	Attribute string `yaml:"property" json:"property"`
	Value     string `yaml:"value" json:"value"`
}

// Table is an ordered list of rows. Order matters: for updates the last row
// for an attribute wins.
type Table []Row

// FromPairs builds a table from alternating attribute/value arguments.
func FromPairs(pairs ...string) Table {
	t := make(Table, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		t = append(t, Row{Attribute: pairs[i], Value: pairs[i+1]})
	}
	return t
}

// Attributes returns the attribute names in row order, duplicates included.
func (t Table) Attributes() []string {
	names := make([]string, len(t))
	for i, r := range t {
		names[i] = r.Attribute
	}
	return names
}

// UnmarshalYAML accepts either a mapping, which keeps document order:
//
//	values: {firstname: John, lastname: Doe}
//
// or a sequence of rows, which allows repeated attributes:
//
//	values:
//	  - {property: lastname, value: Doe}
//	  - {property: lastname, value: Smith}
//
// Scalars are kept as written, so "01" stays "01".
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		rows := make(Table, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: value of %q must be a scalar", val.Line, key.Value)
			}
			rows = append(rows, Row{Attribute: key.Value, Value: val.Value})
		}
		*t = rows
		return nil

	case yaml.SequenceNode:
		rows := make(Table, 0, len(node.Content))
		for _, item := range node.Content {
			var r Row
			if err := item.Decode(&r); err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			if r.Attribute == "" {
				return fmt.Errorf("line %d: row without property", item.Line)
			}
			rows = append(rows, r)
		}
		*t = rows
		return nil

	default:
		return fmt.Errorf("line %d: table must be a mapping or a list of rows", node.Line)
	}
}
