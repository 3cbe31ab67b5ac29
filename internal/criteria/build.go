package criteria

import (
	"context"
	"fmt"

	"github.com/roach88/crmbdd/internal/convert"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/queryir"
)

// Converter converts one raw value. *convert.Converter satisfies it.
type Converter interface {
	Convert(ctx context.Context, entity, attribute, raw string, mode convert.Mode) (any, error)
}

// ToEntity converts every row in rich mode into a new record of entity.
// Later rows for the same attribute replace earlier ones.
func ToEntity(ctx context.Context, conv Converter, entity string, table Table) (crm.Entity, error) {
	record := crm.NewEntity(entity)
	for _, row := range table {
		v, err := conv.Convert(ctx, entity, row.Attribute, row.Value, convert.Rich)
		if err != nil {
			return crm.Entity{}, fmt.Errorf("%s.%s: %w", entity, row.Attribute, err)
		}
		record.Set(row.Attribute, v)
	}
	return record, nil
}

// BuildQuery converts every row in primitive mode into an equality
// condition. All conditions are ANDed in row order. Every attribute is
// returned with the results.
func BuildQuery(ctx context.Context, conv Converter, entity string, table Table) (queryir.Select, error) {
	preds := make([]queryir.Predicate, 0, len(table))
	for _, row := range table {
		v, err := conv.Convert(ctx, entity, row.Attribute, row.Value, convert.Primitive)
		if err != nil {
			return queryir.Select{}, fmt.Errorf("%s.%s: %w", entity, row.Attribute, err)
		}
		preds = append(preds, queryir.Equals{Field: row.Attribute, Value: v})
	}
	return queryir.Select{From: entity, Filter: queryir.And{Predicates: preds}}, nil
}
