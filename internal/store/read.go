package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/queryir"
)

// RetrieveMultiple returns every record matching the query, in creation
// order. Returns an empty slice (not nil) when nothing matches.
func (s *Store) RetrieveMultiple(ctx context.Context, query queryir.Select) ([]crm.Entity, error) {
	if err := queryir.Validate(query); err != nil {
		return nil, storeErr("retrieve multiple", err)
	}
	sqlText, params, err := s.compiler.Compile(query)
	if err != nil {
		return nil, storeErr("retrieve multiple", err)
	}

	ids, err := s.queryIDs(ctx, sqlText, params)
	if err != nil {
		return nil, storeErr("retrieve multiple", err)
	}

	records := make([]crm.Entity, 0, len(ids))
	for _, id := range ids {
		record := crm.Entity{LogicalName: query.From, ID: id, Attributes: map[string]any{}}
		if err := loadValues(ctx, s.db, &record, query.Columns); err != nil {
			return nil, storeErr("retrieve multiple", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Retrieve returns one record. A nil columns slice loads every attribute.
func (s *Store) Retrieve(ctx context.Context, ref crm.EntityReference, columns []string) (crm.Entity, error) {
	if err := requireRecord(ctx, s.db, ref); err != nil {
		return crm.Entity{}, storeErr("retrieve", err)
	}
	record := crm.Entity{LogicalName: ref.LogicalName, ID: ref.ID, Attributes: map[string]any{}}
	if err := loadValues(ctx, s.db, &record, columns); err != nil {
		return crm.Entity{}, storeErr("retrieve", err)
	}
	return record, nil
}

// Associations returns the records linked to ref through the relationship,
// in association order.
func (s *Store) Associations(ctx context.Context, relationship string, ref crm.EntityReference) ([]crm.EntityReference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.related_id, r.entity
		FROM associations a
		JOIN records r ON r.id = a.related_id
		WHERE a.relationship = ? AND a.record_id = ?
		ORDER BY a.seq ASC, a.related_id ASC COLLATE BINARY
	`, relationship, ref.ID.String())
	if err != nil {
		return nil, storeErr("associations", err)
	}
	defer rows.Close()

	refs := []crm.EntityReference{}
	for rows.Next() {
		var idText, entity string
		if err := rows.Scan(&idText, &entity); err != nil {
			return nil, storeErr("associations", err)
		}
		id, err := uuid.Parse(idText)
		if err != nil {
			return nil, storeErr("associations", err)
		}
		refs = append(refs, crm.EntityReference{LogicalName: entity, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("associations", err)
	}
	return refs, nil
}

// ActiveStage returns the record's active business process stage.
func (s *Store) ActiveStage(ctx context.Context, ref crm.EntityReference) (string, error) {
	var stage string
	err := s.db.QueryRowContext(ctx,
		`SELECT stage FROM process_instances WHERE record_id = ?`,
		ref.ID.String(),
	).Scan(&stage)
	if err == sql.ErrNoRows {
		return "", storeErr("active stage", fmt.Errorf("%s has no active process: %w", ref, ErrNotFound))
	}
	if err != nil {
		return "", storeErr("active stage", err)
	}
	return stage, nil
}

func (s *Store) queryIDs(ctx context.Context, sqlText string, params []any) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idText string
		if err := rows.Scan(&idText); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		id, err := uuid.Parse(idText)
		if err != nil {
			return nil, fmt.Errorf("parse record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return ids, nil
}

// loadValues fills record.Attributes. nil columns loads every attribute, an
// empty slice loads none.
func loadValues(ctx context.Context, q execer, record *crm.Entity, columns []string) error {
	if columns != nil && len(columns) == 0 {
		return nil
	}

	query := `SELECT attribute, kind, value, target_entity, label FROM record_values WHERE record_id = ?`
	args := []any{record.ID.String()}
	if len(columns) > 0 {
		query += " AND attribute IN (?" + strings.Repeat(", ?", len(columns)-1) + ")"
		for _, c := range columns {
			args = append(args, c)
		}
	}
	query += " ORDER BY attribute ASC COLLATE BINARY"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var attr string
		var sv storedValue
		if err := rows.Scan(&attr, &sv.kind, &sv.value, &sv.target, &sv.label); err != nil {
			return fmt.Errorf("scan value: %w", err)
		}
		v, err := unmarshalValue(sv)
		if err != nil {
			return fmt.Errorf("decode %s.%s: %w", record.LogicalName, attr, err)
		}
		record.Attributes[attr] = v
	}
	return rows.Err()
}
