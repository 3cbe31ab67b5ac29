package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/crmbdd/internal/crm"
)

// Audit attributes maintained by the store.
const (
	CreatedOnAttribute  = "createdon"
	ModifiedOnAttribute = "modifiedon"
	MasterIDAttribute   = "masterid"
	MergedAttribute     = "merged"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &crm.StoreError{Op: op, Err: err}
}

// Create inserts a record and returns its id. A record without an id gets
// one from the IDGenerator. When metadata describes the entity, the primary id
// attribute is filled in, new records start active, and records of entities
// with a business process start at its first stage.
func (s *Store) Create(ctx context.Context, record crm.Entity) (uuid.UUID, error) {
	id := record.ID
	if id == uuid.Nil {
		var err error
		if id, err = s.ids.NewID(); err != nil {
			return uuid.Nil, storeErr("create", fmt.Errorf("generate id: %w", err))
		}
	}

	values := make(map[string]any, len(record.Attributes)+4)
	for k, v := range record.Attributes {
		values[k] = v
	}
	now := s.now().UTC()
	values[CreatedOnAttribute] = now
	values[ModifiedOnAttribute] = now

	var process, firstStage string
	if em := s.entityMetadata(ctx, record.LogicalName); em != nil {
		values[em.PrimaryIDAttribute] = id
		if _, ok := values[StateAttribute]; !ok {
			if state, status, ok := s.statusForState(ctx, record.LogicalName, stateActive); ok {
				values[StateAttribute] = state
				if _, set := values[StatusAttribute]; !set {
					values[StatusAttribute] = status
				}
			}
		}
		if em.Process != nil && len(em.Process.Stages) > 0 {
			process, firstStage = em.Process.Name, em.Process.Stages[0]
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, entity) VALUES (?, ?)`,
			id.String(), record.LogicalName,
		); err != nil {
			return fmt.Errorf("insert %s: %w", record.LogicalName, err)
		}
		if err := writeValues(ctx, tx, id, values); err != nil {
			return err
		}
		if process != "" {
			return writeStage(ctx, tx, id, process, firstStage)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, storeErr("create", err)
	}
	return id, nil
}

// Update writes the record's attributes onto an existing record.
// A nil attribute value clears the attribute.
func (s *Store) Update(ctx context.Context, record crm.Entity) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.update(ctx, tx, record)
	})
	return storeErr("update", err)
}

func (s *Store) update(ctx context.Context, tx execer, record crm.Entity) error {
	if err := requireRecord(ctx, tx, record.Ref()); err != nil {
		return err
	}
	values := make(map[string]any, len(record.Attributes)+1)
	for k, v := range record.Attributes {
		values[k] = v
	}
	values[ModifiedOnAttribute] = s.now().UTC()
	return writeValues(ctx, tx, record.ID, values)
}

// Delete removes a record with its values, associations and stage.
func (s *Store) Delete(ctx context.Context, ref crm.EntityReference) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND entity = ?`,
		ref.ID.String(), ref.LogicalName,
	)
	if err != nil {
		return storeErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete", err)
	}
	if n == 0 {
		return storeErr("delete", fmt.Errorf("%s: %w", ref, ErrNotFound))
	}
	return nil
}

// SetState writes statecode and statuscode together.
func (s *Store) SetState(ctx context.Context, req SetStateRequest) error {
	record := crm.Entity{LogicalName: req.Target.LogicalName, ID: req.Target.ID}
	record.Set(StateAttribute, req.State)
	record.Set(StatusAttribute, req.Status)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.update(ctx, tx, record)
	})
	return storeErr("set state", err)
}

// Associate links ref to every related record through the relationship.
// Links are symmetric and associating twice is a no-op.
func (s *Store) Associate(ctx context.Context, relationship string, ref crm.EntityReference, related []crm.EntityReference) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRecord(ctx, tx, ref); err != nil {
			return err
		}
		for _, r := range related {
			if err := requireRecord(ctx, tx, r); err != nil {
				return err
			}
			for _, pair := range [][2]uuid.UUID{{ref.ID, r.ID}, {r.ID, ref.ID}} {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO associations (relationship, record_id, related_id, seq)
					VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM associations))
					ON CONFLICT DO NOTHING
				`, relationship, pair[0].String(), pair[1].String()); err != nil {
					return fmt.Errorf("insert association: %w", err)
				}
			}
		}
		return nil
	})
	return storeErr("associate", err)
}

// Merge applies UpdateContent to the target, then links the subordinate to
// the target through masterid, flags it merged and deactivates it.
func (s *Store) Merge(ctx context.Context, req MergeRequest) error {
	if req.Target.LogicalName != req.Subordinate.LogicalName {
		return storeErr("merge", fmt.Errorf("cannot merge %s into %s: entity types differ", req.Subordinate, req.Target))
	}
	if req.Target.ID == req.Subordinate.ID {
		return storeErr("merge", fmt.Errorf("cannot merge %s into itself", req.Target))
	}

	sub := crm.Entity{LogicalName: req.Subordinate.LogicalName, ID: req.Subordinate.ID}
	sub.Set(MasterIDAttribute, req.Target)
	sub.Set(MergedAttribute, true)
	if state, status, ok := s.statusForState(ctx, sub.LogicalName, stateInactive); ok {
		sub.Set(StateAttribute, state)
		sub.Set(StatusAttribute, status)
	} else {
		sub.Set(StateAttribute, crm.OptionSetValue{Value: stateInactive})
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		target := crm.Entity{LogicalName: req.Target.LogicalName, ID: req.Target.ID, Attributes: req.UpdateContent.Attributes}
		if err := s.update(ctx, tx, target); err != nil {
			return err
		}
		return s.update(ctx, tx, sub)
	})
	return storeErr("merge", err)
}

// SetActiveStage moves the record's business process to stage.
func (s *Store) SetActiveStage(ctx context.Context, ref crm.EntityReference, process, stage string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRecord(ctx, tx, ref); err != nil {
			return err
		}
		return writeStage(ctx, tx, ref.ID, process, stage)
	})
	return storeErr("set active stage", err)
}

func writeStage(ctx context.Context, tx execer, id uuid.UUID, process, stage string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO process_instances (record_id, process, stage) VALUES (?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET process = excluded.process, stage = excluded.stage
	`, id.String(), process, stage)
	if err != nil {
		return fmt.Errorf("write stage: %w", err)
	}
	return nil
}

func writeValues(ctx context.Context, tx execer, id uuid.UUID, values map[string]any) error {
	for attr, v := range values {
		if v == nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM record_values WHERE record_id = ? AND attribute = ?`,
				id.String(), attr,
			); err != nil {
				return fmt.Errorf("clear %s: %w", attr, err)
			}
			continue
		}
		sv, err := marshalValue(v)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", attr, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO record_values (record_id, attribute, kind, value, target_entity, label)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(record_id, attribute) DO UPDATE SET
				kind = excluded.kind,
				value = excluded.value,
				target_entity = excluded.target_entity,
				label = excluded.label
		`, id.String(), attr, sv.kind, sv.value, sv.target, sv.label); err != nil {
			return fmt.Errorf("write %s: %w", attr, err)
		}
	}
	return nil
}

func requireRecord(ctx context.Context, q execer, ref crm.EntityReference) error {
	var entity string
	err := q.QueryRowContext(ctx, `SELECT entity FROM records WHERE id = ?`, ref.ID.String()).Scan(&entity)
	if err == sql.ErrNoRows || (err == nil && ref.LogicalName != "" && entity != ref.LogicalName) {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup %s: %w", ref, err)
	}
	return nil
}
