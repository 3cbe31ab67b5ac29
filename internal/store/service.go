package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/queryir"
)

// ErrNotFound is wrapped by errors for records that do not exist.
var ErrNotFound = errors.New("record not found")

// Service is the record store as seen by commands.
type Service interface {
	RetrieveMultiple(ctx context.Context, query queryir.Select) ([]crm.Entity, error)
	Retrieve(ctx context.Context, ref crm.EntityReference, columns []string) (crm.Entity, error)
	Create(ctx context.Context, record crm.Entity) (uuid.UUID, error)
	Update(ctx context.Context, record crm.Entity) error
	Delete(ctx context.Context, ref crm.EntityReference) error
	SetState(ctx context.Context, req SetStateRequest) error
	Associate(ctx context.Context, relationship string, ref crm.EntityReference, related []crm.EntityReference) error
	Associations(ctx context.Context, relationship string, ref crm.EntityReference) ([]crm.EntityReference, error)
	Merge(ctx context.Context, req MergeRequest) error
	ActiveStage(ctx context.Context, ref crm.EntityReference) (string, error)
	SetActiveStage(ctx context.Context, ref crm.EntityReference, process, stage string) error
}

// SetStateRequest changes a record's state and status together.
// Both codes always come from the same status option.
type SetStateRequest struct {
	Target crm.EntityReference
	State  crm.OptionSetValue
	Status crm.OptionSetValue
}

// MergeRequest merges Subordinate into Target. UpdateContent, when it has
// attributes, is written onto Target in the same transaction.
type MergeRequest struct {
	Target        crm.EntityReference
	Subordinate   crm.EntityReference
	UpdateContent crm.Entity
}

// IDGenerator creates record ids.
type IDGenerator interface {
	NewID() (uuid.UUID, error)
}

// UUIDv7Generator creates time-ordered random ids.
type UUIDv7Generator struct{}

// NewID returns a new version 7 UUID.
func (UUIDv7Generator) NewID() (uuid.UUID, error) {
	return uuid.NewV7()
}

var _ Service = (*Store)(nil)
