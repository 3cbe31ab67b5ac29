package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/testutil"
)

// createTestStore creates a file-backed store with reproducible ids and the
// shared CRM schema.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	src, err := metadata.CompileCUE(testutil.CRMSchema)
	if err != nil {
		t.Fatalf("CompileCUE() failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs(t.Name())),
		WithClock(testutil.NewDeterministicClock().Now),
		WithMetadata(metadata.NewCached(src)),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with the given attributes.
func createTestRecord(t *testing.T, s *Store, entity string, attrs map[string]any) crm.EntityReference {
	t.Helper()
	record := crm.NewEntity(entity)
	for k, v := range attrs {
		record.Set(k, v)
	}
	id, err := s.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", entity, err)
	}
	if id == uuid.Nil {
		t.Fatalf("Create(%s) returned nil id", entity)
	}
	return crm.EntityReference{LogicalName: entity, ID: id}
}
