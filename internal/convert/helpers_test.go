package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/alias"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/queryir"
	"github.com/roach88/crmbdd/internal/store"
	"github.com/roach88/crmbdd/internal/testutil"
)

// countingStore counts RetrieveMultiple round trips.
type countingStore struct {
	*store.Store
	queries int
}

func (c *countingStore) RetrieveMultiple(ctx context.Context, q queryir.Select) ([]crm.Entity, error) {
	c.queries++
	return c.Store.RetrieveMultiple(ctx, q)
}

type fixture struct {
	conv    *Converter
	records *countingStore
	aliases *alias.Cache
	meta    metadata.Provider
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	src, err := metadata.CompileCUE(testutil.CRMSchema)
	require.NoError(t, err)
	meta := metadata.NewCached(src)

	s, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs(t.Name())),
		store.WithMetadata(meta),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	records := &countingStore{Store: s}
	aliases := alias.New()
	return &fixture{
		conv:    New(meta, records, aliases, opts),
		records: records,
		aliases: aliases,
		meta:    meta,
	}
}

func (f *fixture) create(t *testing.T, entity string, attrs map[string]any) crm.EntityReference {
	t.Helper()
	record := crm.NewEntity(entity)
	for k, v := range attrs {
		record.Set(k, v)
	}
	id, err := f.records.Create(context.Background(), record)
	require.NoError(t, err)
	return crm.EntityReference{LogicalName: entity, ID: id}
}
