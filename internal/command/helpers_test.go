package command

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/config"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/criteria"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/store"
	"github.com/roach88/crmbdd/internal/testutil"
	"github.com/roach88/crmbdd/internal/ui"
)

type scenario struct {
	proc    *Processor
	records *store.Store
	forms   *ui.Recorded
	trace   []Record
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AsyncPollInterval = 5 * time.Millisecond
	cfg.AsyncTimeout = 60 * time.Millisecond
	return cfg
}

// newScenario wires a processor over a fresh in-memory store with the
// shared CRM schema.
func newScenario(t *testing.T) *scenario {
	t.Helper()
	src, err := metadata.CompileCUE(testutil.CRMSchema)
	require.NoError(t, err)
	meta := metadata.NewCached(src)

	s, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs(t.Name())),
		store.WithClock(testutil.NewDeterministicClock().Now),
		store.WithMetadata(meta),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sc := &scenario{records: s, forms: ui.NewRecorded()}
	cmdCtx, err := NewContext(meta, s, sc.forms, testConfig())
	require.NoError(t, err)
	sc.proc = NewProcessor(cmdCtx,
		WithLogger(quietLogger()),
		WithObserver(func(r Record) { sc.trace = append(sc.trace, r) }),
	)
	return sc
}

func (sc *scenario) create(t *testing.T, entity, alias string, pairs ...string) crm.EntityReference {
	t.Helper()
	ref, err := Execute(context.Background(), sc.proc, CreateRecord{
		Entity: entity,
		Alias:  alias,
		Values: criteria.FromPairs(pairs...),
	})
	require.NoError(t, err)
	return ref
}

func (sc *scenario) run(t *testing.T, cmd Command[Void]) error {
	t.Helper()
	_, err := Execute(context.Background(), sc.proc, cmd)
	return err
}

func (sc *scenario) retrieve(t *testing.T, ref crm.EntityReference) crm.Entity {
	t.Helper()
	record, err := sc.records.Retrieve(context.Background(), ref, nil)
	require.NoError(t, err)
	return record
}
