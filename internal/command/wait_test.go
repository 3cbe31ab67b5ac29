package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/queryir"
	"github.com/roach88/crmbdd/internal/store"
	"github.com/roach88/crmbdd/internal/ui"
)

func TestWaitForAsyncJobs_NoJobs(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "account", "Acme", "name", "Acme")

	assert.NoError(t, sc.run(t, WaitForAsyncJobs{Alias: "Acme"}))
}

func TestWaitForAsyncJobs_PendingJobTimesOut(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "account", "Acme", "name", "Acme")
	sc.create(t, "asyncoperation", "Job", "name", "Recalculate", "regardingobjectid", "Acme")

	start := time.Now()
	err := sc.run(t, WaitForAsyncJobs{Alias: "Acme"})

	var timeout *crm.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.True(t, crm.IsTimeout(err))
	assert.False(t, crm.IsStoreError(err), "a timeout is not a store error")
	assert.GreaterOrEqual(t, time.Since(start), testConfig().AsyncTimeout)
}

func TestWaitForAsyncJobs_TerminalJobsIgnored(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "account", "Acme", "name", "Acme")
	sc.create(t, "asyncoperation", "Done", "name", "Done", "regardingobjectid", "Acme")
	sc.create(t, "asyncoperation", "Parked", "name", "Parked", "regardingobjectid", "Acme")
	require.NoError(t, sc.run(t, UpdateStatus{Alias: "Done", Status: "Succeeded"}))
	require.NoError(t, sc.run(t, UpdateStatus{Alias: "Parked", Status: "Waiting"}))

	assert.NoError(t, sc.run(t, WaitForAsyncJobs{Alias: "Acme"}))
}

func TestWaitForAsyncJobs_OtherRecordsIgnored(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "account", "Acme", "name", "Acme")
	sc.create(t, "account", "Other", "name", "Other")
	sc.create(t, "asyncoperation", "Job", "name", "Recalculate", "regardingobjectid", "Other")

	assert.NoError(t, sc.run(t, WaitForAsyncJobs{Alias: "Acme"}))
}

func TestWaitForAsyncJobs_JobCompletesWhileWaiting(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "account", "Acme", "name", "Acme")
	job := sc.create(t, "asyncoperation", "Job", "name", "Recalculate", "regardingobjectid", "Acme")
	req, err := sc.proc.Context().Converter.ToSetState(context.Background(), job, "Succeeded")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		time.Sleep(15 * time.Millisecond)
		done <- sc.records.SetState(context.Background(), req)
	}()

	err = sc.run(t, WaitForAsyncJobs{Alias: "Acme"})
	require.NoError(t, <-done)
	assert.NoError(t, err)
}

// failingStore fails every query and counts attempts.
type failingStore struct {
	store.Service
	queries int
}

var errBackend = errors.New("backend unavailable")

func (f *failingStore) RetrieveMultiple(context.Context, queryir.Select) ([]crm.Entity, error) {
	f.queries++
	return nil, &crm.StoreError{Op: "retrieve multiple", Err: errBackend}
}

func TestWaitForAsyncJobs_StoreErrorNotRetried(t *testing.T) {
	sc := newScenario(t)
	acme := sc.create(t, "account", "Acme", "name", "Acme")

	failing := &failingStore{Service: sc.records}
	cmdCtx, err := NewContext(sc.proc.Context().Metadata, failing, ui.Unavailable{}, testConfig())
	require.NoError(t, err)
	cmdCtx.Aliases.Add("Acme", acme)
	proc := NewProcessor(cmdCtx, WithLogger(quietLogger()))

	_, err = Execute(context.Background(), proc, WaitForAsyncJobs{Alias: "Acme"})

	assert.True(t, crm.IsStoreError(err))
	assert.False(t, crm.IsTimeout(err))
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, failing.queries)
}

func TestWaitForAsyncJobs_ContextCanceled(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "account", "Acme", "name", "Acme")
	sc.create(t, "asyncoperation", "Job", "name", "Recalculate", "regardingobjectid", "Acme")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Execute(ctx, sc.proc, WaitForAsyncJobs{Alias: "Acme"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenJobsQuery(t *testing.T) {
	ref := crm.EntityReference{LogicalName: "account"}
	q := OpenJobsQuery(ref)

	assert.Equal(t, "asyncoperation", q.From)
	assert.Equal(t, 1, q.Top)
	assert.NotNil(t, q.Columns)
	assert.Empty(t, q.Columns)
	assert.NoError(t, queryir.Validate(q))
}

func TestAssertFormNotifications(t *testing.T) {
	sc := newScenario(t)
	sc.create(t, "contact", "John", "lastname", "Doe")
	warning := crm.FormNotification{Level: "warning", Message: "Email address missing"}
	sc.forms.Show("John", warning)

	assert.NoError(t, sc.run(t, AssertFormNotifications{Alias: "John", Expected: []crm.FormNotification{warning}}))

	err := sc.run(t, AssertFormNotifications{Alias: "John"})
	assert.True(t, crm.IsAssertionFailure(err))
}

func TestAssertFormNotifications_Unavailable(t *testing.T) {
	sc := newScenario(t)
	ref := sc.create(t, "contact", "John", "lastname", "Doe")

	cmdCtx, err := NewContext(sc.proc.Context().Metadata, sc.records, nil, testConfig())
	require.NoError(t, err)
	cmdCtx.Aliases.Add("John", ref)

	_, err = Execute(context.Background(), NewProcessor(cmdCtx, WithLogger(quietLogger())),
		AssertFormNotifications{Alias: "John"})
	assert.ErrorIs(t, err, ui.ErrUnavailable)
}
