package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/queryir"
)

const (
	// AsyncOperationEntity holds background system jobs.
	AsyncOperationEntity = "asyncoperation"
	// RegardingAttribute points a job at the record it works on.
	RegardingAttribute = "regardingobjectid"
)

// TerminalJobStatuses are the asyncoperation status codes of jobs that no
// longer run: waiting, succeeded, failed and canceled.
var TerminalJobStatuses = []any{int64(10), int64(30), int64(31), int64(32)}

var errJobsPending = errors.New("asynchronous jobs pending")

// WaitForAsyncJobs polls until no open system job regards the aliased
// record. Polling stops with a TimeoutError once the context's
// AsyncTimeout has elapsed.
type WaitForAsyncJobs struct {
	Alias string
}

func (WaitForAsyncJobs) Name() string { return "WaitForAsyncJobs" }

func (cmd WaitForAsyncJobs) args() map[string]any {
	return map[string]any{"alias": cmd.Alias}
}

func (cmd WaitForAsyncJobs) execute(ctx context.Context, c *Context) (Void, error) {
	ref, err := c.resolve(cmd.Alias)
	if err != nil {
		return Void{}, err
	}

	start := time.Now()
	backoff := retry.WithMaxDuration(c.AsyncTimeout, retry.NewConstant(c.AsyncPollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		open, err := hasOpenJobs(ctx, c, ref)
		if err != nil {
			return err
		}
		if open {
			return retry.RetryableError(errJobsPending)
		}
		return nil
	})
	if errors.Is(err, errJobsPending) {
		return Void{}, &crm.TimeoutError{
			Subject: fmt.Sprintf("asynchronous jobs of %s", ref),
			Waited:  time.Since(start).Round(time.Millisecond),
		}
	}
	return Void{}, err
}

// hasOpenJobs reports whether any non-terminal job regards ref.
func hasOpenJobs(ctx context.Context, c *Context, ref crm.EntityReference) (bool, error) {
	jobs, err := c.Records.RetrieveMultiple(ctx, OpenJobsQuery(ref))
	if err != nil {
		return false, err
	}
	return len(jobs) > 0, nil
}

// OpenJobsQuery selects at most one open job regarding ref.
func OpenJobsQuery(ref crm.EntityReference) queryir.Select {
	return queryir.Select{
		From: AsyncOperationEntity,
		Filter: queryir.Where(
			queryir.Equals{Field: RegardingAttribute, Value: ref.ID},
			queryir.NotIn{Field: "statuscode", Values: TerminalJobStatuses},
		),
		Columns: []string{},
		Top:     1,
	}
}
