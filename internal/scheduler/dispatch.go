package scheduler

import (
	"context"

	"github.com/kestrelsched/remote/internal/job"
	"github.com/kestrelsched/remote/internal/taskchan"
	"github.com/kestrelsched/remote/internal/workerclient"
)

// dispatchUnit is one piece of work waiting on the fan-out channel: either
// a Job or a Molecule request, each carrying its own typed reply slot. The
// loop only ever deals in dispatchUnit; it doesn't need to know which kind
// it forwarded.
type dispatchUnit interface {
	// dispatch posts the request to a worker reachable through c, fulfills
	// its own reply slot (Reply on business success/failure, Fail on
	// transport failure), and reports an outcome/detail pair for the audit
	// trail.
	dispatch(ctx context.Context, c *workerclient.Client) (outcome, detail string)
	jobName() string
}

type jobUnit struct {
	io taskchan.RemoteIO[job.Job, job.ComputationResult]
}

func (u jobUnit) jobName() string { return u.io.Input.Name }

func (u jobUnit) dispatch(ctx context.Context, c *workerclient.Client) (string, string) {
	result, err := c.PostJob(ctx, u.io.Input)
	if err != nil {
		// A transport failure against the worker still yields a typed
		// JobFailed to the original requester rather than an HTTP 500:
		// ComputationResult has a failure variant built for exactly this.
		u.io.Reply(job.Failed(err.Error()))
		return "failed", err.Error()
	}
	u.io.Reply(result)
	if result.IsFailed() {
		return "failed", result.String()
	}
	return "completed", ""
}

type molUnit struct {
	io taskchan.RemoteIO[job.Molecule, job.Computed]
}

func (u molUnit) jobName() string { return "molecule" }

func (u molUnit) dispatch(ctx context.Context, c *workerclient.Client) (string, string) {
	out, err := c.ComputeMolecule(ctx, u.io.Input)
	if err != nil {
		// Computed is an opaque payload with no failure variant of its own,
		// so a transport failure here surfaces as a Send error (HTTP 500 at
		// the control plane) instead of a typed result.
		u.io.Fail(err)
		return "failed", err.Error()
	}
	u.io.Reply(out)
	return "completed", ""
}
