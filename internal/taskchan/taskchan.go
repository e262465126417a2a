// Package taskchan implements the task channel: the sole primitive by
// which an HTTP handler hands a request to the scheduler loop and gets a
// reply back — a bounded request channel paired with a one-shot reply slot
// per request.
package taskchan

import (
	"context"
	"fmt"
)

// RemoteIO pairs a request's input with the one-shot slot its reply must be
// written to exactly once.
type RemoteIO[I any, O any] struct {
	Input I
	reply chan result[O]
}

type result[O any] struct {
	value O
	err   error
}

// Reply fulfills the one-shot reply slot with a successful output. Calling
// it twice (including after Fail) is a logic error and panics.
func (r RemoteIO[I, O]) Reply(output O) {
	r.fulfill(result[O]{value: output})
}

// Fail fulfills the one-shot reply slot with a transport-level failure,
// causing the waiting Send to return (zero value, err) rather than an
// output. Used where the output type has no business-level failure variant
// of its own (unlike job.ComputationResult, which encodes failure as data).
func (r RemoteIO[I, O]) Fail(err error) {
	r.fulfill(result[O]{err: err})
}

// fulfill writes res into the reply slot and closes it, so any later
// Reply or Fail on the same slot hits the closed channel and panics.
func (r RemoteIO[I, O]) fulfill(res result[O]) {
	defer func() {
		if recover() != nil {
			panic("taskchan: reply slot fulfilled twice")
		}
	}()
	r.reply <- res
	close(r.reply)
}

// Channel is the generic request/reply bridge. Create with New, then use
// Send from any number of goroutines and Recv from the single owning
// scheduler loop.
type Channel[I any, O any] struct {
	requests chan RemoteIO[I, O]
}

// New creates a task channel with the given request-buffer capacity.
// Capacity 1 gives the strictest back-pressure; callers may raise it to
// allow more concurrent in-flight sends before Send starts blocking.
func New[I any, O any](capacity int) *Channel[I, O] {
	return &Channel[I, O]{requests: make(chan RemoteIO[I, O], capacity)}
}

// Sender is the cloneable, concurrency-safe client half of a Channel: any
// number of goroutines may hold a Sender for the same Channel.
type Sender[I any, O any] struct {
	requests chan RemoteIO[I, O]
}

// Receiver is the single-owner server half of a Channel.
type Receiver[I any, O any] struct {
	requests chan RemoteIO[I, O]
}

// Split returns independent (Receiver, Sender) halves of ch.
func Split[I any, O any](ch *Channel[I, O]) (*Receiver[I, O], Sender[I, O]) {
	return &Receiver[I, O]{requests: ch.requests}, Sender[I, O]{requests: ch.requests}
}

// Send enqueues input and blocks until a reply is written to its one-shot
// slot or ctx is done, whichever happens first. Sending on a Channel whose
// Receiver has been closed panics (see Close).
func (s Sender[I, O]) Send(ctx context.Context, input I) (O, error) {
	var zero O
	reply := make(chan result[O], 1)
	req := RemoteIO[I, O]{Input: input, reply: reply}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res, ok := <-reply:
		if !ok {
			return zero, fmt.Errorf("taskchan: reply slot dropped without a reply")
		}
		if res.err != nil {
			return zero, res.err
		}
		return res.value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Recv yields the next request, or ok=false once Close has been called and
// every buffered request has been drained.
func (r *Receiver[I, O]) Recv() (RemoteIO[I, O], bool) {
	req, ok := <-r.requests
	return req, ok
}

// C exposes the underlying request channel for use in a select statement
// alongside other event sources (the scheduler loop's four-way select).
func (r *Receiver[I, O]) C() <-chan RemoteIO[I, O] {
	return r.requests
}

// Close closes the underlying request channel. Callers must ensure no
// Sender is mid-Send when Close runs, or the send panics — in practice this
// means Close is only safe once the owning HTTP server has stopped
// accepting new requests.
func (r *Receiver[I, O]) Close() {
	close(r.requests)
}
