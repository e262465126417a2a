package node

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrBorrowCanceled is returned by Borrow when its context is done before a
// node became available.
var ErrBorrowCanceled = errors.New("node: borrow canceled")

// Pool is a thread-safe FIFO queue of idle Nodes. Every Node is either idle
// in the pool or checked out to exactly one in-flight dispatch. Return
// never blocks; Borrow blocks until a node is available or its context is
// done.
type Pool struct {
	mu      sync.Mutex
	queue   []Node
	waiters []chan Node
}

// New constructs a pool pre-populated with the given nodes.
func New(initial []Node) *Pool {
	p := &Pool{queue: append([]Node(nil), initial...)}
	log.Printf("node pool: starting with %d node(s)", len(p.queue))
	return p
}

// Borrow removes and returns the next idle node, blocking until one is
// available. If ctx is done first, Borrow returns ErrBorrowCanceled without
// ever having taken a node — this is what lets the scheduler loop honor
// Abort on an empty pool instead of blocking forever.
func (p *Pool) Borrow(ctx context.Context) (Node, error) {
	p.mu.Lock()
	if len(p.queue) > 0 {
		n := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		log.Printf("node pool: borrowed %s", n)
		return n, nil
	}
	w := make(chan Node, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case n := <-w:
		log.Printf("node pool: borrowed %s", n)
		return n, nil
	case <-ctx.Done():
		if p.cancelWaiter(w) {
			return "", ErrBorrowCanceled
		}
		// A Return already took our waiter off the list concurrently with
		// the cancellation, so it has handed (or is about to hand) us a
		// node; wait for it and put it straight back rather than dropping
		// it on the floor and losing a live node.
		p.Return(<-w)
		return "", ErrBorrowCanceled
	}
}

// cancelWaiter removes w from the waiter list if it is still pending.
// Returns true if it removed it (no node was ever handed to it).
func (p *Pool) cancelWaiter(w chan Node) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ww := range p.waiters {
		if ww == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Return places a node back into the pool, or hands it directly to the
// longest-waiting Borrow call if one is blocked. Non-blocking: the channel
// handoff is always into a buffered, 1-capacity channel.
func (p *Pool) Return(n Node) {
	p.mu.Lock()
	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		log.Printf("node pool: returned %s directly to a waiting borrower", n)
		w <- n
		return
	}
	p.queue = append(p.queue, n)
	p.mu.Unlock()
	log.Printf("node pool: returned %s", n)
}

// Len returns the number of idle nodes currently in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
