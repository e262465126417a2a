// Package node implements the node pool: a bounded-safety,
// effectively-unbounded-capacity, multi-producer/multi-consumer FIFO queue
// of worker addresses with blocking borrow and non-blocking return.
package node

// Node is the host:port address of a worker. Equality is string equality.
type Node string

func (n Node) String() string { return string(n) }
