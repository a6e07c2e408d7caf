// Package pidalloc hands out process identifiers for the scheduler core.
//
// It is adapted from a Linux-like wraparound allocator originally built for
// supervising real OS processes: here the pid space is unbounded and
// nothing is ever released back to the pool, matching the simulator's rule
// that a pid, once assigned, is never reassigned.
package pidalloc

import "sync"

// Allocator hands out strictly increasing pids starting at 1.
type Allocator struct {
	mu   sync.Mutex
	next int64
}

// New returns an allocator whose first Alloc() call returns pid 1.
func New() *Allocator {
	return &Allocator{next: 1}
}

// Alloc returns the next unused pid.
func (a *Allocator) Alloc() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.next
	a.next++
	return p
}
