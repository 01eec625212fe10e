// Package budget implements a non-blocking, counting-semaphore memory
// admission control with RAII-style permit release. Admission is
// fail-fast: reserve calls never wait, and concurrent reservations observe
// a consistent order via a single atomically-guarded counter.
package budget

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cambium/cambium"
)

// Unbounded is the capacity value that models an unbounded budget: every
// Reserve call succeeds.
const Unbounded int64 = -1

// MemoryBudget is a counting semaphore with a fixed capacity in bytes.
type MemoryBudget struct {
	capacity    int64 // Unbounded (-1) or a non-negative byte capacity
	outstanding int64 // atomically updated
	mu          sync.Mutex
}

// New returns a MemoryBudget with the given capacity in bytes. A negative
// capacity is treated as Unbounded.
func New(capacity int64) *MemoryBudget {
	if capacity < 0 {
		capacity = Unbounded
	}
	return &MemoryBudget{capacity: capacity}
}

// NewUnbounded returns a MemoryBudget that always admits.
func NewUnbounded() *MemoryBudget {
	return &MemoryBudget{capacity: Unbounded}
}

// Capacity returns the budget's fixed capacity, or Unbounded.
func (b *MemoryBudget) Capacity() int64 { return b.capacity }

// Outstanding returns the currently reserved byte count.
func (b *MemoryBudget) Outstanding() int64 { return atomic.LoadInt64(&b.outstanding) }

// Permit is a scoped reservation against a MemoryBudget, released exactly
// once on Release. A Permit is never transferred between execution phases;
// it is held for the lifetime of the intermediate bytes it accounts for.
// Each Permit carries its own ID, usable as a correlation ID in execution
// traces that span multiple reservations.
type Permit struct {
	ID       string
	budget   *MemoryBudget
	size     int64
	released int32
}

// Reserve attempts to admit n bytes. It returns a Permit on success, or a
// *cambium.BudgetExceededError on denial. The check-and-increment is
// serialized under a mutex so concurrent callers observe a consistent
// total: either all succeed (when capacity allows) or some observe
// Exceeded, never an overcommit.
func (b *MemoryBudget) Reserve(n int64) (*Permit, error) {
	if b.capacity == Unbounded {
		atomic.AddInt64(&b.outstanding, n)
		return &Permit{ID: uuid.NewString(), budget: b, size: n}, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := atomic.LoadInt64(&b.outstanding)
	available := b.capacity - current
	if n > available {
		return nil, &cambium.BudgetExceededError{Requested: n, Available: available}
	}
	atomic.AddInt64(&b.outstanding, n)
	return &Permit{ID: uuid.NewString(), budget: b, size: n}, nil
}

// Size returns the number of bytes this permit reserves.
func (p *Permit) Size() int64 { return p.size }

// Release returns the permit's reservation to its budget. Release is
// idempotent: calling it more than once (e.g. once explicitly and once via
// a deferred call on every execution path including failure) only releases
// the bytes once.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	if !atomic.CompareAndSwapInt32(&p.released, 0, 1) {
		return
	}
	atomic.AddInt64(&p.budget.outstanding, -p.size)
}
