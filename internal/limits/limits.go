// Package limits defines the advisory resource limits spec.md sections
// 5 and 7 describe: a monotonic deadline and an allocation accounting
// counter, both polled at BFS iteration boundaries rather than enforced
// through cancellation or exceptions.
package limits

import "time"

// Limits bounds one verification run. A zero value imposes no limit.
type Limits struct {
	TimeoutMS int64
	MemoryMB  int64
}

// Budget tracks a Limits instance against wall-clock time and a caller-
// maintained allocation counter (cspx counts discovered states as the
// allocation unit, at roughly the encoded-state size per entry).
type Budget struct {
	limits    Limits
	deadline  time.Time
	hasDeadline bool
	bytesUsed int64
}

// NewBudget starts a budget's clock.
func NewBudget(l Limits) *Budget {
	b := &Budget{limits: l}
	if l.TimeoutMS > 0 {
		b.deadline = time.Now().Add(time.Duration(l.TimeoutMS) * time.Millisecond)
		b.hasDeadline = true
	}
	return b
}

// AddBytes accounts additional memory usage, e.g. a newly stored
// encoded state.
func (b *Budget) AddBytes(n int) {
	b.bytesUsed += int64(n)
}

// TimedOut reports whether the deadline has passed.
func (b *Budget) TimedOut() bool {
	return b.hasDeadline && time.Now().After(b.deadline)
}

// OutOfMemory reports whether the accounted usage has exceeded the
// configured memory limit.
func (b *Budget) OutOfMemory() bool {
	return b.limits.MemoryMB > 0 && b.bytesUsed > b.limits.MemoryMB*1024*1024
}
