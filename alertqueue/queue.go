// Package alertqueue implements the bounded alert ring (spec.md §4.8,
// component C8): FIFO push/drain with drop-newest overflow and a drop
// counter, guarded by a single mutex standing in for the "spin lock" the
// spec calls for (Go has no portable userspace spinlock; a mutex with no
// blocking syscalls on the uncontended fast path is the idiomatic
// equivalent, as used for similarly short critical sections elsewhere in
// the retrieved pack, e.g. SagerNet-smux's session bookkeeping lock).
package alertqueue

import (
	"sync"
	"sync/atomic"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// DefaultCapacity is the default queue size per spec.md §4.8.
const DefaultCapacity = 1000000

// Queue is the bounded alert ring. The zero value is invalid; use New.
type Queue struct {
	mu       sync.Mutex
	buf      []netwatchtypes.Alert
	head     int // next to drain
	count    int
	capacity int
	nextID   uint64

	dropped uint64
}

// New creates a queue with the given capacity. capacity <= 0 selects
// DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		buf:      make([]netwatchtypes.Alert, capacity),
		capacity: capacity,
	}
}

// Push appends an alert, assigning it the next monotonically increasing
// alert id. On overflow (queue full) the push is a no-op and the drop
// counter increments, per spec.md §4.8's "drop newest" overflow policy.
func (q *Queue) Push(a netwatchtypes.Alert) (alertID uint64, ok bool) {
	id := atomic.AddUint64(&q.nextID, 1)
	a.AlertID = id

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count >= q.capacity {
		q.dropped++
		return id, false
	}

	tail := (q.head + q.count) % q.capacity
	q.buf[tail] = a
	q.count++
	return id, true
}

// Drain copies up to max alerts out in FIFO order. When clear is true the
// drained entries are removed from the queue; otherwise they remain
// visible to a future Drain call.
func (q *Queue) Drain(max int, clear bool) []netwatchtypes.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]netwatchtypes.Alert, n)
	for i := 0; i < n; i++ {
		out[i] = q.buf[(q.head+i)%q.capacity]
	}

	if clear {
		q.head = (q.head + n) % q.capacity
		q.count -= n
	}

	return out
}

// Len returns the number of alerts currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns the number of alerts discarded due to overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
