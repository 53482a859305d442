// Package dpisession implements the DPI session table (spec.md §4.5,
// component C5): per-5-tuple session state kept in a dense slice with a
// tuple-to-index map for lookup, sized to max_concurrent_sessions,
// rejecting new sessions when full. Grounded on the map+mutex "getFlow" pattern in
// other_examples/8d5dd393_ooni-netem__dpiengine.go.go, adapted to the
// spec's fixed-capacity, reject-on-full array semantics.
package dpisession

import (
	"sync"
	"sync/atomic"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// DefaultMaxSessions is a reasonable baseline capacity; spec.md leaves the
// exact default to the implementer ("max_concurrent_sessions").
const DefaultMaxSessions = 65536

// SessionTable is the interface Table and HashTable both satisfy, per
// spec.md §6's "implementer MAY replace with the same hash-indexed
// scheme as C2" allowance: dpi.Engine is written against this interface
// so either backs it interchangeably.
type SessionTable interface {
	Lookup(tuple netwatchtypes.FlowTuple) (*netwatchtypes.DPISession, bool)
	GetOrCreate(tuple netwatchtypes.FlowTuple, tsNS int64) (*netwatchtypes.DPISession, bool)
	Terminate(tuple netwatchtypes.FlowTuple) bool
	Len() int
	Dropped() uint64
	All() []*netwatchtypes.DPISession
}

// DefaultReassemblyCapacity matches spec.md §3's 16 MiB default.
const DefaultReassemblyCapacity = netwatchtypes.DefaultReassemblyBufferSize

var _ SessionTable = (*Table)(nil)
var _ SessionTable = (*HashTable)(nil)

// Table is the DPI session table. The zero value is invalid; use New.
type Table struct {
	mu       sync.RWMutex
	sessions []*netwatchtypes.DPISession
	byTuple  map[netwatchtypes.FlowTuple]int // tuple -> index into sessions
	max      int
	nextID   uint64

	dropped uint64
}

// New creates a session table with room for max concurrent sessions.
// max <= 0 selects DefaultMaxSessions.
func New(max int) *Table {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Table{
		sessions: make([]*netwatchtypes.DPISession, 0, max),
		byTuple:  make(map[netwatchtypes.FlowTuple]int, max),
		max:      max,
	}
}

// Lookup returns the session for tuple, if one exists.
func (t *Table) Lookup(tuple netwatchtypes.FlowTuple) (*netwatchtypes.DPISession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.byTuple[tuple]
	if !ok {
		return nil, false
	}
	return t.sessions[idx], true
}

// GetOrCreate returns the existing session for tuple, or allocates a new
// one if the table has room. ok is false when the table is full (the
// caller should increment its own drop counter per spec.md §4.9's
// allocation-failure semantics); Table also tracks this internally via
// Dropped().
func (t *Table) GetOrCreate(tuple netwatchtypes.FlowTuple, tsNS int64) (*netwatchtypes.DPISession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx, ok := t.byTuple[tuple]; ok {
		return t.sessions[idx], true
	}

	if len(t.sessions) >= t.max {
		t.dropped++
		return nil, false
	}

	id := atomic.AddUint64(&t.nextID, 1)
	s := &netwatchtypes.DPISession{
		SessionID:   id,
		Tuple:       tuple,
		State:       netwatchtypes.SessionNew,
		FwdBuffer:   netwatchtypes.NewRingSlice(DefaultReassemblyCapacity),
		RevBuffer:   netwatchtypes.NewRingSlice(DefaultReassemblyCapacity),
		FirstSeenNS: tsNS,
		LastSeenNS:  tsNS,
	}

	t.byTuple[tuple] = len(t.sessions)
	t.sessions = append(t.sessions, s)
	return s, true
}

// Terminate removes the session for tuple, freeing its reassembly buffers
// and parsed protocol record, and compacts the backing array to preserve
// density. Returns false if no session existed for tuple (a no-op per
// spec.md §8).
func (t *Table) Terminate(tuple netwatchtypes.FlowTuple) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byTuple[tuple]
	if !ok {
		return false
	}

	last := len(t.sessions) - 1
	moved := t.sessions[last]
	t.sessions[idx] = moved
	t.sessions = t.sessions[:last]
	delete(t.byTuple, tuple)
	if idx != last {
		t.byTuple[moved.Tuple] = idx
	}
	return true
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Dropped returns the number of session-creation attempts rejected
// because the table was full.
func (t *Table) Dropped() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// All returns a snapshot slice of every live session pointer.
func (t *Table) All() []*netwatchtypes.DPISession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*netwatchtypes.DPISession, len(t.sessions))
	copy(out, t.sessions)
	return out
}
