package dpisession

import (
	"sync"
	"sync/atomic"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// DefaultSlots is HashTable's default slot count, sized independently of
// max sessions since a session table under load wants headroom against
// collisions the same way flowtable.Table does.
const DefaultSlots = 131072

// hashBucket holds every live session hashed to one slot, mirroring
// flowtable's bucket: a linear scan within a slot, chaining on collision.
type hashBucket struct {
	entries []*netwatchtypes.DPISession
}

func (b *hashBucket) find(tuple netwatchtypes.FlowTuple) int {
	for i, s := range b.entries {
		if s.Tuple == tuple {
			return i
		}
	}
	return -1
}

// HashTable is the hash-indexed alternate implementation of SessionTable,
// per spec.md §6's "implementer MAY replace with the same hash-indexed
// scheme as C2" allowance: instead of Table's map+slice, it buckets
// sessions by FlowTuple.FNV1a() the same way flowtable.Table buckets flow
// records, trading Go's built-in map for the same fixed-slot-array
// locality C2 uses. The zero value is invalid; use NewHashTable.
type HashTable struct {
	mu     sync.RWMutex
	slots  []hashBucket
	size   uint64
	max    int
	count  int
	nextID uint64

	dropped uint64
}

// NewHashTable creates a hash-indexed session table with room for max
// concurrent sessions. max <= 0 selects DefaultMaxSessions; the slot
// array is sized independently via DefaultSlots.
func NewHashTable(max int) *HashTable {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &HashTable{
		slots: make([]hashBucket, DefaultSlots),
		size:  uint64(DefaultSlots),
		max:   max,
	}
}

func (t *HashTable) index(tuple netwatchtypes.FlowTuple) uint64 {
	return tuple.FNV1a() % t.size
}

// Lookup returns the session for tuple, if one exists.
func (t *HashTable) Lookup(tuple netwatchtypes.FlowTuple) (*netwatchtypes.DPISession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b := &t.slots[t.index(tuple)]
	if i := b.find(tuple); i >= 0 {
		return b.entries[i], true
	}
	return nil, false
}

// GetOrCreate returns the existing session for tuple, or allocates a new
// one if the table is below its global session cap, per spec.md §4.9's
// allocation-failure semantics.
func (t *HashTable) GetOrCreate(tuple netwatchtypes.FlowTuple, tsNS int64) (*netwatchtypes.DPISession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := &t.slots[t.index(tuple)]
	if i := b.find(tuple); i >= 0 {
		return b.entries[i], true
	}

	if t.count >= t.max {
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
	b.entries = append(b.entries, s)
	t.count++
	return s, true
}

// Terminate removes the session for tuple, freeing its slot entry.
// Returns false if no session existed for tuple (a no-op per spec.md §8).
func (t *HashTable) Terminate(tuple netwatchtypes.FlowTuple) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := &t.slots[t.index(tuple)]
	i := b.find(tuple)
	if i < 0 {
		return false
	}
	last := len(b.entries) - 1
	b.entries[i] = b.entries[last]
	b.entries = b.entries[:last]
	t.count--
	return true
}

// Len returns the number of live sessions.
func (t *HashTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Dropped returns the number of session-creation attempts rejected
// because the table was full.
func (t *HashTable) Dropped() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dropped
}

// All returns a snapshot slice of every live session pointer.
func (t *HashTable) All() []*netwatchtypes.DPISession {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*netwatchtypes.DPISession, 0, t.count)
	for i := range t.slots {
		out = append(out, t.slots[i].entries...)
	}
	return out
}
