// Package flowtable implements the hash-indexed flow aggregation table
// (spec.md §4.2, component C2): a fixed-size, closed-address table mapping
// a FlowTuple to its FlowRecord, with slot-replacement collision handling
// and idle-timeout aging, generalized from the map+mutex aggregate pattern
// in the teacher's encoder/ipProfile.go (AtomicIPProfileMap).
package flowtable

import (
	"sync"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// DefaultSize is the default number of slots (spec.md §4.2 default).
const DefaultSize = 100000

// DefaultIdleTimeoutSec is the default aging threshold.
const DefaultIdleTimeoutSec = 300

// bucket holds every record currently hashed to one slot. Under the
// spec.md baseline collision policy it never holds more than one record
// (a colliding tuple replaces whatever was there); under chaining it
// grows to hold every live tuple that hashes to the slot.
type bucket struct {
	records []netwatchtypes.FlowRecord
}

func (b *bucket) find(tuple netwatchtypes.FlowTuple) int {
	for i := range b.records {
		if b.records[i].Tuple == tuple {
			return i
		}
	}
	return -1
}

// Table is the flow table. The zero value is invalid; use New.
type Table struct {
	mu          sync.RWMutex
	slots       []bucket
	size        uint64
	idleTimeout int64 // nanoseconds
	chaining    bool
}

// Option configures a Table at construction time.
type Option func(*Table)

// WithChaining switches collision handling from slot-replacement (the
// spec.md baseline) to the allowed chaining alternative: a colliding
// tuple is appended to the slot's bucket instead of evicting the
// tuple already there. The zero-value default (chaining disabled)
// matches the spec baseline exactly.
func WithChaining(enabled bool) Option {
	return func(t *Table) { t.chaining = enabled }
}

// New creates a flow table with the given slot count and idle timeout
// (seconds). size <= 0 selects DefaultSize; idleTimeoutSec <= 0 selects
// DefaultIdleTimeoutSec.
func New(size int, idleTimeoutSec int, opts ...Option) *Table {
	if size <= 0 {
		size = DefaultSize
	}
	if idleTimeoutSec <= 0 {
		idleTimeoutSec = DefaultIdleTimeoutSec
	}
	t := &Table{
		slots:       make([]bucket, size),
		size:        uint64(size),
		idleTimeout: int64(idleTimeoutSec) * 1e9,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Table) index(tuple netwatchtypes.FlowTuple) uint64 {
	return tuple.FNV1a() % t.size
}

// Update upserts the record for tuple: new entries initialize the
// first_* fields, existing entries bump last_*, packets and bytes. An
// update whose non-zero packetID equals the record's LastPacketID is
// rejected, so re-applying the most recent packet is idempotent; earlier
// packet ids are not remembered and are not detected.
func (t *Table) Update(tuple netwatchtypes.FlowTuple, payloadLen int, packetID uint64, tsNS int64, direction netwatchtypes.Direction, tcpFlags netwatchtypes.TCPFlagAccumulator, ifaceID int) bool {
	if payloadLen < 0 {
		return false
	}

	idx := t.index(tuple)

	t.mu.Lock()
	defer t.mu.Unlock()

	b := &t.slots[idx]
	if i := b.find(tuple); i >= 0 {
		rec := &b.records[i]
		if packetID != 0 && packetID == rec.LastPacketID {
			return false // duplicate packet id: reject re-application
		}
		rec.LastPacketID = packetID
		rec.LastSeenNS = tsNS
		rec.Packets++
		rec.Bytes += uint64(payloadLen)
		if direction == netwatchtypes.DirForward {
			rec.BytesFwd += uint64(payloadLen)
		} else {
			rec.BytesRev += uint64(payloadLen)
		}
		rec.TCPFlags |= tcpFlags
		return true
	}

	rec := netwatchtypes.FlowRecord{
		Tuple:         tuple,
		FlowID:        tuple.FNV1a(),
		FirstPacketID: packetID,
		LastPacketID:  packetID,
		FirstSeenNS:   tsNS,
		LastSeenNS:    tsNS,
		Packets:       1,
		Bytes:         uint64(payloadLen),
		TCPFlags:      tcpFlags,
		InterfaceID:   ifaceID,
		State:         netwatchtypes.FlowActive,
	}
	if direction == netwatchtypes.DirForward {
		rec.BytesFwd = uint64(payloadLen)
	} else {
		rec.BytesRev = uint64(payloadLen)
	}

	if t.chaining {
		// real bucket chaining: a colliding tuple lives alongside
		// whatever else already hashed to this slot.
		b.records = append(b.records, rec)
	} else {
		// spec.md baseline: a colliding tuple replaces the slot's
		// sole occupant.
		b.records = []netwatchtypes.FlowRecord{rec}
	}
	return true
}

// Lookup returns the FlowRecord for tuple, or ok=false if absent.
func (t *Table) Lookup(tuple netwatchtypes.FlowTuple) (netwatchtypes.FlowRecord, bool) {
	idx := t.index(tuple)

	t.mu.RLock()
	defer t.mu.RUnlock()

	b := &t.slots[idx]
	if i := b.find(tuple); i >= 0 {
		return b.records[i], true
	}
	return netwatchtypes.FlowRecord{}, false
}

// ScanAll returns a snapshot of every live FlowRecord.
func (t *Table) ScanAll() []netwatchtypes.FlowRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]netwatchtypes.FlowRecord, 0)
	for _, b := range t.slots {
		out = append(out, b.records...)
	}
	return out
}

// AgeOut evicts entries whose LastSeenNS is older than the table's idle
// timeout relative to nowNS, returning the number of evicted flows.
func (t *Table) AgeOut(nowNS int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for i := range t.slots {
		b := &t.slots[i]
		if len(b.records) == 0 {
			continue
		}
		kept := b.records[:0]
		for _, rec := range b.records {
			if nowNS-rec.LastSeenNS > t.idleTimeout {
				evicted++
				continue
			}
			kept = append(kept, rec)
		}
		b.records = kept
	}
	return evicted
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, b := range t.slots {
		n += len(b.records)
	}
	return n
}
