// Package ringbuffer implements the capture engine's fixed-size DMA-style
// slab (spec.md §4.1, component C1): a single-producer/multi-consumer
// append-only byte region with wrap-around, backed by an anonymous private
// mmap region on unix platforms (no populate hint is passed) and by a
// plain heap allocation elsewhere.
package ringbuffer

import (
	"sync"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// DefaultSize is the default ring buffer size (256 MiB) per spec.md §4.1.
const DefaultSize = 256 * 1024 * 1024

// Cipher encrypts a payload before it is copied into the slab. A nil
// Cipher means encryption is disabled; this is intentionally declarative
// per spec.md §4.3's set_encryption being "purely declarative" — the core
// only enforces the flag's presence, not cryptographic detail.
type Cipher interface {
	Encrypt(plaintext []byte) []byte
}

// Buffer is the ring buffer. The zero value is invalid; use New.
type Buffer struct {
	mu        sync.Mutex
	slab      []byte
	size      int
	writePos  uint64
	readPos   uint64
	nextID    uint64
	encrypted bool
	cipher    Cipher

	dropped uint64
}

// New allocates a ring buffer of the given size (bytes). size <= 0 selects
// DefaultSize.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{
		slab: allocate(size),
		size: size,
	}
}

// SetEncryption enables or disables the at-rest encryption path. Passing a
// nil cipher with enabled=true is accepted (declarative only, per
// spec.md §4.3) and does not itself encrypt anything.
func (b *Buffer) SetEncryption(enabled bool, cipher Cipher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.encrypted = enabled
	b.cipher = cipher
}

// Append writes bytes into the slab with wrap-around, failing (dropping)
// when the remaining capacity is less than the requested length. On
// success it returns the stream offset of the appended bytes (the
// pre-append write position, as accepted by Reader) and the packet id
// assigned to this append (the post-append write position), per spec.md
// §4.1.
func (b *Buffer) Append(data []byte) (offset uint64, packetID uint64, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.encrypted && b.cipher != nil {
		data = b.cipher.Encrypt(data)
	}

	remaining := uint64(b.size) - (b.writePos - b.readPos)
	if remaining < uint64(len(data)) {
		b.dropped++
		return 0, 0, false
	}

	slot := b.writePos % uint64(b.size)
	n := copy(b.slab[slot:], data)
	if n < len(data) {
		// wrapped: copy the remainder at the start of the slab
		copy(b.slab[0:], data[n:])
	}

	offset = b.writePos
	b.writePos += uint64(len(data))
	b.nextID = b.writePos
	packetID = b.nextID

	return offset, packetID, true
}

// View is a borrowed window into the ring buffer's payload bytes. It is
// valid until a subsequent Prune advances the read position past it.
type View struct {
	buf    *Buffer
	offset uint64
	length int
}

// Reader returns a borrowed view over [offset, offset+length) of
// previously appended data. ok is false if the range has already been
// pruned.
func (b *Buffer) Reader(offset uint64, length int) (View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < b.readPos || offset+uint64(length) > b.writePos {
		return View{}, false
	}
	return View{buf: b, offset: offset, length: length}, true
}

// Bytes materializes the view's contents, handling wrap-around. Callers
// must not retain the returned slice past the owning poll callback.
func (v View) Bytes() []byte {
	if v.buf == nil || v.length == 0 {
		return nil
	}
	out := make([]byte, v.length)
	size := uint64(v.buf.size)
	start := v.offset % size
	n := copy(out, v.buf.slab[start:])
	if n < v.length {
		copy(out[n:], v.buf.slab[0:])
	}
	return out
}

// Prune advances the read position to newReadPos, invalidating any
// outstanding View whose range ends before it.
func (b *Buffer) Prune(newReadPos uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if newReadPos < b.readPos || newReadPos > b.writePos {
		return netwatchtypes.ErrInvalidArgument
	}
	b.readPos = newReadPos
	return nil
}

// WritePos and ReadPos expose the current cursor positions, mainly for
// tests asserting the spec.md §3 invariant write_pos - read_pos <= size.
func (b *Buffer) WritePos() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writePos
}

func (b *Buffer) ReadPos() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readPos
}

// Dropped returns the number of appends that failed due to insufficient
// capacity.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Size returns the slab's fixed capacity in bytes.
func (b *Buffer) Size() int { return b.size }
