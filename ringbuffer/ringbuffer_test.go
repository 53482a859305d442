package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	b := New(1024)

	offset, id, ok := b.Append([]byte("hello"))
	require.True(t, ok)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, uint64(5), id)

	view, ok := b.Reader(offset, 5)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), view.Bytes())
}

func TestAppendDropsWhenFull(t *testing.T) {
	b := New(8)

	_, _, ok := b.Append([]byte("12345678"))
	require.True(t, ok)

	_, _, ok = b.Append([]byte("x"))
	assert.False(t, ok)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestWritePosInvariant(t *testing.T) {
	b := New(64)
	for i := 0; i < 100; i++ {
		b.Append([]byte("abcd"))
		if b.WritePos()-b.ReadPos() > uint64(b.Size()) {
			t.Fatalf("write_pos - read_pos exceeded size at iteration %d", i)
		}
		// prune everything we've written so far to keep testing wrap-around
		b.Prune(b.WritePos())
	}
}

func TestPruneInvalidatesView(t *testing.T) {
	b := New(64)
	offset, _, ok := b.Append([]byte("data"))
	require.True(t, ok)

	require.NoError(t, b.Prune(offset + 4))

	_, ok = b.Reader(offset, 4)
	assert.False(t, ok, "view before read_pos should be invalidated")
}
