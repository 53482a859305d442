package alertqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func TestPushDrainPreservesFIFOOrder(t *testing.T) {
	q := New(4)
	for i := 0; i < 3; i++ {
		_, ok := q.Push(netwatchtypes.Alert{Message: "a"})
		require.True(t, ok)
	}

	out := q.Drain(10, true)
	require.Len(t, out, 3)
	assert.Equal(t, uint64(1), out[0].AlertID)
	assert.Equal(t, uint64(2), out[1].AlertID)
	assert.Equal(t, uint64(3), out[2].AlertID)
	assert.Equal(t, 0, q.Len())
}

func TestDrainWithoutClearLeavesEntries(t *testing.T) {
	q := New(4)
	q.Push(netwatchtypes.Alert{})
	q.Push(netwatchtypes.Alert{})

	first := q.Drain(10, false)
	require.Len(t, first, 2)
	assert.Equal(t, 2, q.Len())

	second := q.Drain(10, true)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, q.Len())
}

func TestPushDropsNewestOnOverflow(t *testing.T) {
	q := New(2)
	_, ok1 := q.Push(netwatchtypes.Alert{})
	_, ok2 := q.Push(netwatchtypes.Alert{})
	_, ok3 := q.Push(netwatchtypes.Alert{})

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3, "third push must be dropped once the queue is full")
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 2, q.Len())
}

func TestDrainRespectsMax(t *testing.T) {
	q := New(10)
	for i := 0; i < 5; i++ {
		q.Push(netwatchtypes.Alert{})
	}

	out := q.Drain(3, true)
	assert.Len(t, out, 3)
	assert.Equal(t, 2, q.Len())
}

func TestAlertIDsNeverReusedAcrossOverflow(t *testing.T) {
	q := New(1)
	id1, ok1 := q.Push(netwatchtypes.Alert{})
	require.True(t, ok1)
	_, ok2 := q.Push(netwatchtypes.Alert{}) // dropped, but still consumes an id
	require.False(t, ok2)

	q.Drain(1, true)
	id3, ok3 := q.Push(netwatchtypes.Alert{})
	require.True(t, ok3)
	assert.Greater(t, id3, id1)
}
