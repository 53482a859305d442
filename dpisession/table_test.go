package dpisession

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func tuple(port uint16) netwatchtypes.FlowTuple {
	return netwatchtypes.NewFlowTuple(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), port, 80, netwatchtypes.ProtoTCP, 0)
}

func TestGetOrCreateThenLookup(t *testing.T) {
	tbl := New(4)
	tp := tuple(1111)

	s, ok := tbl.GetOrCreate(tp, 1000)
	require.True(t, ok)
	assert.Equal(t, netwatchtypes.SessionNew, s.State)

	again, ok := tbl.Lookup(tp)
	require.True(t, ok)
	assert.Same(t, s, again)
}

func TestTableRejectsWhenFull(t *testing.T) {
	tbl := New(2)
	tbl.GetOrCreate(tuple(1), 0)
	tbl.GetOrCreate(tuple(2), 0)

	_, ok := tbl.GetOrCreate(tuple(3), 0)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), tbl.Dropped())
}

func TestTerminateCompacts(t *testing.T) {
	tbl := New(4)
	tp := tuple(1)
	tbl.GetOrCreate(tp, 0)
	tbl.GetOrCreate(tuple(2), 0)

	assert.True(t, tbl.Terminate(tp))
	assert.Equal(t, 1, tbl.Len())

	_, ok := tbl.Lookup(tp)
	assert.False(t, ok)
}

func TestTerminateNonexistentIsNoop(t *testing.T) {
	tbl := New(4)
	assert.False(t, tbl.Terminate(tuple(99)))
}
