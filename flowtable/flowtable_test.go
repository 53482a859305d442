package flowtable

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func sampleTuple() netwatchtypes.FlowTuple {
	return netwatchtypes.NewFlowTuple(
		net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"),
		52344, 80, netwatchtypes.ProtoTCP, 0)
}

func TestUpdateAggregatesThreePackets(t *testing.T) {
	tbl := New(16, 300)
	tuple := sampleTuple()

	require.True(t, tbl.Update(tuple, 100, 1, 1000, netwatchtypes.DirForward, 0, 0))
	require.True(t, tbl.Update(tuple, 200, 2, 1001, netwatchtypes.DirForward, 0, 0))
	require.True(t, tbl.Update(tuple, 50, 3, 1002, netwatchtypes.DirReverse, 0, 0))

	rec, ok := tbl.Lookup(tuple)
	require.True(t, ok)
	assert.Equal(t, uint64(3), rec.Packets)
	assert.Equal(t, uint64(350), rec.Bytes)
	assert.True(t, rec.FirstPacketID < rec.LastPacketID)
	assert.Equal(t, uint64(300), rec.BytesFwd)
	assert.Equal(t, uint64(50), rec.BytesRev)
	assert.Equal(t, rec.BytesFwd+rec.BytesRev, rec.Bytes)
}

func TestUpdateRejectsDuplicatePacketID(t *testing.T) {
	tbl := New(16, 300)
	tuple := sampleTuple()

	require.True(t, tbl.Update(tuple, 10, 42, 1000, netwatchtypes.DirForward, 0, 0))
	ok := tbl.Update(tuple, 10, 42, 1001, netwatchtypes.DirForward, 0, 0)
	assert.False(t, ok, "re-applying the same packet id should be rejected")

	rec, _ := tbl.Lookup(tuple)
	assert.Equal(t, uint64(1), rec.Packets)
}

func TestLookupNotFound(t *testing.T) {
	tbl := New(16, 300)
	_, ok := tbl.Lookup(sampleTuple())
	assert.False(t, ok)
}

func TestAgeOutEvictsIdleFlows(t *testing.T) {
	tbl := New(16, 1) // 1 second idle timeout
	tuple := sampleTuple()

	require.True(t, tbl.Update(tuple, 10, 1, 0, netwatchtypes.DirForward, 0, 0))
	evicted := tbl.AgeOut(int64(2) * 1e9)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 0, tbl.Len())
}

func TestScanAll(t *testing.T) {
	tbl := New(1024, 300)
	t1 := sampleTuple()
	t2 := netwatchtypes.NewFlowTuple(net.ParseIP("192.168.1.1"), net.ParseIP("192.168.1.2"), 1234, 443, netwatchtypes.ProtoTCP, 0)

	tbl.Update(t1, 10, 1, 0, netwatchtypes.DirForward, 0, 0)
	tbl.Update(t2, 20, 2, 0, netwatchtypes.DirForward, 0, 0)

	all := tbl.ScanAll()
	assert.Len(t, all, 2)
}

// collidingTuple picks a tuple guaranteed to hash to the same size-1 table
// slot as sampleTuple(), so the two tuples are forced to collide
// regardless of FNV1a's actual distribution.
func collidingTuple() netwatchtypes.FlowTuple {
	return netwatchtypes.NewFlowTuple(
		net.ParseIP("172.16.0.9"), net.ParseIP("172.16.0.10"),
		9999, 443, netwatchtypes.ProtoUDP, 0)
}

func TestUpdateWithoutChainingReplacesOnCollision(t *testing.T) {
	tbl := New(1, 300) // single slot: every tuple collides
	t1 := sampleTuple()
	t2 := collidingTuple()

	require.True(t, tbl.Update(t1, 10, 1, 1000, netwatchtypes.DirForward, 0, 0))
	require.True(t, tbl.Update(t2, 20, 2, 1001, netwatchtypes.DirForward, 0, 0))

	assert.Equal(t, 1, tbl.Len())
	_, found := tbl.Lookup(t1)
	assert.False(t, found, "baseline collision policy replaces the prior occupant")
	rec, found := tbl.Lookup(t2)
	require.True(t, found)
	assert.Equal(t, uint64(20), rec.Bytes)
}

func TestUpdateWithChainingKeepsBothTuples(t *testing.T) {
	tbl := New(1, 300, WithChaining(true)) // single slot, chaining enabled
	t1 := sampleTuple()
	t2 := collidingTuple()

	require.True(t, tbl.Update(t1, 10, 1, 1000, netwatchtypes.DirForward, 0, 0))
	require.True(t, tbl.Update(t2, 20, 2, 1001, netwatchtypes.DirForward, 0, 0))

	assert.Equal(t, 2, tbl.Len())
	rec1, found := tbl.Lookup(t1)
	require.True(t, found, "chaining must not evict the first tuple's entry")
	assert.Equal(t, uint64(10), rec1.Bytes)
	rec2, found := tbl.Lookup(t2)
	require.True(t, found)
	assert.Equal(t, uint64(20), rec2.Bytes)

	all := tbl.ScanAll()
	assert.Len(t, all, 2)
}

func TestAgeOutWithChainingEvictsOnlyIdleTuple(t *testing.T) {
	tbl := New(1, 1, WithChaining(true))
	t1 := sampleTuple()
	t2 := collidingTuple()

	require.True(t, tbl.Update(t1, 10, 1, 0, netwatchtypes.DirForward, 0, 0))
	require.True(t, tbl.Update(t2, 10, 2, int64(2)*1e9, netwatchtypes.DirForward, 0, 0))

	evicted := tbl.AgeOut(int64(2) * 1e9)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, tbl.Len())

	_, found := tbl.Lookup(t1)
	assert.False(t, found)
	_, found = tbl.Lookup(t2)
	assert.True(t, found)
}
