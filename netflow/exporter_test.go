package netflow

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func sampleRecord() netwatchtypes.FlowRecord {
	return netwatchtypes.FlowRecord{
		Tuple: netwatchtypes.NewFlowTuple(
			net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), 52344, 80, netwatchtypes.ProtoTCP, 0,
		),
		Packets: 3,
		Bytes:   350,
	}
}

func TestExportInvokesCallback(t *testing.T) {
	// Point at a local UDP listener so Export's conn.Write never errors out
	// to an unreachable host.
	udpAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	require.NoError(t, err)
	listener, err := net.ListenUDP("udp", udpAddr)
	require.NoError(t, err)
	defer listener.Close()

	var got netwatchtypes.FlowRecord
	e, err := New("127.0.0.1", listener.LocalAddr().(*net.UDPAddr).Port, time.Minute, func(r netwatchtypes.FlowRecord) {
		got = r
	})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Export(sampleRecord()))
	assert.Equal(t, uint64(3), got.Packets)
}

func TestEncodeProducesNetFlowV5Header(t *testing.T) {
	e := &Exporter{}
	buf := e.encode(sampleRecord())
	require.Len(t, buf, 72)
	assert.Equal(t, uint16(5), uint16(buf[0])<<8|uint16(buf[1]))
	assert.Equal(t, uint16(1), uint16(buf[2])<<8|uint16(buf[3]))
}

func TestCloseIsIdempotent(t *testing.T) {
	udpAddr, _ := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	listener, _ := net.ListenUDP("udp", udpAddr)
	defer listener.Close()

	e, err := New("127.0.0.1", listener.LocalAddr().(*net.UDPAddr).Port, time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}
