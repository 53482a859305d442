package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func TestNonStandardPortAnomaly(t *testing.T) {
	anomalies := Detect(netwatchtypes.ProtoHTTP, 8888, []byte("GET / HTTP/1.1\r\n"), netwatchtypes.DirForward, 0)
	require.Len(t, anomalies, 1)
	assert.Equal(t, TypeHTTPNonStandardPort, anomalies[0].Type)
	assert.Equal(t, 4, anomalies[0].Severity)
}

func TestStandardPortNoAnomaly(t *testing.T) {
	anomalies := Detect(netwatchtypes.ProtoHTTP, 80, []byte("GET / HTTP/1.1\r\n"), netwatchtypes.DirForward, 0)
	assert.Empty(t, anomalies)
}

func TestOversizeHTTP(t *testing.T) {
	payload := make([]byte, 8193)
	anomalies := Detect(netwatchtypes.ProtoHTTP, 80, payload, netwatchtypes.DirForward, 0)
	require.Len(t, anomalies, 1)
	assert.Equal(t, TypeOversizeHTTP, anomalies[0].Type)
}

func TestUserAgentPresent(t *testing.T) {
	anomalies := Detect(netwatchtypes.ProtoHTTP, 80, []byte("GET / HTTP/1.1\r\nUser-Agent: curl\r\n"), netwatchtypes.DirForward, 0)
	require.Len(t, anomalies, 1)
	assert.Equal(t, TypeUserAgentPresent, anomalies[0].Type)
}

func TestNonHTTPNeverAnomalous(t *testing.T) {
	anomalies := Detect(netwatchtypes.ProtoDNS, 53, make([]byte, 9000), netwatchtypes.DirForward, 0)
	assert.Empty(t, anomalies)
}

func TestAppendCapsAtTen(t *testing.T) {
	s := &netwatchtypes.DPISession{}
	var batch []netwatchtypes.AnomalyRecord
	for i := 0; i < 12; i++ {
		batch = append(batch, netwatchtypes.AnomalyRecord{Type: 1})
	}
	Append(s, batch)
	assert.Len(t, s.Anomalies, netwatchtypes.MaxAnomaliesPerSession)
	assert.Equal(t, uint64(2), s.AnomaliesDropped)
}
