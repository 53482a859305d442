package dissect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func TestHTTPRequestClassification(t *testing.T) {
	data, ok := HTTP([]byte("GET /index HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.True(t, ok)
	assert.True(t, data.IsRequest)
	assert.Equal(t, "GET", data.Method)
}

func TestHTTPTrailingSpaceSignificant(t *testing.T) {
	_, ok := HTTP([]byte("GET/index"))
	assert.False(t, ok, "GET/ without trailing space must not classify as HTTP")
}

func TestHTTPResponseStatusCode(t *testing.T) {
	data, ok := HTTP([]byte("HTTP/1.1 404 Not Found\r\n"))
	require.True(t, ok)
	assert.False(t, data.IsRequest)
	assert.Equal(t, 404, data.StatusCode)
}

func TestDNSQuery(t *testing.T) {
	payload := []byte{0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	data, ok := DNS(payload)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), data.TransactionID)
	assert.True(t, data.IsQuery)
	assert.Equal(t, uint8(0), data.ResponseCode)
}

func TestDNSRequiresTwelveBytes(t *testing.T) {
	_, ok := DNS([]byte{0x12, 0x34})
	assert.False(t, ok)
}

func TestTLSClientHelloFiveBytes(t *testing.T) {
	payload := []byte{0x16, 0x03, 0x03, 0x00, 0x20}
	data, ok := TLS(payload)
	require.True(t, ok)
	assert.Equal(t, uint8(3), data.VersionMajor)
	assert.Equal(t, uint8(3), data.VersionMinor)
}

func TestTLSRequiresFiveBytes(t *testing.T) {
	_, ok := TLS([]byte{0x16, 0x03, 0x03, 0x00})
	assert.False(t, ok)
}

func TestSMTPCommandAndResponse(t *testing.T) {
	assert.True(t, SMTP([]byte("EHLO mail.example.com\r\n")))
	assert.True(t, SMTP([]byte("250 OK\r\n")))
	assert.False(t, SMTP([]byte("not smtp")))
}

func TestSMB(t *testing.T) {
	assert.True(t, SMB([]byte{0xFF, 'S', 'M', 'B', 0x72}))
	assert.False(t, SMB([]byte{0x00, 'S', 'M', 'B', 0x72}))
}

func TestClassifyCascadePrefersHTTPOverPort(t *testing.T) {
	res, ok := Classify([]byte("GET / HTTP/1.1\r\n"), 8888)
	require.True(t, ok)
	assert.Equal(t, netwatchtypes.ProtoHTTP, res.Protocol)
	assert.Equal(t, 100, res.Confidence)
}

func TestClassifyFallsBackToPort(t *testing.T) {
	res, ok := Classify([]byte{0x00, 0x01, 0x02}, 443)
	require.True(t, ok)
	assert.Equal(t, netwatchtypes.ProtoHTTPS, res.Protocol)
	assert.Equal(t, 50, res.Confidence)
}

func TestClassifyEmptyPayload(t *testing.T) {
	_, ok := Classify(nil, 80)
	assert.False(t, ok)
}
