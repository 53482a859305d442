package dissect

import (
	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// tlsContentTypes are the record content types spec.md §4.4 recognizes:
// alert (0x15), handshake (0x16), application data (0x17).
var tlsContentTypes = map[byte]bool{0x15: true, 0x16: true, 0x17: true}

// TLS classifies payload as a TLS record per spec.md §4.4: requires at
// least 5 bytes, content type in {0x15,0x16,0x17}, record version major
// byte 0x03 and minor byte in {0x01..0x04}.
func TLS(payload []byte) (data netwatchtypes.TLSData, ok bool) {
	if len(payload) < 5 {
		return netwatchtypes.TLSData{}, false
	}

	contentType := payload[0]
	major := payload[1]
	minor := payload[2]

	if !tlsContentTypes[contentType] {
		return netwatchtypes.TLSData{}, false
	}
	if major != 0x03 || minor < 0x01 || minor > 0x04 {
		return netwatchtypes.TLSData{}, false
	}

	data.ContentType = contentType
	data.VersionMajor = major
	data.VersionMinor = minor
	return data, true
}
