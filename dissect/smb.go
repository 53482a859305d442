package dissect

import "bytes"

// SMB classifies payload as an SMB message per spec.md §4.4: byte[0] in
// {0xFF, 0xFE} followed by the literal "SMB".
func SMB(payload []byte) bool {
	if len(payload) < 5 {
		return false
	}
	if payload[0] != 0xFF && payload[0] != 0xFE {
		return false
	}
	return bytes.Equal(payload[1:4], []byte("SMB"))
}
