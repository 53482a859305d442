package dissect

import (
	"encoding/binary"

	"github.com/miekg/dns"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// DNS classifies payload as a DNS message per spec.md §4.4: requires at
// least 12 bytes (the fixed header), reads the transaction id from bytes
// 0-1, derives is_query from the QR bit of byte 2, and rcode from the low
// nibble of byte 3. A secondary full parse via github.com/miekg/dns is
// attempted best-effort to populate the question name; failure there does
// not affect classification, only the optional QuestionName field.
func DNS(payload []byte) (data netwatchtypes.DNSData, ok bool) {
	if len(payload) < 12 {
		return netwatchtypes.DNSData{}, false
	}

	data.TransactionID = binary.BigEndian.Uint16(payload[0:2])
	data.IsQuery = payload[2]&0x80 == 0
	data.ResponseCode = payload[3] & 0x0F

	var msg dns.Msg
	if err := msg.Unpack(payload); err == nil && len(msg.Question) > 0 {
		data.QuestionName = msg.Question[0].Name
	}

	return data, true
}
