package dissect

import (
	"github.com/dreadl0ck/ja3"
	"github.com/dreadl0ck/tlsx"
	"github.com/google/gopacket"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// EnrichTLS attempts the optional SNI/JA3 enrichment spec.md §4.4 allows
// ("SNI extraction is optional") using the full packet a TLS record was
// carried in, the same way the teacher's encoder/ipProfile.go enriches IP
// profiles with tlsx.GetClientHelloBasic and ja3.DigestHexPacket. This is
// best-effort: a non-ClientHello record, or a packet with no parseable
// TLS layer, leaves data unchanged.
func EnrichTLS(packet gopacket.Packet, data *netwatchtypes.TLSData) {
	defer func() { recover() }() // tlsx/ja3 operate on attacker-controlled bytes

	if packet == nil || data == nil {
		return
	}

	if hello := tlsx.GetClientHelloBasic(packet); hello != nil {
		data.SNI = hello.SNI
	}

	if hash := ja3.DigestHexPacket(packet); hash != "" {
		data.JA3 = hash
	} else if hash := ja3.DigestHexPacketJa3s(packet); hash != "" {
		data.JA3 = hash
	}
}
