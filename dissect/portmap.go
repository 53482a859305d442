package dissect

import "github.com/dreadl0ck/netwatch/netwatchtypes"

// wellKnownPorts is the port-based fallback table per spec.md §4.4,
// applied only when every payload dissector has declined.
var wellKnownPorts = map[uint16]netwatchtypes.ProtocolTag{
	80:   netwatchtypes.ProtoHTTP,
	8080: netwatchtypes.ProtoHTTP,
	443:  netwatchtypes.ProtoHTTPS,
	53:   netwatchtypes.ProtoDNS,
	25:   netwatchtypes.ProtoSMTP,
	587:  netwatchtypes.ProtoSMTP,
	465:  netwatchtypes.ProtoSMTPS,
	21:   netwatchtypes.ProtoFTP,
	990:  netwatchtypes.ProtoFTPS,
	445:  netwatchtypes.ProtoSMB,
	22:   netwatchtypes.ProtoSSH,
	23:   netwatchtypes.ProtoTelnet,
	161:  netwatchtypes.ProtoSNMP,
}

// ByPort returns the well-known-port classification for dstPort; Classify
// reports such a hit with confidence 50. ok is false for unmapped ports.
func ByPort(dstPort uint16) (netwatchtypes.ProtocolTag, bool) {
	tag, ok := wellKnownPorts[dstPort]
	return tag, ok
}
