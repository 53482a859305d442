// Package dissect implements the protocol dissector cascade (spec.md
// §4.4, component C4): pure functions over a session's first non-empty
// payload that return a protocol tag and optional parsed record, with a
// well-known-port fallback applied only when every payload dissector
// declines.
package dissect

import "github.com/dreadl0ck/netwatch/netwatchtypes"

// Result is the outcome of running the dissector cascade once.
type Result struct {
	Protocol   netwatchtypes.ProtocolTag
	Confidence int
	Data       netwatchtypes.ProtocolData
}

// Classify runs the fixed dissector cascade in the order spec.md §4.4
// lists (HTTP, DNS, TLS, SMTP, SMB), falling back to the well-known-port
// table when every payload dissector declines. dstPort is used only for
// the fallback and for the HTTP non-standard-port context a caller may
// want downstream (not evaluated here; see package anomaly).
func Classify(payload []byte, dstPort uint16) (Result, bool) {
	if len(payload) == 0 {
		return Result{}, false
	}

	if http, ok := HTTP(payload); ok {
		h := http
		return Result{Protocol: netwatchtypes.ProtoHTTP, Confidence: 100, Data: netwatchtypes.ProtocolData{HTTP: &h}}, true
	}

	if dnsData, ok := DNS(payload); ok {
		d := dnsData
		return Result{Protocol: netwatchtypes.ProtoDNS, Confidence: 100, Data: netwatchtypes.ProtocolData{DNS: &d}}, true
	}

	if tlsData, ok := TLS(payload); ok {
		tl := tlsData
		return Result{Protocol: netwatchtypes.ProtoHTTPS, Confidence: 100, Data: netwatchtypes.ProtocolData{TLS: &tl}}, true
	}

	if SMTP(payload) {
		return Result{Protocol: netwatchtypes.ProtoSMTP, Confidence: 100}, true
	}

	if SMB(payload) {
		return Result{Protocol: netwatchtypes.ProtoSMB, Confidence: 100}, true
	}

	if tag, ok := ByPort(dstPort); ok {
		return Result{Protocol: tag, Confidence: 50}, true
	}

	return Result{}, false
}
