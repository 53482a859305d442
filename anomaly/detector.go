// Package anomaly implements the stateless anomaly predicates of spec.md
// §4.7, component C7. Each predicate is a pure function of
// (session protocol, destination port, payload, direction); the caller
// (package dpi) is responsible for appending the result to the session's
// capped anomaly list.
package anomaly

import (
	"bytes"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

const (
	TypeOversizeHTTP       = 1
	TypeUserAgentPresent   = 2
	TypeHTTPNonStandardPort = 3
)

const oversizeHTTPThreshold = 8192

var userAgentMarker = []byte("User-Agent: ")

var httpStandardPorts = map[uint16]bool{80: true, 8080: true}

// Detect runs every baseline rule against one packet and returns the
// anomalies it raised, per spec.md §4.7.
func Detect(protocol netwatchtypes.ProtocolTag, dstPort uint16, payload []byte, direction netwatchtypes.Direction, nowNS int64) []netwatchtypes.AnomalyRecord {
	if protocol != netwatchtypes.ProtoHTTP {
		return nil
	}

	var out []netwatchtypes.AnomalyRecord

	if len(payload) > oversizeHTTPThreshold {
		out = append(out, netwatchtypes.AnomalyRecord{
			Type: TypeOversizeHTTP, Severity: 5, Message: "oversize HTTP packet",
			Direction: direction, TimestampNS: nowNS,
		})
	}

	if bytes.Contains(payload, userAgentMarker) {
		out = append(out, netwatchtypes.AnomalyRecord{
			Type: TypeUserAgentPresent, Severity: 3, Message: "User-Agent header present",
			Direction: direction, TimestampNS: nowNS,
		})
	}

	if !httpStandardPorts[dstPort] {
		out = append(out, netwatchtypes.AnomalyRecord{
			Type: TypeHTTPNonStandardPort, Severity: 4, Message: "HTTP on non-standard port",
			Direction: direction, TimestampNS: nowNS,
		})
	}

	return out
}

// Append attaches anomalies to session, enforcing the 10-entry cap of
// spec.md §4.7/§3; anomalies beyond the cap are dropped silently but still
// counted via session.AnomaliesDropped.
func Append(session *netwatchtypes.DPISession, anomalies []netwatchtypes.AnomalyRecord) {
	for _, a := range anomalies {
		if len(session.Anomalies) >= netwatchtypes.MaxAnomaliesPerSession {
			session.AnomaliesDropped++
			continue
		}
		session.Anomalies = append(session.Anomalies, a)
	}
}
