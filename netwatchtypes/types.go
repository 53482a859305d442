// Package netwatchtypes holds the data model shared by the capture and DPI
// engines: flow tuples, flow records, captured packet metadata, DPI
// sessions, rules and alerts.
package netwatchtypes

import (
	"fmt"
	"hash/fnv"
	"net"
	"time"
)

// Protocol is an IANA transport protocol number (TCP=6, UDP=17, ...).
type Protocol uint8

const (
	ProtoTCP  Protocol = 6
	ProtoUDP  Protocol = 17
	ProtoICMP Protocol = 1
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	case ProtoICMP:
		return "ICMP"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// FlowTuple uniquely identifies a flow: (src_ip, dst_ip, src_port, dst_port,
// protocol, vlan_id). IPv4 only in the baseline. Equality and hashing are
// structural.
type FlowTuple struct {
	SrcIP    [4]byte
	DstIP    [4]byte
	SrcPort  uint16
	DstPort  uint16
	Protocol Protocol
	VLANID   uint16
}

// NewFlowTuple builds a tuple from net.IP values, truncating to IPv4.
func NewFlowTuple(src, dst net.IP, srcPort, dstPort uint16, proto Protocol, vlan uint16) FlowTuple {
	var t FlowTuple
	if v4 := src.To4(); v4 != nil {
		copy(t.SrcIP[:], v4)
	}
	if v4 := dst.To4(); v4 != nil {
		copy(t.DstIP[:], v4)
	}
	t.SrcPort = srcPort
	t.DstPort = dstPort
	t.Protocol = proto
	t.VLANID = vlan
	return t
}

// bytes renders the tuple as a fixed-width byte slice for hashing, in a
// deterministic field order.
func (t FlowTuple) bytes() []byte {
	b := make([]byte, 0, 4+4+2+2+1+2)
	b = append(b, t.SrcIP[:]...)
	b = append(b, t.DstIP[:]...)
	b = append(b, byte(t.SrcPort>>8), byte(t.SrcPort))
	b = append(b, byte(t.DstPort>>8), byte(t.DstPort))
	b = append(b, byte(t.Protocol))
	b = append(b, byte(t.VLANID>>8), byte(t.VLANID))
	return b
}

// FNV1a returns the deterministic FNV-1a hash of the tuple's canonical byte
// form. This is used both as the FlowRecord.FlowID and as the flow table's
// bucket index.
func (t FlowTuple) FNV1a() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(t.bytes())
	return h.Sum64()
}

func (t FlowTuple) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d/%s vlan=%d",
		net.IP(t.SrcIP[:]), t.SrcPort, net.IP(t.DstIP[:]), t.DstPort, t.Protocol, t.VLANID)
}

// FlowState is the lifecycle state of a FlowRecord.
type FlowState int

const (
	FlowActive FlowState = iota
	FlowClosing
	FlowClosed
)

func (s FlowState) String() string {
	switch s {
	case FlowActive:
		return "ACTIVE"
	case FlowClosing:
		return "CLOSING"
	case FlowClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// TCPFlagAccumulator ORs together every TCP flag byte seen on a flow.
type TCPFlagAccumulator uint8

const (
	TCPFlagFIN TCPFlagAccumulator = 1 << iota
	TCPFlagSYN
	TCPFlagRST
	TCPFlagPSH
	TCPFlagACK
	TCPFlagURG
)

// FlowRecord is the aggregate owned by the Flow Table for a single
// FlowTuple.
type FlowRecord struct {
	Tuple         FlowTuple
	FlowID        uint64
	FirstPacketID uint64
	LastPacketID  uint64
	FirstSeenNS   int64
	LastSeenNS    int64
	Packets       uint64
	Bytes         uint64
	BytesFwd      uint64
	BytesRev      uint64
	TCPFlags      TCPFlagAccumulator
	InterfaceID   int
	State         FlowState
}

// TimestampSource describes where a CapturedPacket's timestamp came from.
type TimestampSource int

const (
	TSRealtime TimestampSource = iota
	TSPTP
	TSKernel
)

func (s TimestampSource) String() string {
	switch s {
	case TSPTP:
		return "PTP"
	case TSKernel:
		return "KERNEL"
	default:
		return "REALTIME"
	}
}

// Direction of a packet relative to the flow's initiator.
type Direction int

const (
	DirForward Direction = iota
	DirReverse
)

// CapturedPacket is the metadata netwatch keeps for a ring-buffer-resident
// frame, plus a borrowed view into the ring buffer's payload bytes. The
// view is only valid for the duration of the poll callback that received
// it.
type CapturedPacket struct {
	PacketID           uint64
	TimestampNS        int64
	TimestampSource    TimestampSource
	Direction          Direction
	InterfaceID        int
	VLANID             uint16
	PayloadLength      int
	WireLength         int
	EncapsulationLevel int
	Payload            []byte // borrowed view, do not retain past the callback
	RawFrame           []byte // borrowed whole-frame bytes, for protocol enrichment that needs layers above the transport payload
}

// ProtocolTag is a classified application protocol.
type ProtocolTag int

const (
	ProtoUnknown ProtocolTag = iota
	ProtoHTTP
	ProtoHTTPS
	ProtoDNS
	ProtoSMTP
	ProtoSMTPS
	ProtoSMB
	ProtoFTP
	ProtoFTPS
	ProtoSSH
	ProtoTelnet
	ProtoSNMP
)

func (p ProtocolTag) String() string {
	switch p {
	case ProtoHTTP:
		return "HTTP"
	case ProtoHTTPS:
		return "HTTPS"
	case ProtoDNS:
		return "DNS"
	case ProtoSMTP:
		return "SMTP"
	case ProtoSMTPS:
		return "SMTPS"
	case ProtoSMB:
		return "SMB"
	case ProtoFTP:
		return "FTP"
	case ProtoFTPS:
		return "FTPS"
	case ProtoSSH:
		return "SSH"
	case ProtoTelnet:
		return "Telnet"
	case ProtoSNMP:
		return "SNMP"
	default:
		return "UNKNOWN"
	}
}

// ProtocolClassification is the result of running the dissector cascade
// once on a session's first non-empty payload.
type ProtocolClassification struct {
	Protocol      ProtocolTag
	Confidence    int // 100 payload-based, 50 port-based
	DetectionTick uint64
}

// HTTPData is the parsed record for a classified HTTP packet.
type HTTPData struct {
	IsRequest  bool
	Method     string // request only
	StatusCode int    // response only
}

// DNSData is the parsed record for a classified DNS packet.
type DNSData struct {
	TransactionID uint16
	IsQuery       bool
	ResponseCode  uint8
	QuestionName  string // best-effort, via full parse
}

// TLSData is the parsed record for a classified TLS packet.
type TLSData struct {
	VersionMajor uint8
	VersionMinor uint8
	ContentType  uint8
	SNI          string // optional
	JA3          string // optional
}

// ProtocolData is a tagged sum of at most one parsed protocol record,
// carried inline on a DPISession. Exactly one of the pointer fields may be
// non-nil at any time.
type ProtocolData struct {
	HTTP *HTTPData
	DNS  *DNSData
	TLS  *TLSData
}

// Empty reports whether no protocol record has been set.
func (d ProtocolData) Empty() bool {
	return d.HTTP == nil && d.DNS == nil && d.TLS == nil
}

// SessionState is the lifecycle state of a DPISession.
type SessionState int

const (
	SessionNew SessionState = iota
	SessionEstablished
	SessionClosing
	SessionClosed
	SessionError
)

func (s SessionState) String() string {
	switch s {
	case SessionNew:
		return "NEW"
	case SessionEstablished:
		return "ESTABLISHED"
	case SessionClosing:
		return "CLOSING"
	case SessionClosed:
		return "CLOSED"
	case SessionError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// AnomalyRecord is a single anomaly raised by the anomaly detector against
// a session.
type AnomalyRecord struct {
	Type      int
	Severity  int
	Message   string
	Direction Direction
	TimestampNS int64
}

// MaxAnomaliesPerSession caps the anomaly list per spec.
const MaxAnomaliesPerSession = 10

// DefaultReassemblyBufferSize is the default per-direction reassembly
// buffer capacity (16 MiB).
const DefaultReassemblyBufferSize = 16 * 1024 * 1024

// DPISession is the per-5-tuple state the DPI engine keeps beyond flow
// aggregation: classification, reassembly buffers, parsed protocol data,
// and anomalies.
type DPISession struct {
	SessionID      uint64
	Tuple          FlowTuple
	State          SessionState
	Classification ProtocolClassification
	FwdBuffer      *RingSlice
	RevBuffer      *RingSlice
	Data           ProtocolData
	Anomalies      []AnomalyRecord
	AnomaliesDropped uint64
	FirstSeenNS    int64
	LastSeenNS     int64
	PacketsSeen    uint64
	TotalBytes     uint64
}

// RingSlice is a small fixed-capacity byte ring used for per-direction
// reassembly buffers. Unlike the capture ring buffer (package ringbuffer)
// this is a simple in-process append buffer with drop-on-full semantics,
// scoped to a single session.
type RingSlice struct {
	data     []byte
	capacity int
}

// NewRingSlice allocates a reassembly buffer with the given capacity.
func NewRingSlice(capacity int) *RingSlice {
	if capacity <= 0 {
		capacity = DefaultReassemblyBufferSize
	}
	return &RingSlice{data: make([]byte, 0, 0), capacity: capacity}
}

// Append adds bytes to the buffer, dropping the oldest bytes to make room
// when the buffer is at capacity (bounded reassembly memory per session).
func (r *RingSlice) Append(b []byte) {
	if len(b) >= r.capacity {
		r.data = append(r.data[:0], b[len(b)-r.capacity:]...)
		return
	}
	overflow := len(r.data) + len(b) - r.capacity
	if overflow > 0 {
		r.data = r.data[overflow:]
	}
	r.data = append(r.data, b...)
}

// Bytes returns the buffer's current contents (not a copy).
func (r *RingSlice) Bytes() []byte { return r.data }

// Len returns the number of bytes currently held.
func (r *RingSlice) Len() int { return len(r.data) }

// RuleType identifies the matcher kind a Rule uses.
type RuleType int

const (
	RuleRegex RuleType = iota
	RuleSnort
	RuleYara
	RuleContent
	RuleBehavioral
)

func (t RuleType) String() string {
	switch t {
	case RuleRegex:
		return "REGEX"
	case RuleSnort:
		return "SNORT"
	case RuleYara:
		return "YARA"
	case RuleContent:
		return "CONTENT"
	case RuleBehavioral:
		return "BEHAVIORAL"
	default:
		return "UNKNOWN"
	}
}

// RuleScope restricts which sessions a Rule is evaluated against.
type RuleScope struct {
	Protocol         ProtocolTag // ProtoUnknown means "any"
	PortRangeStart   uint16      // 0..0 means "any"
	PortRangeEnd     uint16
	ApplyToRequests  bool
	ApplyToResponses bool
}

// Admits reports whether the scope permits evaluation against the given
// session protocol and destination port.
func (s RuleScope) Admits(proto ProtocolTag, port uint16) bool {
	if s.Protocol != ProtoUnknown && s.Protocol != proto {
		return false
	}
	if s.PortRangeStart == 0 && s.PortRangeEnd == 0 {
		return true
	}
	return port >= s.PortRangeStart && port <= s.PortRangeEnd
}

// Rule is a single DPI rule. REGEX rules own a compiled matcher, indexed
// separately by RuleID (see package rules) rather than stored inline, to
// avoid invalidating pointers into compiled matcher internals on removal.
type Rule struct {
	RuleID      uint64
	Type        RuleType
	Name        string
	Description string
	Severity    int
	Pattern     []byte
	Scope       RuleScope
	Category    string
	CreatedNS   int64
	ModifiedNS  int64
	Enabled     bool
}

// Alert is a structured record produced when a rule matches or an anomaly
// predicate fires.
type Alert struct {
	AlertID         uint64
	TimestampNS     int64
	Tuple           FlowTuple
	Severity        int
	Protocol        ProtocolTag
	RuleID          uint64
	RuleName        string
	Message         string
	PayloadSample   []byte
	OffsetInStream  int64
}

// NowNS is the timestamp helper used across the pipeline; kept as a var so
// tests can substitute a deterministic clock.
var NowNS = func() int64 { return time.Now().UnixNano() }
