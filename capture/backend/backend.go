// Package backend defines the packet delivery abstraction capture.Session
// drives (spec.md §4.3's backend auto-detection of {DPDK, XDP, PF_RING,
// PCAP}) and ships one real implementation, pcap.go, plus a test double,
// mock.go. Grounded on the inactive-handle/activate lifecycle and
// gopacket.PacketSource wiring of
// other_examples/5ee323db_KleaSCM-netscope__internal-capture-engine.go.go.
package backend

import (
	"time"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// Kind identifies a backend implementation, per spec.md §4.3's
// {DPDK, XDP, PF_RING, PCAP} enumeration.
type Kind int

const (
	KindPCAP Kind = iota
	KindDPDK
	KindXDP
	KindPFRing
)

func (k Kind) String() string {
	switch k {
	case KindPCAP:
		return "PCAP"
	case KindDPDK:
		return "DPDK"
	case KindXDP:
		return "XDP"
	case KindPFRing:
		return "PF_RING"
	default:
		return "UNKNOWN"
	}
}

// Frame is one raw frame delivered by a backend, with backend-supplied
// timing and length metadata.
type Frame struct {
	Data      []byte
	Timestamp time.Time
	CaptureLen int
	WireLen    int
}

// Backend delivers raw frames from an interface or offline source. PCAP is
// the only backend this module ships a real implementation for; spec.md
// §4.3 only requires that the session report which of
// {DPDK, XDP, PF_RING, PCAP} the host supports and that PCAP is always
// last-resort available, which this module satisfies by only ever
// reporting PCAP as available (see Available below).
type Backend interface {
	Kind() Kind
	// Open activates the backend against iface with the given snaplen and
	// BPF filter (filter may be empty).
	Open(iface string, snaplen int, filter string) error
	// SetFilter updates the BPF filter on an already-open backend.
	SetFilter(filter string) error
	// ReadFrame blocks up to timeout for the next frame. ok is false on
	// timeout (not an error) so the caller's poll loop can return
	// n_processed=0 without treating the call as failed, per spec.md
	// §4.3's poll semantics.
	ReadFrame(timeout time.Duration) (Frame, bool, error)
	Close() error
}

// Available reports the backends this host supports, per spec.md §4.3's
// auto-detection requirement. Only PCAP is ever reported: DPDK needs
// hugepages and a bound NIC driver, XDP needs a kernel eBPF attach point,
// and PF_RING needs its kernel module — none of which this process can
// probe without privileged access this package does not assume, so they
// are never claimed to avoid reporting a backend that would fail to
// activate.
func Available() []Kind {
	return []Kind{KindPCAP}
}

// Decoded is the FlowTuple plus payload slice derived from a raw frame's
// IPv4/TCP/UDP headers by Decode in pcap.go, which decodes through
// gopacket layers.
type Decoded struct {
	Tuple      netwatchtypes.FlowTuple
	Direction  netwatchtypes.Direction
	Payload    []byte
	TCPFlags   netwatchtypes.TCPFlagAccumulator
}
