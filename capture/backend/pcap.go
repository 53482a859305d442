package backend

import (
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// PCAP is the libpcap-backed Backend, the only one this module ships as a
// real implementation (spec.md §4.3 treats PCAP as always last-resort
// available). Grounded on the inactive-handle configure/activate sequence
// in other_examples/5ee323db_KleaSCM-netscope__internal-capture-engine.go.go.
type PCAP struct {
	handle  *pcap.Handle
	source  *gopacket.PacketSource
	packets chan gopacket.Packet
}

// NewPCAP constructs an unopened PCAP backend.
func NewPCAP() *PCAP {
	return &PCAP{}
}

func (p *PCAP) Kind() Kind { return KindPCAP }

// Open activates a live capture handle on iface. Promiscuous mode is
// always enabled, matching the teacher's packet-capture engine default.
func (p *PCAP) Open(iface string, snaplen int, filter string) error {
	if iface == "" {
		return netwatchtypes.ErrInvalidArgument
	}
	if snaplen <= 0 {
		snaplen = 65535
	}

	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return fmt.Errorf("%w: %v", netwatchtypes.ErrBackendUnavailable, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(snaplen); err != nil {
		return fmt.Errorf("%w: set snaplen: %v", netwatchtypes.ErrBackendUnavailable, err)
	}
	if err := inactive.SetPromisc(true); err != nil {
		return fmt.Errorf("%w: set promisc: %v", netwatchtypes.ErrBackendUnavailable, err)
	}
	if err := inactive.SetTimeout(time.Second); err != nil {
		return fmt.Errorf("%w: set timeout: %v", netwatchtypes.ErrBackendUnavailable, err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return fmt.Errorf("%w: activate: %v", netwatchtypes.ErrBackendUnavailable, err)
	}

	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return fmt.Errorf("%w: %v", netwatchtypes.ErrFilterInvalid, err)
		}
	}

	p.handle = handle
	p.source = gopacket.NewPacketSource(handle, handle.LinkType())
	p.packets = p.source.Packets()
	return nil
}

// SetFilter updates the handle's BPF filter; per spec.md §4.3, a rejected
// filter leaves the previous one in place.
func (p *PCAP) SetFilter(filter string) error {
	if p.handle == nil {
		return netwatchtypes.ErrNotRunning
	}
	if err := p.handle.SetBPFFilter(filter); err != nil {
		return fmt.Errorf("%w: %v", netwatchtypes.ErrFilterInvalid, err)
	}
	return nil
}

// ReadFrame blocks up to timeout for the next decoded packet.
func (p *PCAP) ReadFrame(timeout time.Duration) (Frame, bool, error) {
	if p.packets == nil {
		return Frame{}, false, netwatchtypes.ErrNotRunning
	}

	select {
	case pkt, ok := <-p.packets:
		if !ok {
			return Frame{}, false, nil
		}
		md := pkt.Metadata()
		f := Frame{Data: pkt.Data()}
		if md != nil {
			f.Timestamp = md.Timestamp
			f.CaptureLen = md.CaptureLength
			f.WireLen = md.Length
		}
		return f, true, nil
	case <-time.After(timeout):
		return Frame{}, false, nil
	}
}

func (p *PCAP) Close() error {
	if p.handle != nil {
		p.handle.Close()
	}
	return nil
}

// Decode parses a raw frame into a FlowTuple and payload slice, borrowing
// from gopacket's layer decoding rather than hand-rolling header offsets
// (matching the teacher's encoder layer, which always decodes through
// gopacket instead of indexing raw bytes).
func Decode(data []byte) (Decoded, bool) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)

	netLayer := pkt.NetworkLayer()
	if netLayer == nil {
		return Decoded{}, false
	}
	ipv4, ok := netLayer.(*layers.IPv4)
	if !ok {
		return Decoded{}, false
	}

	var (
		srcPort, dstPort uint16
		proto            netwatchtypes.Protocol
		payload          []byte
		flags            netwatchtypes.TCPFlagAccumulator
	)

	switch t := pkt.TransportLayer().(type) {
	case *layers.TCP:
		srcPort = uint16(t.SrcPort)
		dstPort = uint16(t.DstPort)
		proto = netwatchtypes.ProtoTCP
		payload = t.Payload
		flags = tcpFlags(t)
	case *layers.UDP:
		srcPort = uint16(t.SrcPort)
		dstPort = uint16(t.DstPort)
		proto = netwatchtypes.ProtoUDP
		payload = t.Payload
	default:
		if icmp := pkt.Layer(layers.LayerTypeICMPv4); icmp != nil {
			proto = netwatchtypes.ProtoICMP
		} else {
			return Decoded{}, false
		}
	}

	tuple := netwatchtypes.NewFlowTuple(net.IP(ipv4.SrcIP), net.IP(ipv4.DstIP), srcPort, dstPort, proto, 0)

	return Decoded{
		Tuple:     tuple,
		Direction: netwatchtypes.DirForward,
		Payload:   payload,
		TCPFlags:  flags,
	}, true
}

func tcpFlags(t *layers.TCP) netwatchtypes.TCPFlagAccumulator {
	var f netwatchtypes.TCPFlagAccumulator
	if t.FIN {
		f |= netwatchtypes.TCPFlagFIN
	}
	if t.SYN {
		f |= netwatchtypes.TCPFlagSYN
	}
	if t.RST {
		f |= netwatchtypes.TCPFlagRST
	}
	if t.PSH {
		f |= netwatchtypes.TCPFlagPSH
	}
	if t.ACK {
		f |= netwatchtypes.TCPFlagACK
	}
	if t.URG {
		f |= netwatchtypes.TCPFlagURG
	}
	return f
}
