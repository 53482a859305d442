package capture

import (
	"net"

	"github.com/dreadl0ck/netwatch/geo"
	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// FlowGeoInfo pairs a live flow's tuple with the geolocation of each
// endpoint, per SPEC_FULL.md's IP profile enrichment supplement.
type FlowGeoInfo struct {
	Tuple netwatchtypes.FlowTuple
	Src   geo.Location
	Dst   geo.Location
}

// EnrichFlowsGeo resolves the geolocation of every currently active
// flow's endpoints against resolver. This is an optional
// post-processing hook, not called from Poll: a caller invokes it on
// whatever cadence suits it (e.g. alongside GetStats in a reporting
// loop), so a nil or unconfigured resolver never costs the hot path
// anything. Endpoints that resolver can't place are omitted from the
// corresponding Src/Dst field (left at its zero value).
func (s *Session) EnrichFlowsGeo(resolver *geo.Resolver) []FlowGeoInfo {
	if resolver == nil {
		return nil
	}

	flows := s.flows.ScanAll()
	out := make([]FlowGeoInfo, 0, len(flows))
	for _, f := range flows {
		info := FlowGeoInfo{Tuple: f.Tuple}
		if loc, err := resolver.Lookup(net.IP(f.Tuple.SrcIP[:])); err == nil {
			info.Src = loc
		}
		if loc, err := resolver.Lookup(net.IP(f.Tuple.DstIP[:])); err == nil {
			info.Dst = loc
		}
		out = append(out, info)
	}
	return out
}
