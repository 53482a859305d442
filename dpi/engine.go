// Package dpi implements the deep packet inspection engine facade (spec.md
// §4.9, component C9): wires the session table, rule engine, anomaly
// detector and alert queue together behind a single ProcessPacket entry
// point, following the six-step algorithm spec.md §4.9 lists. Grounded on
// the encoder-dispatch shape of Gh0st0ne-netcap/encoder/tcpConnection.go,
// which similarly fans one packet out across lookup, classify and
// counter-update steps under a single call.
package dpi

import (
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/dreadl0ck/netwatch/alertqueue"
	"github.com/dreadl0ck/netwatch/anomaly"
	"github.com/dreadl0ck/netwatch/dissect"
	"github.com/dreadl0ck/netwatch/dpisession"
	"github.com/dreadl0ck/netwatch/internal/logging"
	"github.com/dreadl0ck/netwatch/metrics"
	"github.com/dreadl0ck/netwatch/netwatchtypes"
	"github.com/dreadl0ck/netwatch/rules"
)

// TLS enrichment modes for SetTLSMode, per spec.md §6's dpi_set_tls_mode.
const (
	// TLSModeClassifyOnly records only what dissect.TLS parses off the
	// wire (content type, record version) and skips the optional
	// SNI/JA3 enrichment pass. This is the config default.
	TLSModeClassifyOnly = "classify-only"
	// TLSModeEnrich additionally runs dissect.EnrichTLS against the raw
	// frame once a session classifies as ProtoHTTPS.
	TLSModeEnrich = "enrich"
)

// Stats holds the running counters spec.md §4.9 and §6 expect to be
// observable from outside the engine.
type Stats struct {
	mu sync.Mutex

	PacketsProcessed  uint64
	SessionsCreated   uint64
	SessionsRejected  uint64
	AlertsRaised      uint64
	ProtocolPackets   map[netwatchtypes.ProtocolTag]uint64
}

func newStats() *Stats {
	return &Stats{ProtocolPackets: make(map[netwatchtypes.ProtocolTag]uint64)}
}

func (s *Stats) bump(field *uint64, n uint64) {
	s.mu.Lock()
	*field += n
	s.mu.Unlock()
}

func (s *Stats) bumpProtocol(tag netwatchtypes.ProtocolTag) {
	s.mu.Lock()
	s.ProtocolPackets[tag]++
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{
		PacketsProcessed: s.PacketsProcessed,
		SessionsCreated:  s.SessionsCreated,
		SessionsRejected: s.SessionsRejected,
		AlertsRaised:     s.AlertsRaised,
		ProtocolPackets:  make(map[netwatchtypes.ProtocolTag]uint64, len(s.ProtocolPackets)),
	}
	for k, v := range s.ProtocolPackets {
		out.ProtocolPackets[k] = v
	}
	return out
}

// Engine is the DPI engine facade: one session table, one rule engine,
// one alert queue, one logger, shared across every call to ProcessPacket.
type Engine struct {
	Sessions dpisession.SessionTable
	Rules    *rules.Engine
	Alerts   *alertqueue.Queue
	Stats    *Stats

	AnomalyDetection bool
	log              *logging.Logger
	metrics          *metrics.Metrics

	mu       sync.Mutex
	tlsMode  string
	shutdown atomic.Bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithAnomalyDetection toggles anomaly-predicate evaluation, mirroring
// internal/config.DPIConfig.AnomalyDetection.
func WithAnomalyDetection(enabled bool) Option {
	return func(e *Engine) { e.AnomalyDetection = enabled }
}

// WithLogger overrides the engine's logger; defaults to logging.Default.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTLSMode sets the initial TLS enrichment mode, mirroring
// internal/config.DPIConfig.TLSMode. Defaults to TLSModeClassifyOnly.
func WithTLSMode(mode string) Option {
	return func(e *Engine) { e.tlsMode = mode }
}

// WithMetrics wires a shared metrics.Metrics instance into the engine;
// its counters are bumped alongside Stats at every ProcessPacket call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSessionTable swaps the engine's session table implementation,
// e.g. for dpisession.NewHashTable(maxSessions) in place of the default
// linear-slice dpisession.Table, per spec.md §6's "implementer MAY
// replace with the same hash-indexed scheme as C2" allowance.
func WithSessionTable(t dpisession.SessionTable) Option {
	return func(e *Engine) { e.Sessions = t }
}

// New creates a DPI engine with the given session table capacity and
// alert queue capacity. Pass <= 0 for either to use package defaults.
func New(maxSessions, alertQueueCapacity int, opts ...Option) *Engine {
	e := &Engine{
		Sessions:         dpisession.New(maxSessions),
		Rules:            rules.New(),
		Alerts:           alertqueue.New(alertQueueCapacity),
		Stats:            newStats(),
		AnomalyDetection: true,
		tlsMode:          TLSModeClassifyOnly,
		log:              logging.Default,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetTLSMode updates the TLS enrichment mode at runtime, per spec.md §6's
// dpi_set_tls_mode. An unrecognized mode is rejected and the previous
// mode remains in effect.
func (e *Engine) SetTLSMode(mode string) error {
	switch mode {
	case TLSModeClassifyOnly, TLSModeEnrich:
	default:
		return netwatchtypes.ErrInvalidArgument
	}
	e.mu.Lock()
	e.tlsMode = mode
	e.mu.Unlock()
	return nil
}

func (e *Engine) tlsEnrichEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tlsMode == TLSModeEnrich
}

// Shutdown marks the engine as no longer accepting packets, per spec.md
// §6's dpi_shutdown. Idempotent; subsequent ProcessPacket calls return
// (0, false) without touching the session table, rules or alert queue.
func (e *Engine) Shutdown() error {
	e.shutdown.Store(true)
	return nil
}

// ProcessPacket runs one packet through the DPI pipeline per spec.md
// §4.9: locate or create the session, classify on the first non-empty
// payload, transition NEW to ESTABLISHED on the first classified packet,
// run anomaly detection, evaluate rules and push any resulting alerts.
// It returns the number of alerts raised for this packet (not the
// cumulative number of bytes and rows of a session, just this call) and
// a bool reporting whether a session slot was available at all. A
// zero-length payload is ignored: it returns (0, true) without creating,
// updating or counting a session.
//
// rawFrame is the whole captured Ethernet frame, used only for the
// optional SNI/JA3 enrichment spec.md §4.4 allows once a session
// classifies as ProtoHTTPS; pass nil to skip it (e.g. when a caller has
// no raw frame, or enrichment is undesired on the hot path).
func (e *Engine) ProcessPacket(tuple netwatchtypes.FlowTuple, payload []byte, rawFrame []byte, tsNS int64, direction netwatchtypes.Direction, dstPort uint16) (alertsRaised int, ok bool) {
	if e.shutdown.Load() {
		return 0, false
	}
	if len(payload) == 0 {
		return 0, true
	}

	e.Stats.bump(&e.Stats.PacketsProcessed, 1)

	session, created := e.Sessions.GetOrCreate(tuple, tsNS)
	if session == nil {
		e.Stats.bump(&e.Stats.SessionsRejected, 1)
		if e.metrics != nil {
			e.metrics.SessionsRejected.Inc()
		}
		return 0, false
	}
	if created && session.PacketsSeen == 0 {
		e.Stats.bump(&e.Stats.SessionsCreated, 1)
		if e.metrics != nil {
			e.metrics.SessionsCreated.Inc()
		}
	}

	session.LastSeenNS = tsNS
	session.PacketsSeen++
	session.TotalBytes += uint64(len(payload))

	switch direction {
	case netwatchtypes.DirForward:
		session.FwdBuffer.Append(payload)
	case netwatchtypes.DirReverse:
		session.RevBuffer.Append(payload)
	}

	// Run the cascade only while the session is still unclassified, per
	// spec.md §4.9 step 2: a payload no dissector recognizes leaves the
	// session UNKNOWN and the next payload is tried, but once a tag is set
	// the cascade never runs again, so a settled classification cannot flip.
	if session.Classification.Protocol == netwatchtypes.ProtoUnknown {
		if result, matched := dissect.Classify(payload, dstPort); matched {
			session.Classification = netwatchtypes.ProtocolClassification{
				Protocol:      result.Protocol,
				Confidence:    result.Confidence,
				DetectionTick: session.PacketsSeen,
			}
			session.Data = result.Data
		}
	}

	if session.State == netwatchtypes.SessionNew && session.Classification.Protocol != netwatchtypes.ProtoUnknown {
		session.State = netwatchtypes.SessionEstablished
	}

	protocol := session.Classification.Protocol
	if protocol != netwatchtypes.ProtoUnknown {
		e.Stats.bumpProtocol(protocol)
		if e.metrics != nil {
			e.metrics.ProtocolPackets.WithLabelValues(protocol.String()).Inc()
		}
	}

	if protocol == netwatchtypes.ProtoHTTPS && session.Data.TLS != nil && len(rawFrame) > 0 && e.tlsEnrichEnabled() {
		if pkt := gopacket.NewPacket(rawFrame, layers.LayerTypeEthernet, gopacket.NoCopy); pkt != nil {
			dissect.EnrichTLS(pkt, session.Data.TLS)
		}
	}

	if e.AnomalyDetection {
		found := anomaly.Detect(protocol, dstPort, payload, direction, tsNS)
		if len(found) > 0 {
			anomaly.Append(session, found)
		}
	}

	matches := e.Rules.Evaluate(protocol, dstPort, payload)
	for _, m := range matches {
		_, pushed := e.Alerts.Push(netwatchtypes.Alert{
			TimestampNS:    tsNS,
			Tuple:          tuple,
			Severity:       m.Rule.Severity,
			Protocol:       protocol,
			RuleID:         m.Rule.RuleID,
			RuleName:       m.Rule.Name,
			Message:        m.Rule.Description,
			OffsetInStream: m.Offset,
		})
		if pushed {
			alertsRaised++
		} else if e.metrics != nil {
			e.metrics.AlertsDropped.Inc()
		}
	}
	if alertsRaised > 0 {
		e.Stats.bump(&e.Stats.AlertsRaised, uint64(alertsRaised))
		if e.metrics != nil {
			e.metrics.AlertsRaised.Add(float64(alertsRaised))
		}
	}

	return alertsRaised, true
}

// TerminateSession removes a session's state, per spec.md §8's
// terminate-is-a-no-op-when-absent rule.
func (e *Engine) TerminateSession(tuple netwatchtypes.FlowTuple) bool {
	return e.Sessions.Terminate(tuple)
}

// DrainAlerts returns up to max queued alerts in FIFO order, optionally
// removing them from the queue.
func (e *Engine) DrainAlerts(max int, clear bool) []netwatchtypes.Alert {
	return e.Alerts.Drain(max, clear)
}
