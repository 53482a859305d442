// Command netwatch wires a capture backend, a capture.Session and a
// dpi.Engine together into a running traffic inspection pipeline. Flag
// style (plain package-level flag vars, parsed once in main) matches
// grimm-is-flywall/cmd/flywall-sim/main.go.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreadl0ck/netwatch/capture"
	"github.com/dreadl0ck/netwatch/capture/backend"
	"github.com/dreadl0ck/netwatch/dpi"
	"github.com/dreadl0ck/netwatch/dpisession"
	"github.com/dreadl0ck/netwatch/geo"
	"github.com/dreadl0ck/netwatch/internal/config"
	"github.com/dreadl0ck/netwatch/internal/logging"
	"github.com/dreadl0ck/netwatch/metrics"
	"github.com/dreadl0ck/netwatch/netflow"
	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

var (
	configPath  = flag.String("config", "", "path to a YAML config file (defaults used when empty)")
	iface       = flag.String("iface", "", "interface to capture on (overrides config)")
	filter      = flag.String("filter", "", "BPF filter string (overrides config)")
	noColor     = flag.Bool("nocolor", false, "disable colored log output")
	statsEvery  = flag.Duration("stats-interval", 10*time.Second, "how often to print pipeline stats")
	archive     = flag.String("archive", "", "path to a gzip-compressed JSON file archiving raised alerts (disabled when empty)")
	metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090 (disabled when empty)")
)

func main() {
	flag.Parse()

	logging.Default.SetColors(!*noColor)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logging.Default.Errorf("loading config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *iface != "" {
		cfg.Capture.Interface = *iface
	}
	if *filter != "" {
		cfg.Capture.Filter = *filter
	}

	if cfg.Capture.Interface == "" {
		logging.Default.Errorf("no interface specified: pass -iface or set capture.interface in the config file")
		os.Exit(1)
	}

	logging.Default.Infof("available backends: %v", capture.AvailableBackends())

	mtr := metrics.New()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(mtr.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Default.Warnf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logging.Default.Infof("serving metrics on %s/metrics", *metricsAddr)
	}

	sess, err := capture.Init(capture.Config{
		Backend:        backend.NewPCAP(),
		Interface:      cfg.Capture.Interface,
		BufferMB:       cfg.Capture.BufferMB,
		FlowTableSize:  cfg.Capture.FlowTableSize,
		IdleTimeoutSec: int(cfg.Capture.IdleTimeout.Seconds()),
		Metrics:        mtr,
	})
	if err != nil {
		logging.Default.Errorf("init capture session: %v", err)
		os.Exit(1)
	}

	sess.SetErrorCallback(func(msg string, code int) {
		logging.Default.Warnf("capture fault (code %d): %s", code, msg)
	})

	if err := sess.Start(cfg.Capture.Snaplen, cfg.Capture.Filter); err != nil {
		logging.Default.Errorf("start capture session %s: %v", sess.ID, err)
		os.Exit(1)
	}
	logging.Default.Infof("capture session %s started on %s", sess.ID, cfg.Capture.Interface)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tlsMode := cfg.DPI.TLSMode
	if tlsMode == "" {
		tlsMode = dpi.TLSModeClassifyOnly
	}
	engineOpts := []dpi.Option{
		dpi.WithAnomalyDetection(cfg.DPI.AnomalyDetection),
		dpi.WithTLSMode(tlsMode),
		dpi.WithMetrics(mtr),
	}
	if cfg.DPI.SessionTable == "hash" {
		engineOpts = append(engineOpts, dpi.WithSessionTable(dpisession.NewHashTable(cfg.DPI.MaxSessions)))
	}
	engine := dpi.New(cfg.DPI.MaxSessions, cfg.DPI.AlertQueueCapacity, engineOpts...)

	if cfg.DPI.RuleFile != "" {
		n, err := engine.Rules.LoadFile(cfg.DPI.RuleFile)
		if err != nil {
			logging.Default.Errorf("loading rule file %s: %v", cfg.DPI.RuleFile, err)
			os.Exit(1)
		}
		logging.Default.Infof("loaded %d rules from %s", n, cfg.DPI.RuleFile)
	}

	var geoResolver *geo.Resolver
	if cfg.Geo.DatabasePath != "" {
		geoResolver, err = geo.Open(cfg.Geo.DatabasePath)
		if err != nil {
			logging.Default.Warnf("geo enrichment disabled: %v", err)
		} else {
			defer geoResolver.Close()
		}
	}

	var archiveWriter *netwatchtypes.ExportWriter
	if *archive != "" {
		archiveWriter, err = netwatchtypes.NewExportWriter(*archive)
		if err != nil {
			logging.Default.Errorf("opening alert archive %s: %v", *archive, err)
			os.Exit(1)
		}
		defer func() {
			if cerr := archiveWriter.Close(); cerr != nil {
				logging.Default.Warnf("closing alert archive: %v", cerr)
			}
		}()
		go archiveAlerts(ctx, engine, archiveWriter)
	}

	var exporter *netflow.Exporter
	if cfg.NetFlow.Enabled {
		exporter, err = netflow.New(cfg.NetFlow.Collector, cfg.NetFlow.Port, cfg.NetFlow.Interval, nil)
		if err != nil {
			logging.Default.Warnf("netflow exporter disabled: %v", err)
		} else {
			go exporter.Run(sess.FlowGetAll)
			defer exporter.Close()
		}
	}

	go printStats(ctx, sess, engine, *statsEvery)
	if geoResolver != nil {
		go printGeo(ctx, sess, geoResolver, *statsEvery*6)
	}
	go ageOutFlows(ctx, sess, cfg.Capture.IdleTimeout)

	logging.Default.Infof("entering poll loop, press ctrl-c to stop")
	for ctx.Err() == nil {
		_, err := sess.Poll(256, 500*time.Millisecond, func(pkt netwatchtypes.CapturedPacket, tuple netwatchtypes.FlowTuple) bool {
			engine.ProcessPacket(tuple, pkt.Payload, pkt.RawFrame, pkt.TimestampNS, pkt.Direction, tuple.DstPort)
			return true
		})
		if err != nil {
			logging.Default.Warnf("poll error: %v", err)
		}
	}

	logging.Default.Infof("shutting down")
	_ = sess.Cleanup()
	_ = engine.Shutdown()
}

func printStats(ctx context.Context, sess *capture.Session, engine *dpi.Engine, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs := sess.GetStats()
			ds := engine.Stats.Snapshot()
			rows := [][2]string{
				{"packets_received", humanize.Comma(int64(cs.PacketsReceived))},
				{"packets_dropped", humanize.Comma(int64(cs.PacketsDropped))},
				{"bytes_received", humanize.Bytes(cs.BytesReceived)},
				{"flows_active", humanize.Comma(int64(cs.FlowsActive))},
				{"dpi_sessions_created", humanize.Comma(int64(ds.SessionsCreated))},
				{"dpi_sessions_rejected", humanize.Comma(int64(ds.SessionsRejected))},
				{"alerts_raised", humanize.Comma(int64(ds.AlertsRaised))},
			}
			logging.StatsTable(os.Stdout, "netwatch", rows)
		}
	}
}

// archiveAlerts drains and gzip-archives raised alerts on a fixed
// cadence, following the teacher's writer.go "drain the in-memory queue,
// flush to disk" pattern. Run as a background goroutine for the
// lifetime of the process; the caller closes archiveWriter on shutdown.
func archiveAlerts(ctx context.Context, engine *dpi.Engine, w *netwatchtypes.ExportWriter) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	drain := func() {
		for _, a := range engine.DrainAlerts(1024, true) {
			if err := w.WriteRecord(a); err != nil {
				logging.Default.Warnf("archiving alert: %v", err)
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			return
		case <-ticker.C:
			drain()
		}
	}
}

// ageOutFlows periodically evicts idle flows from the session's flow
// table, per spec.md §4.2's aging scan. Runs on the same cadence as the
// table's own idle timeout so an idle flow is never more than one tick
// late to be evicted.
func ageOutFlows(ctx context.Context, sess *capture.Session, idleTimeout time.Duration) {
	if idleTimeout <= 0 {
		idleTimeout = 300 * time.Second
	}
	ticker := time.NewTicker(idleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := sess.AgeOutFlows(netwatchtypes.NowNS())
			if n > 0 {
				logging.Default.Infof("aged out %d idle flows", n)
			}
		}
	}
}

// printGeo periodically logs the resolved location of each active flow's
// endpoints. It runs on a much coarser interval than printStats since a
// City database lookup per flow is considerably more expensive than
// reading an atomic counter.
func printGeo(ctx context.Context, sess *capture.Session, resolver *geo.Resolver, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, info := range sess.EnrichFlowsGeo(resolver) {
				if info.Src.Country == "" && info.Dst.Country == "" {
					continue
				}
				logging.Default.Infof("flow %d -> %d: %s -> %s", info.Tuple.SrcPort, info.Tuple.DstPort, info.Src.Country, info.Dst.Country)
			}
		}
	}
}
