// Package config loads the YAML-driven configuration for the capture and
// DPI pipeline, following the yaml-config convention used throughout the
// retrieved pack (e.g. grimm-is-flywall/internal/config).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document for a netwatch instance.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	DPI     DPIConfig     `yaml:"dpi"`
	NetFlow NetFlowConfig `yaml:"netflow"`
	Geo     GeoConfig     `yaml:"geo"`
}

// CaptureConfig configures the ring buffer, flow table and backend.
type CaptureConfig struct {
	Interface       string        `yaml:"interface"`
	BufferMB        int           `yaml:"buffer_mb"`
	Filter          string        `yaml:"filter"`
	Snaplen         int           `yaml:"snaplen"`
	FlowTableSize   int           `yaml:"flow_table_size"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	TimestampSource string        `yaml:"timestamp_source"`
	EncryptionKey   string        `yaml:"encryption_key_path"`
	Cipher          string        `yaml:"cipher"`
}

// DPIConfig configures the DPI engine's session table, rules and
// anomaly detection.
type DPIConfig struct {
	MaxSessions        int    `yaml:"max_sessions"`
	AnomalyDetection   bool   `yaml:"anomaly_detection"`
	RuleFile           string `yaml:"rule_file"`
	AlertQueueCapacity int    `yaml:"alert_queue_capacity"`
	TLSMode            string `yaml:"tls_mode"`
	SessionTable       string `yaml:"session_table"`
}

// GeoConfig configures the optional IP geolocation enrichment hook.
type GeoConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// NetFlowConfig configures the periodic NetFlow v5 export task.
type NetFlowConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Collector    string        `yaml:"collector"`
	Port         int           `yaml:"port"`
	Interval     time.Duration `yaml:"interval"`
}

// Default returns a Config populated with the spec's documented defaults.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			BufferMB:        256,
			Snaplen:         65535,
			FlowTableSize:   100000,
			IdleTimeout:     300 * time.Second,
			TimestampSource: "realtime",
		},
		DPI: DPIConfig{
			MaxSessions:        65536,
			AnomalyDetection:   true,
			AlertQueueCapacity: 1000000,
			TLSMode:            "classify-only",
			SessionTable:       "linear",
		},
		NetFlow: NetFlowConfig{
			Port:     2055,
			Interval: 60 * time.Second,
		},
	}
}

// Load reads and parses a YAML config file, applying Default() for any
// zero-valued field left unset by the document.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
