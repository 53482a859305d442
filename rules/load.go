package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// fileRule is the on-disk YAML shape for a rule, following the same
// yaml.v3 struct-tag convention internal/config uses. Type and Protocol
// are spelled out as strings in the file rather than the numeric
// RuleType/ProtocolTag a hand-written YAML document would have no
// convenient way to express.
type fileRule struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Pattern     string `yaml:"pattern"`
	Severity    int    `yaml:"severity"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Protocol    string `yaml:"protocol"`
	PortStart   uint16 `yaml:"port_start"`
	PortEnd     uint16 `yaml:"port_end"`
	Enabled     *bool  `yaml:"enabled"`
}

type fileDocument struct {
	Rules []fileRule `yaml:"rules"`
}

var ruleTypesByName = map[string]netwatchtypes.RuleType{
	"REGEX":      netwatchtypes.RuleRegex,
	"CONTENT":    netwatchtypes.RuleContent,
	"SNORT":      netwatchtypes.RuleSnort,
	"YARA":       netwatchtypes.RuleYara,
	"BEHAVIORAL": netwatchtypes.RuleBehavioral,
}

var protocolsByName = map[string]netwatchtypes.ProtocolTag{
	"HTTP":   netwatchtypes.ProtoHTTP,
	"HTTPS":  netwatchtypes.ProtoHTTPS,
	"DNS":    netwatchtypes.ProtoDNS,
	"SMTP":   netwatchtypes.ProtoSMTP,
	"SMTPS":  netwatchtypes.ProtoSMTPS,
	"SMB":    netwatchtypes.ProtoSMB,
	"FTP":    netwatchtypes.ProtoFTP,
	"FTPS":   netwatchtypes.ProtoFTPS,
	"SSH":    netwatchtypes.ProtoSSH,
	"TELNET": netwatchtypes.ProtoTelnet,
	"SNMP":   netwatchtypes.ProtoSNMP,
}

// LoadFile reads a YAML rule file (internal/config.DPIConfig.RuleFile)
// and Adds every rule it describes to e, in file order. It returns the
// number of rules loaded; a malformed type/protocol name or a pattern
// that fails to compile aborts the whole load and returns the error,
// leaving the rules added so far in place.
func (e *Engine) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, err
	}

	loaded := 0
	for _, fr := range doc.Rules {
		ruleType, ok := ruleTypesByName[fr.Type]
		if !ok {
			return loaded, fmt.Errorf("rules: unknown type %q for rule %q", fr.Type, fr.Name)
		}

		scope := netwatchtypes.RuleScope{
			ApplyToRequests:  true,
			ApplyToResponses: true,
			PortRangeStart:   fr.PortStart,
			PortRangeEnd:     fr.PortEnd,
		}
		if fr.Protocol != "" {
			proto, ok := protocolsByName[fr.Protocol]
			if !ok {
				return loaded, fmt.Errorf("rules: unknown protocol %q for rule %q", fr.Protocol, fr.Name)
			}
			scope.Protocol = proto
		}

		enabled := true
		if fr.Enabled != nil {
			enabled = *fr.Enabled
		}

		_, err := e.Add(netwatchtypes.Rule{
			Type:        ruleType,
			Name:        fr.Name,
			Description: fr.Description,
			Severity:    fr.Severity,
			Pattern:     []byte(fr.Pattern),
			Scope:       scope,
			Category:    fr.Category,
			Enabled:     enabled,
		})
		if err != nil {
			return loaded, fmt.Errorf("rules: loading %q: %w", fr.Name, err)
		}
		loaded++
	}

	return loaded, nil
}
