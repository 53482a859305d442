// Package rules implements the DPI rule engine (spec.md §4.6, component
// C6): a dense array of rules assigned stable, never-reused ids, with
// compiled regex matchers indexed separately by rule id so that removal
// never invalidates another rule's compiled matcher pointer (resolving
// the §9 Design Note about memmove-of-compiled-regex undefined behavior).
// Grounded on the signature/regexCache/stats shape of
// grimm-is-flywall/internal/ebpf/ips/patterns.go's PatternMatcher.
package rules

import (
	"bytes"
	"regexp"
	"sync"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// MaxRules is the maximum number of rules the engine accepts, per
// spec.md §4.6.
const MaxRules = 10000

// Engine is the rule engine. The zero value is invalid; use New.
type Engine struct {
	mu       sync.RWMutex
	rules    []netwatchtypes.Rule
	compiled map[uint64]*regexp.Regexp // rule_id -> compiled REGEX matcher
	nextID   uint64
}

// New creates an empty rule engine.
func New() *Engine {
	return &Engine{
		compiled: make(map[uint64]*regexp.Regexp),
	}
}

// Add inserts a rule, compiling its pattern if Type is RuleRegex. On
// success it returns the assigned rule id (never 0); on compile failure
// it returns (0, err) and the engine is left unmodified, per spec.md
// §4.6 step 2.
func (e *Engine) Add(r netwatchtypes.Rule) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rules) >= MaxRules {
		return 0, netwatchtypes.ErrCapacityExhausted
	}

	var compiled *regexp.Regexp
	if r.Type == netwatchtypes.RuleRegex {
		// extended, case-insensitive, per spec.md §4.6 step 2.
		pattern := "(?i)" + string(r.Pattern)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return 0, netwatchtypes.ErrCompileError
		}
		compiled = re
	}

	e.nextID++
	id := e.nextID
	r.RuleID = id
	e.rules = append(e.rules, r)
	if compiled != nil {
		e.compiled[id] = compiled
	}

	return id, nil
}

// Remove deletes the rule with the given id, releasing its compiled
// matcher exactly once. Returns an error if no such rule exists.
func (e *Engine) Remove(ruleID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, r := range e.rules {
		if r.RuleID == ruleID {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			delete(e.compiled, ruleID)
			return nil
		}
	}
	return netwatchtypes.ErrNotFound
}

// SetEnabled toggles a rule's enabled flag.
func (e *Engine) SetEnabled(ruleID uint64, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.rules {
		if e.rules[i].RuleID == ruleID {
			e.rules[i].Enabled = enabled
			return nil
		}
	}
	return netwatchtypes.ErrNotFound
}

// Len returns the current rule count.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Match is a single matched rule, ready to be turned into an Alert.
type Match struct {
	Rule   netwatchtypes.Rule
	Offset int64
}

// Evaluate runs every enabled rule whose scope admits (protocol, port)
// against payload, returning every match. Matching protocol per spec.md
// §4.6: scope admits, then the type-appropriate matcher runs over the new
// payload bytes.
func (e *Engine) Evaluate(protocol netwatchtypes.ProtocolTag, port uint16, payload []byte) []Match {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var matches []Match
	for _, r := range e.rules {
		if !r.Enabled {
			continue
		}
		if !r.Scope.Admits(protocol, port) {
			continue
		}

		switch r.Type {
		case netwatchtypes.RuleRegex:
			re := e.compiled[r.RuleID]
			if re == nil {
				continue
			}
			if loc := re.FindIndex(payload); loc != nil {
				matches = append(matches, Match{Rule: r, Offset: int64(loc[0])})
			}
		case netwatchtypes.RuleContent:
			if idx := bytes.Index(payload, r.Pattern); idx >= 0 {
				matches = append(matches, Match{Rule: r, Offset: int64(idx)})
			}
		case netwatchtypes.RuleSnort, netwatchtypes.RuleYara, netwatchtypes.RuleBehavioral:
			// content-equivalent fallback: these rule types carry a raw
			// byte signature in Pattern in this implementation, since
			// full Snort/YARA rule-language parsing is out of scope.
			if idx := bytes.Index(payload, r.Pattern); idx >= 0 {
				matches = append(matches, Match{Rule: r, Offset: int64(idx)})
			}
		}
	}
	return matches
}

// All returns a snapshot of every rule currently in the engine.
func (e *Engine) All() []netwatchtypes.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]netwatchtypes.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}
