package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func TestAddRemoveRoundTrip(t *testing.T) {
	e := New()

	id, err := e.Add(netwatchtypes.Rule{
		Type:    netwatchtypes.RuleRegex,
		Name:    "evil-pattern",
		Pattern: []byte("evil"),
		Enabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, 1, e.Len())

	require.NoError(t, e.Remove(id))
	assert.Equal(t, 0, e.Len())

	err = e.Remove(id)
	assert.ErrorIs(t, err, netwatchtypes.ErrNotFound)
}

func TestAddRejectsInvalidRegex(t *testing.T) {
	e := New()
	_, err := e.Add(netwatchtypes.Rule{
		Type:    netwatchtypes.RuleRegex,
		Pattern: []byte("("), // unbalanced
		Enabled: true,
	})
	assert.ErrorIs(t, err, netwatchtypes.ErrCompileError)
	assert.Equal(t, 0, e.Len())
}

func TestRuleIDsNeverReused(t *testing.T) {
	e := New()
	id1, _ := e.Add(netwatchtypes.Rule{Type: netwatchtypes.RuleContent, Pattern: []byte("a"), Enabled: true})
	require.NoError(t, e.Remove(id1))
	id2, _ := e.Add(netwatchtypes.Rule{Type: netwatchtypes.RuleContent, Pattern: []byte("b"), Enabled: true})
	assert.NotEqual(t, id1, id2)
}

func TestEvaluateRespectsScopeAndEnabled(t *testing.T) {
	e := New()
	e.Add(netwatchtypes.Rule{
		Type:    netwatchtypes.RuleContent,
		Pattern: []byte("password"),
		Enabled: true,
		Scope:   netwatchtypes.RuleScope{Protocol: netwatchtypes.ProtoHTTP},
	})
	e.Add(netwatchtypes.Rule{
		Type:    netwatchtypes.RuleContent,
		Pattern: []byte("password"),
		Enabled: false,
		Scope:   netwatchtypes.RuleScope{Protocol: netwatchtypes.ProtoHTTP},
	})

	matches := e.Evaluate(netwatchtypes.ProtoHTTP, 80, []byte("user=bob&password=hunter2"))
	assert.Len(t, matches, 1, "only the enabled rule should match")

	matches = e.Evaluate(netwatchtypes.ProtoDNS, 53, []byte("user=bob&password=hunter2"))
	assert.Empty(t, matches, "rule scoped to HTTP must not match DNS sessions")
}

func TestEvaluateRegexMatch(t *testing.T) {
	e := New()
	e.Add(netwatchtypes.Rule{
		Type:    netwatchtypes.RuleRegex,
		Pattern: []byte("ev+il"),
		Enabled: true,
	})
	matches := e.Evaluate(netwatchtypes.ProtoUnknown, 0, []byte("this is EVIL content"))
	assert.Len(t, matches, 1)
}
