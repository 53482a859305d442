package netwatchtypes

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json.gz")

	w, err := NewExportWriter(path)
	require.NoError(t, err)

	alerts := []Alert{
		{AlertID: 1, RuleName: "evil-pattern", Severity: 80},
		{AlertID: 2, RuleName: "another-rule", Severity: 40},
	}
	for _, a := range alerts {
		require.NoError(t, w.WriteRecord(a))
	}
	assert.Equal(t, int64(2), w.Records())
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	dec := json.NewDecoder(bufio.NewReader(gz))
	var got []Alert
	for dec.More() {
		var a Alert
		require.NoError(t, dec.Decode(&a))
		got = append(got, a)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "evil-pattern", got[0].RuleName)
	assert.Equal(t, "another-rule", got[1].RuleName)
}
