package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistersAllSeries(t *testing.T) {
	m := New()
	m.PacketsReceived.Inc()
	m.ProtocolPackets.WithLabelValues("HTTP").Inc()

	families, err := m.Registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PacketsReceived))
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	m1 := New()
	m2 := New()
	assert.NotPanics(t, func() {
		m1.PacketsReceived.Inc()
		m2.PacketsReceived.Inc()
	})
}
