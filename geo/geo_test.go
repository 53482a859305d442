package geo

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

func TestZeroValueResolverReturnsNotFound(t *testing.T) {
	var r Resolver
	_, err := r.Lookup(net.ParseIP("8.8.8.8"))
	assert.ErrorIs(t, err, netwatchtypes.ErrNotFound)
}

func TestNilResolverReturnsNotFound(t *testing.T) {
	var r *Resolver
	_, err := r.Lookup(net.ParseIP("8.8.8.8"))
	assert.ErrorIs(t, err, netwatchtypes.ErrNotFound)
}

func TestOpenMissingFileReturnsBackendUnavailable(t *testing.T) {
	_, err := Open("/nonexistent/GeoLite2-City.mmdb")
	assert.ErrorIs(t, err, netwatchtypes.ErrBackendUnavailable)
}

func TestCloseOnNilIsNoop(t *testing.T) {
	var r *Resolver
	assert.NoError(t, r.Close())
}
