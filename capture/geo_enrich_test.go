package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadl0ck/netwatch/capture/backend"
	"github.com/dreadl0ck/netwatch/geo"
)

func TestEnrichFlowsGeoNilResolverReturnsNil(t *testing.T) {
	mock := &backend.Mock{Frames: []backend.Frame{
		{Data: buildTestFrame(t, []byte("GET / HTTP/1.1\r\n"))},
	}}
	s := newTestSession(t, mock)
	_, err := s.Poll(10, 100*time.Millisecond, nil)
	require.NoError(t, err)

	assert.Nil(t, s.EnrichFlowsGeo(nil))
}

func TestEnrichFlowsGeoZeroValueResolverOmitsLocations(t *testing.T) {
	mock := &backend.Mock{Frames: []backend.Frame{
		{Data: buildTestFrame(t, []byte("GET / HTTP/1.1\r\n"))},
	}}
	s := newTestSession(t, mock)
	_, err := s.Poll(10, 100*time.Millisecond, nil)
	require.NoError(t, err)

	infos := s.EnrichFlowsGeo(&geo.Resolver{})
	require.Len(t, infos, 1)
	assert.Equal(t, geo.Location{}, infos[0].Src)
	assert.Equal(t, geo.Location{}, infos[0].Dst)
}
