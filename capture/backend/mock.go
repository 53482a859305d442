package backend

import (
	"time"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// Mock is an in-memory Backend for tests and for the capture package's
// own unit tests — it never touches libpcap or any device, queueing
// preloaded frames for ReadFrame to hand out in order.
type Mock struct {
	Frames []Frame
	pos    int
	filter string
	opened bool

	OpenErr error
}

func (m *Mock) Kind() Kind { return KindPCAP }

func (m *Mock) Open(iface string, snaplen int, filter string) error {
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.filter = filter
	m.opened = true
	return nil
}

func (m *Mock) SetFilter(filter string) error {
	m.filter = filter
	return nil
}

func (m *Mock) ReadFrame(timeout time.Duration) (Frame, bool, error) {
	if !m.opened {
		return Frame{}, false, netwatchtypes.ErrNotRunning
	}
	if m.pos >= len(m.Frames) {
		return Frame{}, false, nil
	}
	f := m.Frames[m.pos]
	m.pos++
	return f, true, nil
}

func (m *Mock) Close() error {
	m.opened = false
	return nil
}
