package live

import (
	"image"
	"sync"
	"sync/atomic"
)

// Mailbox keeps only the most recent camera frame. A frame replaced before
// any tick read it counts as dropped.
type Mailbox struct {
	mu     sync.Mutex
	latest *image.RGBA
	unread bool

	received atomic.Uint64
	dropped  atomic.Uint64
}

func (m *Mailbox) Put(img *image.RGBA) {
	m.mu.Lock()
	if m.unread {
		m.dropped.Add(1)
	}
	m.latest = img
	m.unread = img != nil
	m.mu.Unlock()
	m.received.Add(1)
}

// Latest returns the newest frame, or nil. It stays available for later ticks.
func (m *Mailbox) Latest() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unread = false
	return m.latest
}

func (m *Mailbox) Received() uint64 { return m.received.Load() }
func (m *Mailbox) Dropped() uint64  { return m.dropped.Load() }
