package diagnostic

import (
	"context"
	"sync"
	"time"
)

// HeartbeatMonitor fires a timeout when no heartbeat has been seen for the
// configured duration. It fires at most once per Beat.
type HeartbeatMonitor struct {
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
	fired    bool
}

// NewHeartbeatMonitor creates a monitor checking every interval.
func NewHeartbeatMonitor(timeout, interval time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &HeartbeatMonitor{
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
		lastSeen: time.Now(),
	}
}

// Beat records a heartbeat and re-arms the timeout.
func (m *HeartbeatMonitor) Beat() {
	m.mu.Lock()
	m.lastSeen = m.now()
	m.fired = false
	m.mu.Unlock()
}

// Expired reports whether the timeout elapsed and has not fired yet. A true
// result consumes the timeout.
func (m *HeartbeatMonitor) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fired || m.now().Sub(m.lastSeen) <= m.timeout {
		return false
	}
	m.fired = true
	return true
}

// Run checks for expiry until ctx is done and calls onTimeout when it happens.
func (m *HeartbeatMonitor) Run(ctx context.Context, onTimeout func()) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.Expired() {
				onTimeout()
			}
		}
	}
}
