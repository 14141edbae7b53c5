package teleop

import (
	"sync"
	"time"
)

// DefaultReportInterval is the minimum spacing between surfaced transmit failures.
const DefaultReportInterval = 10 * time.Second

// ReportThrottle decides whether a failure is surfaced. The first failure is
// always surfaced; later ones only once interval has passed since the last
// surfaced one.
type ReportThrottle struct {
	mu           sync.Mutex
	interval     time.Duration
	now          func() time.Time
	lastReported time.Time
}

// NewReportThrottle creates a throttle. A nil clock uses time.Now.
func NewReportThrottle(interval time.Duration, now func() time.Time) *ReportThrottle {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &ReportThrottle{interval: interval, now: now}
}

// Allow reports whether a failure happening now should be surfaced and, if so,
// records it.
func (r *ReportThrottle) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	if !r.lastReported.IsZero() && t.Sub(r.lastReported) < r.interval {
		return false
	}
	r.lastReported = t
	return true
}
