package gamepad

import (
	"sync"
	"time"
)

// RemoteSource holds snapshots pushed by the operator UI. A snapshot older
// than staleAfter is reported as no controller present.
type RemoteSource struct {
	mu         sync.RWMutex
	latest     Snapshot
	updatedAt  time.Time
	staleAfter time.Duration
	now        func() time.Time
}

// NewRemoteSource creates a RemoteSource. staleAfter <= 0 disables expiry.
func NewRemoteSource(staleAfter time.Duration) *RemoteSource {
	return &RemoteSource{staleAfter: staleAfter, now: time.Now}
}

// Update replaces the current snapshot.
func (r *RemoteSource) Update(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = snap
	r.updatedAt = r.now()
}

// Clear drops the current snapshot, e.g. when the UI disconnects.
func (r *RemoteSource) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = Disconnected
	r.updatedAt = time.Time{}
}

// Poll implements Source.
func (r *RemoteSource) Poll() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.latest.Connected {
		return Disconnected
	}
	if r.staleAfter > 0 && r.now().Sub(r.updatedAt) > r.staleAfter {
		return Disconnected
	}
	return r.latest
}
