package observability

import "sync"

// Metrics provides basic in-memory counters for the sync layer.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// Counter names used across the module.
const (
	MetricFramesDelivered  = "realtime.frames_delivered"
	MetricFramesDuplicate  = "realtime.frames_duplicate"
	MetricSequenceGaps     = "realtime.sequence_gaps"
	MetricReconnects       = "realtime.reconnects"
	MetricRESTRequests     = "rest.requests"
	MetricRESTErrors       = "rest.errors"
	MetricRemindersSent    = "scheduler.reminders_sent"
	MetricReminderFailures = "scheduler.reminder_failures"
	MetricSyncConflicts    = "store.sync_conflicts"
	MetricRelayRequests    = "relay.requests"
)

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// Inc increments the named counter.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Value returns the current value of the named counter.
func (m *Metrics) Value(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
