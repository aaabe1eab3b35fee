package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jusdesk/portal-sync/internal/api/rest"
)

// Notice is a transient, user-facing message produced when a store
// operation fails recoverably. Notices replace exceptions: stores
// never let network errors escape their boundary.
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// NoticeSink receives transient notices.
type NoticeSink interface {
	Notify(level, message string)
}

// MemoryNotices keeps the most recent notices in a ring.
type MemoryNotices struct {
	mu      sync.Mutex
	entries []Notice
	limit   int
}

// NewMemoryNotices builds a sink retaining up to limit notices.
func NewMemoryNotices(limit int) *MemoryNotices {
	if limit <= 0 {
		limit = 50
	}
	return &MemoryNotices{limit: limit}
}

// Notify records a notice, evicting the oldest past the limit.
func (n *MemoryNotices) Notify(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, Notice{Level: level, Message: message, Time: time.Now()})
	if len(n.entries) > n.limit {
		n.entries = n.entries[len(n.entries)-n.limit:]
	}
}

// Recent returns a copy of the retained notices, oldest first.
func (n *MemoryNotices) Recent() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice{}, n.entries...)
}

// failureMessage extracts a human-readable message from a store-level
// error, preferring the REST client's message when present.
func failureMessage(err error) string {
	var restErr *rest.Error
	if errors.As(err, &restErr) {
		return restErr.Message
	}
	return err.Error()
}
