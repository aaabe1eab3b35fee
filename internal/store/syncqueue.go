package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jusdesk/portal-sync/internal/persistence"
)

// OpKind enumerates local-first mutations awaiting reconciliation.
type OpKind string

const (
	OpUpsert OpKind = "UPSERT"
	OpRemove OpKind = "REMOVE"
)

// PendingOp records one local mutation that has no server confirmation
// yet. BaseVersion is the cache version the mutation was applied
// against; a differing authoritative version at reconcile time means
// the local and remote copies diverged.
type PendingOp struct {
	ID          string          `json:"id"`
	Collection  string          `json:"collection"`
	EntityID    string          `json:"entityId"`
	Kind        OpKind          `json:"kind"`
	BaseVersion uint64          `json:"baseVersion"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	QueuedAt    time.Time       `json:"queuedAt"`
}

// Conflict pairs a pending operation with the authoritative version it
// lost against.
type Conflict struct {
	Op                 PendingOp
	AuthoritativeValue uint64
}

// SyncQueue holds pending local operations, persisted alongside the
// collections they mutate so queued work survives a restart.
type SyncQueue struct {
	mu    sync.Mutex
	ops   []PendingOp
	cache Persister
}

// Persister is the slice of the local cache the store layer needs.
type Persister interface {
	SaveJSON(ctx context.Context, key string, value any) error
	LoadJSON(ctx context.Context, key string, out any) error
	Delete(ctx context.Context, key string) error
}

// NewSyncQueue builds the queue and rehydrates persisted operations.
func NewSyncQueue(ctx context.Context, cache Persister) *SyncQueue {
	q := &SyncQueue{cache: cache}
	if cache != nil {
		var ops []PendingOp
		if err := cache.LoadJSON(ctx, persistence.KeySyncQueue, &ops); err == nil {
			q.ops = ops
		} else if !errors.Is(err, persistence.ErrNotFound) {
			q.ops = nil
		}
	}
	return q
}

// Enqueue records one pending operation and persists the queue.
func (q *SyncQueue) Enqueue(ctx context.Context, op PendingOp) PendingOp {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.QueuedAt.IsZero() {
		op.QueuedAt = time.Now()
	}

	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	q.persist(ctx)
	return op
}

// Ack removes a reconciled operation from the queue.
func (q *SyncQueue) Ack(ctx context.Context, opID string) {
	q.mu.Lock()
	kept := q.ops[:0]
	for _, op := range q.ops {
		if op.ID != opID {
			kept = append(kept, op)
		}
	}
	q.ops = kept
	q.mu.Unlock()

	q.persist(ctx)
}

// Pending returns a copy of the queued operations in queue order.
func (q *SyncQueue) Pending() []PendingOp {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]PendingOp{}, q.ops...)
}

// Conflicts reports the queued operations whose base version no longer
// matches the authoritative version reported by currentVersion. These
// are surfaced, not silently overwritten.
func (q *SyncQueue) Conflicts(currentVersion func(collection, entityID string) uint64) []Conflict {
	q.mu.Lock()
	defer q.mu.Unlock()

	var conflicts []Conflict
	for _, op := range q.ops {
		authoritative := currentVersion(op.Collection, op.EntityID)
		if authoritative != op.BaseVersion {
			conflicts = append(conflicts, Conflict{Op: op, AuthoritativeValue: authoritative})
		}
	}
	return conflicts
}

func (q *SyncQueue) persist(ctx context.Context) {
	if q.cache == nil {
		return
	}
	q.mu.Lock()
	snapshot := append([]PendingOp{}, q.ops...)
	q.mu.Unlock()
	_ = q.cache.SaveJSON(ctx, persistence.KeySyncQueue, snapshot)
}
