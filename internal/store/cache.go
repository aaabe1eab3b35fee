package store

import (
	"sort"
	"sync"
)

// Table is one collection inside the normalized entity cache: a single
// authoritative copy of each entity keyed by id. Derived and filtered
// views are computed on read, never maintained as separately mutated
// copies. Each upsert bumps a per-id version used by the sync queue
// for conflict detection.
type Table[T any] struct {
	mu      sync.RWMutex
	byID    map[string]T
	version map[string]uint64
	id      func(T) string
	less    func(a, b T) bool
}

// NewTable builds an empty table. id extracts the entity key; less
// orders snapshots (typically creation time ascending).
func NewTable[T any](id func(T) string, less func(a, b T) bool) *Table[T] {
	return &Table[T]{
		byID:    make(map[string]T),
		version: make(map[string]uint64),
		id:      id,
		less:    less,
	}
}

// ReplaceAll swaps the table contents for the given entities. Versions
// restart at one; pending operations stamped against the old contents
// become detectable conflicts.
func (t *Table[T]) ReplaceAll(entities []T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID = make(map[string]T, len(entities))
	t.version = make(map[string]uint64, len(entities))
	for _, entity := range entities {
		key := t.id(entity)
		t.byID[key] = entity
		t.version[key] = 1
	}
}

// Upsert folds one entity into the table by identifier match.
func (t *Table[T]) Upsert(entity T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := t.id(entity)
	t.byID[key] = entity
	t.version[key]++
}

// Delete removes the entity. Unknown ids are a no-op.
func (t *Table[T]) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
	delete(t.version, id)
}

// Get returns the entity and whether it is present.
func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entity, ok := t.byID[id]
	return entity, ok
}

// Version returns the current version stamp for id, zero when absent.
func (t *Table[T]) Version(id string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version[id]
}

// Len returns the number of entities held.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Snapshot returns an ordered copy of the full collection.
func (t *Table[T]) Snapshot() []T {
	return t.View(nil)
}

// View returns an ordered copy of the entities matching keep. A nil
// predicate keeps everything.
func (t *Table[T]) View(keep func(T) bool) []T {
	t.mu.RLock()
	out := make([]T, 0, len(t.byID))
	for _, entity := range t.byID {
		if keep == nil || keep(entity) {
			out = append(out, entity)
		}
	}
	t.mu.RUnlock()

	if t.less != nil {
		sort.Slice(out, func(i, j int) bool { return t.less(out[i], out[j]) })
	}
	return out
}
