package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/domain"
	"github.com/jusdesk/portal-sync/internal/events"
	"github.com/jusdesk/portal-sync/internal/observability"
	"github.com/jusdesk/portal-sync/internal/persistence"
	"github.com/jusdesk/portal-sync/internal/remote"
)

const calendarCollection = "calendar"

// CalendarDependencies bundles collaborators for the calendar store.
type CalendarDependencies struct {
	API        remote.CalendarAPI
	Cache      Persister
	Queue      *SyncQueue
	Dispatcher events.Dispatcher
	Notices    NoticeSink
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// CalendarStore holds user-created calendar events. Events are
// local-first: mutations apply to local state immediately, persist to
// the durable cache, and are recorded as pending operations with a
// version stamp so divergence from any later authoritative copy is
// detectable rather than silently overwritten.
type CalendarStore struct {
	api        remote.CalendarAPI
	table      *Table[domain.CalendarEvent]
	cache      Persister
	queue      *SyncQueue
	dispatcher events.Dispatcher
	notices    NoticeSink
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewCalendarStore builds the store and rehydrates persisted events.
func NewCalendarStore(ctx context.Context, deps CalendarDependencies) *CalendarStore {
	s := &CalendarStore{
		api:        deps.API,
		table:      newCalendarTable(),
		cache:      deps.Cache,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
		notices:    deps.Notices,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}

	if deps.Cache != nil {
		var saved []domain.CalendarEvent
		if err := deps.Cache.LoadJSON(ctx, persistence.KeyCalendar, &saved); err == nil {
			s.table.ReplaceAll(saved)
		} else if !errors.Is(err, persistence.ErrNotFound) {
			deps.Logger.Warn("calendar snapshot rehydration failed", zap.Error(err))
		}
	}
	return s
}

func newCalendarTable() *Table[domain.CalendarEvent] {
	return NewTable(
		func(e domain.CalendarEvent) string { return e.ID },
		func(a, b domain.CalendarEvent) bool {
			if !a.Start.Equal(b.Start) {
				return a.Start.Before(b.Start)
			}
			return a.ID < b.ID
		},
	)
}

// Add creates a local event. Missing ids get a client-generated uuid.
func (s *CalendarStore) Add(ctx context.Context, event domain.CalendarEvent) domain.CalendarEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	base := s.table.Version(event.ID)
	s.table.Upsert(event)
	s.persist(ctx)
	s.enqueue(ctx, OpUpsert, event.ID, base, event)
	s.dispatcher.Publish(ctx, events.Event{Type: events.EventCalendarChanged, EntityID: event.ID})
	return event
}

// Remove deletes a local event. Unknown ids are a no-op.
func (s *CalendarStore) Remove(ctx context.Context, eventID string) {
	if _, found := s.table.Get(eventID); !found {
		return
	}
	base := s.table.Version(eventID)
	s.table.Delete(eventID)
	s.persist(ctx)
	s.enqueue(ctx, OpRemove, eventID, base, nil)
	s.dispatcher.Publish(ctx, events.Event{Type: events.EventCalendarChanged, EntityID: eventID})
}

// MarkNotified flips the notified flag, the only mutable field after
// creation. It reports false when the event is unknown or already
// notified, keeping reminder sends idempotent across scheduler ticks.
func (s *CalendarStore) MarkNotified(ctx context.Context, eventID string) bool {
	event, found := s.table.Get(eventID)
	if !found || event.Notified {
		return false
	}
	event.Notified = true
	s.table.Upsert(event)
	s.persist(ctx)
	return true
}

// Events returns a copy of the collection ordered by start time.
func (s *CalendarStore) Events() []domain.CalendarEvent {
	return s.table.Snapshot()
}

// Due is a derived view: events whose reminder window contains now.
func (s *CalendarStore) Due(now time.Time) []domain.CalendarEvent {
	return s.table.View(func(e domain.CalendarEvent) bool { return e.NeedsReminder(now) })
}

// Get returns one event by id.
func (s *CalendarStore) Get(eventID string) (domain.CalendarEvent, bool) {
	return s.table.Get(eventID)
}

// Pending returns the queued local operations for this collection.
func (s *CalendarStore) Pending() []PendingOp {
	var ops []PendingOp
	for _, op := range s.queue.Pending() {
		if op.Collection == calendarCollection {
			ops = append(ops, op)
		}
	}
	return ops
}

// Load fetches the authoritative event collection and reconciles the
// pending queue against it. Unlike the server-first stores, a fetch
// failure keeps local state untouched: calendar entries are created
// locally and must not vanish because the backend was unreachable.
func (s *CalendarStore) Load(ctx context.Context) ([]domain.CalendarEvent, bool) {
	if s.api == nil {
		return s.Events(), true
	}
	authoritative, err := s.api.List(ctx)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		s.logger.Warn("calendar load failed", zap.Error(err))
		return s.Events(), false
	}
	s.Reconcile(ctx, authoritative)
	return s.Events(), true
}

// Reconcile folds an authoritative snapshot into local state and
// reports the pending operations that diverged from it. An operation
// is acknowledged only when the snapshot actually reflects it: an
// upsert whose entity the server holds, or a removal of an entity the
// server no longer holds. Operations the server has not seen yet are
// re-applied on top of the snapshot and stay queued, so reconciling
// never wipes an unsynced local change.
func (s *CalendarStore) Reconcile(ctx context.Context, authoritative []domain.CalendarEvent) []Conflict {
	known := make(map[string]struct{}, len(authoritative))
	for _, event := range authoritative {
		known[event.ID] = struct{}{}
	}
	previous := make(map[string]domain.CalendarEvent)
	for _, event := range s.table.Snapshot() {
		previous[event.ID] = event
	}
	s.table.ReplaceAll(authoritative)

	conflicts := s.queue.Conflicts(func(collection, entityID string) uint64 {
		if collection != calendarCollection {
			return 0
		}
		return s.table.Version(entityID)
	})

	conflicted := make(map[string]struct{}, len(conflicts))
	var own []Conflict
	for _, c := range conflicts {
		if c.Op.Collection != calendarCollection {
			continue
		}
		// A removal of an entity the server no longer holds is the
		// server agreeing, not diverging, even though the version
		// stamps differ.
		if _, present := known[c.Op.EntityID]; c.Op.Kind == OpRemove && !present {
			continue
		}
		conflicted[c.Op.ID] = struct{}{}
		own = append(own, c)
	}

	for _, op := range s.Pending() {
		if _, diverged := conflicted[op.ID]; diverged {
			continue
		}
		_, present := known[op.EntityID]
		switch {
		case op.Kind == OpUpsert && present:
			s.queue.Ack(ctx, op.ID)
		case op.Kind == OpRemove && !present:
			s.queue.Ack(ctx, op.ID)
		case op.Kind == OpUpsert:
			// The server has not seen this create yet. The pre-snapshot
			// local copy carries mutations made after the op was queued
			// (the notified flag); its absence means the entity was also
			// removed locally, so there is nothing left to sync.
			if event, ok := previous[op.EntityID]; ok {
				s.table.Upsert(event)
			} else {
				s.queue.Ack(ctx, op.ID)
			}
		case op.Kind == OpRemove:
			s.table.Delete(op.EntityID)
		}
	}
	s.persist(ctx)

	if len(own) > 0 {
		s.notices.Notify("warn", "calendar changes conflict with server state")
		for range own {
			s.metrics.Inc(observability.MetricSyncConflicts)
		}
	}
	return own
}

func (s *CalendarStore) enqueue(ctx context.Context, kind OpKind, entityID string, base uint64, payload any) {
	if s.queue == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		if encoded, err := json.Marshal(payload); err == nil {
			raw = encoded
		}
	}
	s.queue.Enqueue(ctx, PendingOp{
		Collection:  calendarCollection,
		EntityID:    entityID,
		Kind:        kind,
		BaseVersion: base,
		Payload:     raw,
	})
}

func (s *CalendarStore) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveJSON(ctx, persistence.KeyCalendar, s.table.Snapshot()); err != nil {
		s.logger.Warn("calendar snapshot persist failed", zap.Error(err))
	}
}
