package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/domain"
	"github.com/jusdesk/portal-sync/internal/events"
	"github.com/jusdesk/portal-sync/internal/observability"
)

// fakeCalendarAPI serves a fixed authoritative snapshot.
type fakeCalendarAPI struct {
	events []domain.CalendarEvent
	fail   bool
}

func (f *fakeCalendarAPI) List(context.Context) ([]domain.CalendarEvent, error) {
	if f.fail {
		return nil, errUpstream
	}
	return append([]domain.CalendarEvent{}, f.events...), nil
}

func newCalendarFixture(cache *memCache) (*CalendarStore, *MemoryNotices, *observability.Metrics) {
	return newCalendarFixtureWithAPI(cache, nil)
}

func newCalendarFixtureWithAPI(cache *memCache, api *fakeCalendarAPI) (*CalendarStore, *MemoryNotices, *observability.Metrics) {
	ctx := context.Background()
	notices := NewMemoryNotices(10)
	metrics := observability.NewMetrics()
	deps := CalendarDependencies{
		Cache:      cache,
		Queue:      NewSyncQueue(ctx, cache),
		Dispatcher: events.NewInMemoryDispatcher(),
		Notices:    notices,
		Metrics:    metrics,
		Logger:     zap.NewNop(),
	}
	if api != nil {
		deps.API = api
	}
	return NewCalendarStore(ctx, deps), notices, metrics
}

func TestCalendarAddAssignsIDAndQueues(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCalendarFixture(newMemCache())

	event := store.Add(ctx, domain.CalendarEvent{
		Title: "Audiência trabalhista",
		Start: time.Now().Add(48 * time.Hour),
	})
	assert.NotEmpty(t, event.ID, "missing ids get a client-generated one")

	pending := store.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, OpUpsert, pending[0].Kind)
	assert.Equal(t, event.ID, pending[0].EntityID)
	assert.Zero(t, pending[0].BaseVersion, "created against an absent entity")
}

func TestCalendarSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	store, _, _ := newCalendarFixture(cache)

	store.Add(ctx, domain.CalendarEvent{ID: "e1", Title: "Prazo recursal", Start: time.Unix(2000, 0)})
	store.Add(ctx, domain.CalendarEvent{ID: "e2", Title: "Reunião", Start: time.Unix(1000, 0)})

	rehydrated, _, _ := newCalendarFixture(cache)
	got := rehydrated.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "e2", got[0].ID, "ordered by start time")
	assert.Len(t, rehydrated.Pending(), 2, "queued operations survive too")
}

func TestCalendarRemove(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCalendarFixture(newMemCache())

	store.Add(ctx, domain.CalendarEvent{ID: "e1", Start: time.Now()})
	store.Remove(ctx, "e1")
	store.Remove(ctx, "missing") // no-op

	assert.Empty(t, store.Events())
	pending := store.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, OpRemove, pending[1].Kind)
	assert.Equal(t, uint64(1), pending[1].BaseVersion)
}

func TestCalendarMarkNotifiedIdempotent(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	store, _, _ := newCalendarFixture(cache)

	store.Add(ctx, domain.CalendarEvent{ID: "e1", Start: time.Now().Add(time.Hour), NotifyLeadMinutes: 90})

	assert.True(t, store.MarkNotified(ctx, "e1"))
	assert.False(t, store.MarkNotified(ctx, "e1"), "second mark is rejected")
	assert.False(t, store.MarkNotified(ctx, "missing"))

	rehydrated, _, _ := newCalendarFixture(cache)
	got, ok := rehydrated.Get("e1")
	require.True(t, ok)
	assert.True(t, got.Notified, "flag persists across restarts")
}

func TestCalendarDueView(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCalendarFixture(newMemCache())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.Add(ctx, domain.CalendarEvent{ID: "due", Start: now.Add(20 * time.Minute), NotifyLeadMinutes: 30})
	store.Add(ctx, domain.CalendarEvent{ID: "early", Start: now.Add(2 * time.Hour), NotifyLeadMinutes: 30})
	store.Add(ctx, domain.CalendarEvent{ID: "past", Start: now.Add(-time.Minute), NotifyLeadMinutes: 30})
	store.Add(ctx, domain.CalendarEvent{ID: "silent", Start: now.Add(20 * time.Minute)})

	due := store.Due(now)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestCalendarReconcileSurfacesDivergence(t *testing.T) {
	ctx := context.Background()
	store, notices, metrics := newCalendarFixture(newMemCache())

	local := store.Add(ctx, domain.CalendarEvent{ID: "e1", Title: "local copy", Start: time.Unix(1000, 0)})
	store.Add(ctx, domain.CalendarEvent{ID: "e2", Title: "unseen by server", Start: time.Unix(2000, 0)})

	// The server also holds e1, under a different copy. The local
	// create was stamped against version 0, so it must surface as a
	// conflict instead of being silently dropped or overwritten.
	authoritative := []domain.CalendarEvent{
		{ID: "e1", Title: "server copy", Start: time.Unix(1500, 0)},
	}
	conflicts := store.Reconcile(ctx, authoritative)

	require.Len(t, conflicts, 1)
	assert.Equal(t, local.ID, conflicts[0].Op.EntityID)
	assert.Equal(t, uint64(1), conflicts[0].AuthoritativeValue)
	requireNoticeLevel(t, notices, "warn")
	assert.Equal(t, int64(1), metrics.Value(observability.MetricSyncConflicts))

	got, ok := store.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "server copy", got.Title, "authoritative snapshot wins the cache")

	got, ok = store.Get("e2")
	require.True(t, ok, "unsynced local create survives the snapshot")
	assert.Equal(t, "unseen by server", got.Title)

	pending := store.Pending()
	require.Len(t, pending, 2, "both the conflict and the unsynced create stay queued")
}

func TestCalendarReconcileKeepsUnsyncedCreate(t *testing.T) {
	ctx := context.Background()
	store, notices, _ := newCalendarFixture(newMemCache())

	event := store.Add(ctx, domain.CalendarEvent{
		ID:    "local-only",
		Title: "Consulta presencial",
		Start: time.Unix(5000, 0),
	})
	require.True(t, store.MarkNotified(ctx, event.ID))

	conflicts := store.Reconcile(ctx, nil)

	assert.Empty(t, conflicts, "an unseen create is not a conflict")
	assert.Empty(t, notices.Recent())

	got, ok := store.Get("local-only")
	require.True(t, ok, "an empty snapshot must not wipe the unsynced event")
	assert.True(t, got.Notified, "post-create mutations survive the replay")

	pending := store.Pending()
	require.Len(t, pending, 1, "the create stays queued until the server reflects it")
	assert.Equal(t, OpUpsert, pending[0].Kind)
}

func TestCalendarReconcileAcksReflectedOps(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newCalendarFixture(newMemCache())

	store.Add(ctx, domain.CalendarEvent{ID: "e1", Start: time.Unix(1000, 0)})
	store.Remove(ctx, "e1")

	conflicts := store.Reconcile(ctx, nil)

	assert.Empty(t, conflicts)
	assert.Empty(t, store.Events(), "a locally removed event is not resurrected")
	assert.Empty(t, store.Pending(), "create and remove cancel out once the server agrees")
}

func TestCalendarLoadReconcilesQueue(t *testing.T) {
	ctx := context.Background()
	api := &fakeCalendarAPI{events: []domain.CalendarEvent{
		{ID: "srv", Title: "Julgamento", Start: time.Unix(3000, 0)},
	}}
	store, _, _ := newCalendarFixtureWithAPI(newMemCache(), api)

	store.Add(ctx, domain.CalendarEvent{ID: "local", Title: "Reunião", Start: time.Unix(1000, 0)})

	got, ok := store.Load(ctx)
	require.True(t, ok)
	require.Len(t, got, 2, "server events merge with the unsynced local one")
	assert.Equal(t, "local", got[0].ID)
	assert.Equal(t, "srv", got[1].ID)
	assert.Len(t, store.Pending(), 1, "the local create is still awaiting the server")
}

func TestCalendarLoadFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	api := &fakeCalendarAPI{fail: true}
	store, notices, _ := newCalendarFixtureWithAPI(newMemCache(), api)

	store.Add(ctx, domain.CalendarEvent{ID: "local", Start: time.Unix(1000, 0)})

	got, ok := store.Load(ctx)
	assert.False(t, ok)
	require.Len(t, got, 1, "an unreachable backend does not empty the agenda")
	assert.Len(t, store.Pending(), 1)
	requireNoticeLevel(t, notices, "error")
}
