package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/domain"
	"github.com/jusdesk/portal-sync/internal/events"
	"github.com/jusdesk/portal-sync/internal/persistence"
	"github.com/jusdesk/portal-sync/internal/remote"
)

// ticketSnapshot is the persisted shape of the ticket collection and
// its chat threads.
type ticketSnapshot struct {
	Tickets []domain.Ticket             `json:"tickets"`
	Threads map[string][]domain.Message `json:"threads"`
}

// TicketDependencies bundles collaborators for the ticket store.
type TicketDependencies struct {
	API        remote.TicketAPI
	Cache      Persister
	Dispatcher events.Dispatcher
	Notices    NoticeSink
	Logger     *zap.Logger
}

// TicketStore holds the authoritative client-side copy of the ticket
// collection and its chat threads, synchronized with the backend and
// with realtime pushes. Failed operations leave the store valid and
// route a notice; they never raise past the store boundary.
type TicketStore struct {
	api        remote.TicketAPI
	table      *Table[domain.Ticket]
	cache      Persister
	dispatcher events.Dispatcher
	notices    NoticeSink
	logger     *zap.Logger

	mu      sync.RWMutex
	threads map[string][]domain.Message
	seen    map[string]struct{}
}

// NewTicketStore builds the store and rehydrates the persisted
// snapshot so state survives a restart without a network round trip.
func NewTicketStore(ctx context.Context, deps TicketDependencies) *TicketStore {
	s := &TicketStore{
		api:        deps.API,
		table:      newTicketTable(),
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		notices:    deps.Notices,
		logger:     deps.Logger,
		threads:    make(map[string][]domain.Message),
		seen:       make(map[string]struct{}),
	}

	if deps.Cache != nil {
		var snapshot ticketSnapshot
		if err := deps.Cache.LoadJSON(ctx, persistence.KeyTickets, &snapshot); err == nil {
			s.table.ReplaceAll(snapshot.Tickets)
			if snapshot.Threads != nil {
				s.threads = snapshot.Threads
			}
			for _, thread := range s.threads {
				for _, msg := range thread {
					s.seen[msg.ID] = struct{}{}
				}
			}
		} else if !errors.Is(err, persistence.ErrNotFound) {
			deps.Logger.Warn("ticket snapshot rehydration failed", zap.Error(err))
		}
	}
	return s
}

func newTicketTable() *Table[domain.Ticket] {
	return NewTable(
		func(t domain.Ticket) string { return t.ID },
		func(a, b domain.Ticket) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		},
	)
}

// Load fetches the full collection, replacing local state entirely on
// success. Tickets the authoritative snapshot no longer contains are
// announced as removals. On failure local state resets to empty and
// the error is surfaced as a notice; ok reports which path was taken.
func (s *TicketStore) Load(ctx context.Context) (tickets []domain.Ticket, ok bool) {
	fetched, err := s.api.List(ctx)
	if err != nil {
		s.table.ReplaceAll(nil)
		s.persist(ctx)
		s.notices.Notify("error", failureMessage(err))
		s.logger.Warn("ticket load failed", zap.Error(err))
		return []domain.Ticket{}, false
	}

	previous := s.table.Snapshot()
	s.table.ReplaceAll(fetched)
	s.persist(ctx)

	kept := make(map[string]struct{}, len(fetched))
	for _, t := range fetched {
		kept[t.ID] = struct{}{}
	}
	for _, old := range previous {
		if _, still := kept[old.ID]; !still {
			s.dispatcher.Publish(ctx, events.Event{
				Type:     events.EventTicketRemoved,
				EntityID: old.ID,
			})
		}
	}
	return s.table.Snapshot(), true
}

// Create issues the server call first, then folds the returned entity
// (with server-assigned id and timestamps) into local state.
func (s *TicketStore) Create(ctx context.Context, input remote.TicketCreateInput) (*domain.Ticket, bool) {
	ticket, err := s.api.Create(ctx, input)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return nil, false
	}
	s.fold(ctx, *ticket)
	return ticket, true
}

// Assign moves a pending ticket to its one active assignee. Assignment
// is one-way; tickets that already have an assignee are rejected
// locally before any server call.
func (s *TicketStore) Assign(ctx context.Context, ticketID, assigneeID string) (*domain.Ticket, bool) {
	if !s.guardTransition(ticketID, domain.TicketStatusAssigned) {
		return nil, false
	}
	if current, found := s.table.Get(ticketID); found && current.AssigneeID != nil {
		s.notices.Notify("warn", "ticket already has an assignee")
		return nil, false
	}
	ticket, err := s.api.Assign(ctx, ticketID, assigneeID)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return nil, false
	}
	s.fold(ctx, *ticket)
	return ticket, true
}

// Complete finishes an assigned ticket.
func (s *TicketStore) Complete(ctx context.Context, ticketID string) (*domain.Ticket, bool) {
	return s.transition(ctx, ticketID, domain.TicketStatusCompleted, s.api.Complete)
}

// Cancel cancels a pending ticket.
func (s *TicketStore) Cancel(ctx context.Context, ticketID string) (*domain.Ticket, bool) {
	return s.transition(ctx, ticketID, domain.TicketStatusCancelled, s.api.Cancel)
}

// Convert converts a pending ticket into a case.
func (s *TicketStore) Convert(ctx context.Context, ticketID string) (*domain.Ticket, bool) {
	return s.transition(ctx, ticketID, domain.TicketStatusConverted, s.api.Convert)
}

func (s *TicketStore) transition(ctx context.Context, ticketID string, next domain.TicketStatus, call func(context.Context, string) (*domain.Ticket, error)) (*domain.Ticket, bool) {
	if !s.guardTransition(ticketID, next) {
		return nil, false
	}
	ticket, err := call(ctx, ticketID)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return nil, false
	}
	s.fold(ctx, *ticket)
	return ticket, true
}

func (s *TicketStore) guardTransition(ticketID string, next domain.TicketStatus) bool {
	current, found := s.table.Get(ticketID)
	if !found {
		s.notices.Notify("warn", "ticket not found")
		return false
	}
	if !current.Status.CanTransition(next) {
		s.notices.Notify("warn", fmt.Sprintf("ticket cannot move from %s to %s", current.Status, next))
		return false
	}
	return true
}

// Tickets returns an ordered copy of the collection.
func (s *TicketStore) Tickets() []domain.Ticket {
	return s.table.Snapshot()
}

// Get returns one ticket by id.
func (s *TicketStore) Get(ticketID string) (domain.Ticket, bool) {
	return s.table.Get(ticketID)
}

// Version exposes the cache version stamp for sync-queue checks.
func (s *TicketStore) Version(ticketID string) uint64 {
	return s.table.Version(ticketID)
}

// LoadMessages fetches the full thread for a ticket, replacing the
// local thread. The server returns messages ordered by timestamp
// ascending; that order is preserved as received.
func (s *TicketStore) LoadMessages(ctx context.Context, ticketID string) ([]domain.Message, bool) {
	fetched, err := s.api.Messages(ctx, ticketID)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return []domain.Message{}, false
	}

	s.mu.Lock()
	for _, msg := range s.threads[ticketID] {
		delete(s.seen, msg.ID)
	}
	s.threads[ticketID] = fetched
	for _, msg := range fetched {
		s.seen[msg.ID] = struct{}{}
	}
	s.mu.Unlock()

	s.persist(ctx)
	return s.Messages(ticketID), true
}

// AppendMessage folds one realtime-delivered message into its thread.
// Messages are appended in arrival order and deduplicated by id, so a
// redelivered frame lands at most once.
func (s *TicketStore) AppendMessage(ctx context.Context, msg domain.Message) bool {
	s.mu.Lock()
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.threads[msg.TicketID] = append(s.threads[msg.TicketID], msg)
	s.mu.Unlock()

	s.persist(ctx)
	s.dispatcher.Publish(ctx, events.Event{
		Type:     events.EventMessageReceived,
		EntityID: msg.TicketID,
		Payload: events.MessageReceivedPayload{
			TicketID:  msg.TicketID,
			MessageID: msg.ID,
			SenderID:  msg.SenderID,
		},
	})
	return true
}

// FoldFrame decodes a realtime chat frame body and appends it.
func (s *TicketStore) FoldFrame(ctx context.Context, body []byte) {
	var msg domain.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Warn("dropping malformed chat frame", zap.Error(err))
		return
	}
	if msg.ID == "" || msg.TicketID == "" {
		s.logger.Warn("dropping chat frame without identifiers")
		return
	}
	s.AppendMessage(ctx, msg)
}

// Messages returns a copy of the thread in stored order.
func (s *TicketStore) Messages(ticketID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message{}, s.threads[ticketID]...)
}

func (s *TicketStore) fold(ctx context.Context, ticket domain.Ticket) {
	s.table.Upsert(ticket)
	s.persist(ctx)
	s.dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketUpserted,
		EntityID: ticket.ID,
	})
}

func (s *TicketStore) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.mu.RLock()
	threads := make(map[string][]domain.Message, len(s.threads))
	for id, thread := range s.threads {
		threads[id] = append([]domain.Message{}, thread...)
	}
	s.mu.RUnlock()

	snapshot := ticketSnapshot{Tickets: s.table.Snapshot(), Threads: threads}
	if err := s.cache.SaveJSON(ctx, persistence.KeyTickets, snapshot); err != nil {
		s.logger.Warn("ticket snapshot persist failed", zap.Error(err))
	}
}
