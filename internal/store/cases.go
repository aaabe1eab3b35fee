package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/domain"
	"github.com/jusdesk/portal-sync/internal/events"
	"github.com/jusdesk/portal-sync/internal/persistence"
	"github.com/jusdesk/portal-sync/internal/remote"
)

// CaseDependencies bundles collaborators for the case store.
type CaseDependencies struct {
	API        remote.CaseAPI
	Cache      Persister
	Dispatcher events.Dispatcher
	Notices    NoticeSink
	Logger     *zap.Logger
}

// CaseStore holds the authoritative client-side copy of the legal-case
// collection. Status transitions are validated against the case
// lifecycle before any server call; the timeline of transition records
// is append-only.
type CaseStore struct {
	api        remote.CaseAPI
	table      *Table[domain.LegalCase]
	cache      Persister
	dispatcher events.Dispatcher
	notices    NoticeSink
	logger     *zap.Logger
}

// NewCaseStore builds the store and rehydrates the persisted snapshot.
func NewCaseStore(ctx context.Context, deps CaseDependencies) *CaseStore {
	s := &CaseStore{
		api:        deps.API,
		table:      newCaseTable(),
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		notices:    deps.Notices,
		logger:     deps.Logger,
	}

	if deps.Cache != nil {
		var cases []domain.LegalCase
		if err := deps.Cache.LoadJSON(ctx, persistence.KeyCases, &cases); err == nil {
			s.table.ReplaceAll(cases)
		} else if !errors.Is(err, persistence.ErrNotFound) {
			deps.Logger.Warn("case snapshot rehydration failed", zap.Error(err))
		}
	}
	return s
}

func newCaseTable() *Table[domain.LegalCase] {
	return NewTable(
		func(c domain.LegalCase) string { return c.ID },
		func(a, b domain.LegalCase) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		},
	)
}

// Load fetches the full collection, replacing local state entirely on
// success and resetting it to empty on failure.
func (s *CaseStore) Load(ctx context.Context) ([]domain.LegalCase, bool) {
	fetched, err := s.api.List(ctx)
	if err != nil {
		s.table.ReplaceAll(nil)
		s.persist(ctx)
		s.notices.Notify("error", failureMessage(err))
		s.logger.Warn("case load failed", zap.Error(err))
		return []domain.LegalCase{}, false
	}

	s.table.ReplaceAll(fetched)
	s.persist(ctx)
	return s.table.Snapshot(), true
}

// Create issues the server call first, then folds the returned case.
func (s *CaseStore) Create(ctx context.Context, input remote.CaseCreateInput) (*domain.LegalCase, bool) {
	created, err := s.api.Create(ctx, input)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return nil, false
	}
	s.fold(ctx, *created)
	return created, true
}

// UpdateStatus moves a case through its lifecycle. Invalid transitions
// are rejected locally; on success the server's case (including the
// appended timeline entry) replaces the local copy.
func (s *CaseStore) UpdateStatus(ctx context.Context, caseID string, next domain.CaseStatus, description string) (*domain.LegalCase, bool) {
	current, found := s.table.Get(caseID)
	if !found {
		s.notices.Notify("warn", "case not found")
		return nil, false
	}
	if !current.Status.CanTransition(next) {
		s.notices.Notify("warn", fmt.Sprintf("case cannot move from %s to %s", current.Status, next))
		return nil, false
	}

	updated, err := s.api.UpdateStatus(ctx, caseID, remote.CaseStatusInput{
		NewStatus:   next,
		Description: description,
	})
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return nil, false
	}

	s.fold(ctx, *updated)
	s.dispatcher.Publish(ctx, events.Event{
		Type:     events.EventCaseStatusChanged,
		EntityID: updated.ID,
		Payload: events.CaseStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
			Comment:   description,
		},
	})
	return updated, true
}

// AttachDocument uploads a file and folds the returned metadata into
// the owning case.
func (s *CaseStore) AttachDocument(ctx context.Context, caseID, fileName string, content io.Reader) (*domain.Document, bool) {
	current, found := s.table.Get(caseID)
	if !found {
		s.notices.Notify("warn", "case not found")
		return nil, false
	}

	doc, err := s.api.UploadDocument(ctx, caseID, fileName, content)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return nil, false
	}

	current.Documents = append(current.Documents, *doc)
	s.fold(ctx, current)
	return doc, true
}

// Timeline fetches the append-only transition history for a case and
// folds it into the local copy.
func (s *CaseStore) Timeline(ctx context.Context, caseID string) ([]domain.StatusChange, bool) {
	timeline, err := s.api.Timeline(ctx, caseID)
	if err != nil {
		s.notices.Notify("error", failureMessage(err))
		return []domain.StatusChange{}, false
	}

	if current, found := s.table.Get(caseID); found {
		current.Timeline = timeline
		s.fold(ctx, current)
	}
	return timeline, true
}

// Cases returns an ordered copy of the collection.
func (s *CaseStore) Cases() []domain.LegalCase {
	return s.table.Snapshot()
}

// ActiveCases is a derived view: cases not yet in a terminal status,
// computed on read from the single authoritative copy.
func (s *CaseStore) ActiveCases() []domain.LegalCase {
	return s.table.View(func(c domain.LegalCase) bool { return !c.Status.IsTerminal() })
}

// Get returns one case by id.
func (s *CaseStore) Get(caseID string) (domain.LegalCase, bool) {
	return s.table.Get(caseID)
}

// Version exposes the cache version stamp for sync-queue checks.
func (s *CaseStore) Version(caseID string) uint64 {
	return s.table.Version(caseID)
}

func (s *CaseStore) fold(ctx context.Context, c domain.LegalCase) {
	s.table.Upsert(c)
	s.persist(ctx)
	s.dispatcher.Publish(ctx, events.Event{
		Type:     events.EventCaseUpserted,
		EntityID: c.ID,
	})
}

func (s *CaseStore) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveJSON(ctx, persistence.KeyCases, s.table.Snapshot()); err != nil {
		s.logger.Warn("case snapshot persist failed", zap.Error(err))
	}
}
