package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jusdesk/portal-sync/internal/domain"
	"github.com/jusdesk/portal-sync/internal/persistence"
	"github.com/jusdesk/portal-sync/internal/remote"
)

// memCache is an in-memory Persister for tests.
type memCache struct {
	data map[string]json.RawMessage
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]json.RawMessage)}
}

func (m *memCache) SaveJSON(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCache) LoadJSON(_ context.Context, key string, out any) error {
	raw, ok := m.data[key]
	if !ok {
		return persistence.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

var errUpstream = errors.New("upstream unreachable")

// fakeTicketAPI answers from fixed data and records failure switches.
type fakeTicketAPI struct {
	tickets  []domain.Ticket
	messages map[string][]domain.Message
	fail     bool
}

func (f *fakeTicketAPI) List(context.Context) ([]domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	return append([]domain.Ticket{}, f.tickets...), nil
}

func (f *fakeTicketAPI) Get(_ context.Context, id string) (*domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	for _, t := range f.tickets {
		if t.ID == id {
			found := t
			return &found, nil
		}
	}
	return nil, errUpstream
}

func (f *fakeTicketAPI) Create(_ context.Context, input remote.TicketCreateInput) (*domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	ticket := domain.Ticket{
		ID:          "srv-1",
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Status:      domain.TicketStatusPending,
	}
	f.tickets = append(f.tickets, ticket)
	return &ticket, nil
}

func (f *fakeTicketAPI) Assign(_ context.Context, id, assigneeID string) (*domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	return f.mutate(id, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusAssigned
		t.AssigneeID = &assigneeID
	})
}

func (f *fakeTicketAPI) Complete(_ context.Context, id string) (*domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	return f.mutate(id, func(t *domain.Ticket) { t.Status = domain.TicketStatusCompleted })
}

func (f *fakeTicketAPI) Cancel(_ context.Context, id string) (*domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	return f.mutate(id, func(t *domain.Ticket) { t.Status = domain.TicketStatusCancelled })
}

func (f *fakeTicketAPI) Convert(_ context.Context, id string) (*domain.Ticket, error) {
	if f.fail {
		return nil, errUpstream
	}
	return f.mutate(id, func(t *domain.Ticket) { t.Status = domain.TicketStatusConverted })
}

func (f *fakeTicketAPI) Messages(_ context.Context, ticketID string) ([]domain.Message, error) {
	if f.fail {
		return nil, errUpstream
	}
	return append([]domain.Message{}, f.messages[ticketID]...), nil
}

func (f *fakeTicketAPI) mutate(id string, apply func(*domain.Ticket)) (*domain.Ticket, error) {
	for i := range f.tickets {
		if f.tickets[i].ID == id {
			apply(&f.tickets[i])
			mutated := f.tickets[i]
			return &mutated, nil
		}
	}
	return nil, errUpstream
}

func requireNoticeLevel(t *testing.T, notices *MemoryNotices, level string) {
	t.Helper()
	recent := notices.Recent()
	require.NotEmpty(t, recent, "expected a notice")
	require.Equal(t, level, recent[len(recent)-1].Level)
}
