package remote

import (
	"context"

	"github.com/jusdesk/portal-sync/internal/api/rest"
	"github.com/jusdesk/portal-sync/internal/domain"
)

// CalendarAPI is the backend surface for agenda events.
type CalendarAPI interface {
	List(ctx context.Context) ([]domain.CalendarEvent, error)
}

type calendarAPI struct {
	client *rest.Client
}

// NewCalendarAPI builds the REST-backed gateway.
func NewCalendarAPI(client *rest.Client) CalendarAPI {
	return &calendarAPI{client: client}
}

func (a *calendarAPI) List(ctx context.Context) ([]domain.CalendarEvent, error) {
	var events []domain.CalendarEvent
	if err := a.client.Get(ctx, "/calendar/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}
