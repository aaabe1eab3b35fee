package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/events"
	"github.com/jusdesk/portal-sync/internal/mailer"
	"github.com/jusdesk/portal-sync/internal/observability"
	"github.com/jusdesk/portal-sync/internal/store"
)

// Dependencies bundles collaborators for the reminder scheduler.
type Dependencies struct {
	Calendar   *store.CalendarStore
	Mailer     mailer.Sender
	Recipient  func() string
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// ReminderScheduler periodically scans the calendar for events whose
// reminder window has opened and sends each one email. A successful
// send flips the event's notified flag, so repeated ticks are
// idempotent; a failed send leaves the flag untouched and the next
// tick retries until the window closes at the event start.
type ReminderScheduler struct {
	calendar   *store.CalendarStore
	mailer     mailer.Sender
	recipient  func() string
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	interval   time.Duration

	now func() time.Time
}

// New builds the scheduler with the given tick interval.
func New(interval time.Duration, deps Dependencies) *ReminderScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ReminderScheduler{
		calendar:   deps.Calendar,
		mailer:     deps.Mailer,
		recipient:  deps.Recipient,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		interval:   interval,
		now:        time.Now,
	}
}

// Run ticks once immediately, then on the fixed interval until ctx
// ends.
func (s *ReminderScheduler) Run(ctx context.Context) {
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one scan. Each qualifying event gets exactly one send
// attempt per tick.
func (s *ReminderScheduler) Tick(ctx context.Context) {
	recipient := ""
	if s.recipient != nil {
		recipient = s.recipient()
	}
	if recipient == "" {
		s.logger.Debug("reminder tick skipped, no recipient")
		return
	}

	for _, event := range s.calendar.Due(s.now()) {
		err := s.mailer.Send(ctx, mailer.EmailRequest{
			To:          recipient,
			Title:       event.Title,
			EventDate:   event.Start,
			Description: event.Description,
			Location:    event.Location,
		})
		if err != nil {
			s.metrics.Inc(observability.MetricReminderFailures)
			s.logger.Warn("reminder send failed",
				zap.String("event_id", event.ID), zap.Error(err))
			continue
		}

		if s.calendar.MarkNotified(ctx, event.ID) {
			s.metrics.Inc(observability.MetricRemindersSent)
			s.dispatcher.Publish(ctx, events.Event{
				Type:     events.EventReminderSent,
				EntityID: event.ID,
				Payload: events.ReminderSentPayload{
					EventID:   event.ID,
					Recipient: recipient,
					EventDate: event.Start,
				},
			})
		}
	}
}
