package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jusdesk/portal-sync/internal/observability"
	"github.com/jusdesk/portal-sync/internal/store"
)

// StatusHandler reports what the sync layer currently holds.
type StatusHandler struct {
	tickets  *store.TicketStore
	cases    *store.CaseStore
	calendar *store.CalendarStore
	notices  *store.MemoryNotices
	metrics  *observability.Metrics
}

// NewStatusHandler returns a new handler instance.
func NewStatusHandler(tickets *store.TicketStore, cases *store.CaseStore, calendar *store.CalendarStore, notices *store.MemoryNotices, metrics *observability.Metrics) *StatusHandler {
	return &StatusHandler{tickets: tickets, cases: cases, calendar: calendar, notices: notices, metrics: metrics}
}

// Status summarizes store contents, pending local work and counters.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tickets":     len(h.tickets.Tickets()),
		"cases":       len(h.cases.Cases()),
		"activeCases": len(h.cases.ActiveCases()),
		"calendar":    len(h.calendar.Events()),
		"pendingOps":  len(h.calendar.Pending()),
		"notices":     h.notices.Recent(),
		"counters":    h.metrics.Snapshot(),
	})
}
