package events

import (
	"time"

	"github.com/jusdesk/portal-sync/internal/domain"
)

// EventType enumerates local signals exchanged between stores.
type EventType string

const (
	EventTicketUpserted    EventType = "ticket_upserted"
	EventTicketRemoved     EventType = "ticket_removed"
	EventCaseUpserted      EventType = "case_upserted"
	EventCaseStatusChanged EventType = "case_status_changed"
	EventMessageReceived   EventType = "message_received"
	EventCalendarChanged   EventType = "calendar_changed"
	EventReminderSent      EventType = "reminder_sent"
	EventSessionExpired    EventType = "session_expired"
)

// Event is one local signal. Events never leave the process; they are
// the decoupling point between stores that hold derived views of the
// same backend resource.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entityId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	OldStatus domain.CaseStatus `json:"oldStatus"`
	NewStatus domain.CaseStatus `json:"newStatus"`
	Comment   string            `json:"comment,omitempty"`
}

// MessageReceivedPayload payload.
type MessageReceivedPayload struct {
	TicketID  string `json:"ticketId"`
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
}

// ReminderSentPayload payload.
type ReminderSentPayload struct {
	EventID   string    `json:"eventId"`
	Recipient string    `json:"recipient"`
	EventDate time.Time `json:"eventDate"`
}
