package domain

import "time"

// TicketStatus enumerates lifecycle states for consultation tickets.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusAssigned  TicketStatus = "ASSIGNED"
	TicketStatusCompleted TicketStatus = "COMPLETED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusConverted TicketStatus = "CONVERTED"
)

// Ticket is a client consultation request handled by a lawyer.
type Ticket struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Status      TicketStatus `json:"status"`
	RequesterID string       `json:"requesterId"`
	AssigneeID  *string      `json:"assigneeId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:   {TicketStatusAssigned, TicketStatusCancelled, TicketStatusConverted},
	TicketStatusAssigned:  {TicketStatusCompleted},
	TicketStatusCompleted: {},
	TicketStatusCancelled: {},
	TicketStatusConverted: {},
}

// CanTransition reports whether a status change is reachable through
// the exposed ticket actions.
func (t TicketStatus) CanTransition(next TicketStatus) bool {
	for _, candidate := range ticketTransitions[t] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the ticket is immutable.
func (t TicketStatus) IsTerminal() bool {
	return len(ticketTransitions[t]) == 0
}
