package domain

import "time"

// Message is one entry in a ticket chat thread. Messages are
// append-only and ordered by creation time ascending; they are never
// mutated or deleted after the server accepts them.
type Message struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticketId"`
	SenderID   string    `json:"senderId"`
	SenderRole Role      `json:"senderRole"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}
