package dto

import "time"

// SendEmailRequest is the relay route payload, forwarded to the
// third-party delivery provider.
type SendEmailRequest struct {
	To          string    `json:"to"`
	Title       string    `json:"title"`
	EventDate   time.Time `json:"eventDate"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// SendEmailResponse acknowledges a forwarded email.
type SendEmailResponse struct {
	Sent bool `json:"sent"`
}
