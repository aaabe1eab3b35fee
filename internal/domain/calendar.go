package domain

import "time"

// CalendarEvent is a user-created appointment with an optional email
// reminder. Notified is the only field that mutates after creation.
type CalendarEvent struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Start             time.Time `json:"start"`
	Category          string    `json:"category"`
	Location          string    `json:"location,omitempty"`
	Description       string    `json:"description,omitempty"`
	NotifyLeadMinutes int       `json:"notifyLeadMinutes"`
	Notified          bool      `json:"notified"`
}

// NeedsReminder reports whether the reminder window is open: now must
// fall in [start - lead, start) and the event must not already have
// been notified. Events without a lead time never qualify.
func (e CalendarEvent) NeedsReminder(now time.Time) bool {
	if e.Notified || e.NotifyLeadMinutes <= 0 {
		return false
	}
	windowOpen := e.Start.Add(-time.Duration(e.NotifyLeadMinutes) * time.Minute)
	return !now.Before(windowOpen) && now.Before(e.Start)
}
