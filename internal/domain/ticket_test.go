package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{"pending to assigned", TicketStatusPending, TicketStatusAssigned, true},
		{"pending to cancelled", TicketStatusPending, TicketStatusCancelled, true},
		{"pending to converted", TicketStatusPending, TicketStatusConverted, true},
		{"assigned to completed", TicketStatusAssigned, TicketStatusCompleted, true},
		{"pending to completed", TicketStatusPending, TicketStatusCompleted, false},
		{"assigned to cancelled", TicketStatusAssigned, TicketStatusCancelled, false},
		{"assigned to pending", TicketStatusAssigned, TicketStatusPending, false},
		{"completed to assigned", TicketStatusCompleted, TicketStatusAssigned, false},
		{"cancelled to pending", TicketStatusCancelled, TicketStatusPending, false},
		{"converted to assigned", TicketStatusConverted, TicketStatusAssigned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTicketTerminalStatuses(t *testing.T) {
	assert.False(t, TicketStatusPending.IsTerminal())
	assert.False(t, TicketStatusAssigned.IsTerminal())
	assert.True(t, TicketStatusCompleted.IsTerminal())
	assert.True(t, TicketStatusCancelled.IsTerminal())
	assert.True(t, TicketStatusConverted.IsTerminal())
}
