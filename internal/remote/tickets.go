package remote

import (
	"context"
	"fmt"

	"github.com/jusdesk/portal-sync/internal/api/rest"
	"github.com/jusdesk/portal-sync/internal/domain"
)

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// TicketAPI is the backend surface for consultation tickets.
type TicketAPI interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error)
	Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error)
	Complete(ctx context.Context, id string) (*domain.Ticket, error)
	Cancel(ctx context.Context, id string) (*domain.Ticket, error)
	Convert(ctx context.Context, id string) (*domain.Ticket, error)
	Messages(ctx context.Context, ticketID string) ([]domain.Message, error)
}

type ticketAPI struct {
	client *rest.Client
}

// NewTicketAPI builds the REST-backed gateway.
func NewTicketAPI(client *rest.Client) TicketAPI {
	return &ticketAPI{client: client}
}

func (a *ticketAPI) List(ctx context.Context) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := a.client.Get(ctx, "/tickets", &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (a *ticketAPI) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := a.client.Get(ctx, "/tickets/"+id, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (a *ticketAPI) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := a.client.Post(ctx, "/tickets", input, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (a *ticketAPI) Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error) {
	body := map[string]string{"assigneeId": assigneeID}
	var ticket domain.Ticket
	if err := a.client.Post(ctx, fmt.Sprintf("/tickets/%s/assign", id), body, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (a *ticketAPI) Complete(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := a.client.Post(ctx, fmt.Sprintf("/tickets/%s/complete", id), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (a *ticketAPI) Cancel(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := a.client.Post(ctx, fmt.Sprintf("/tickets/%s/cancel", id), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (a *ticketAPI) Convert(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := a.client.Post(ctx, fmt.Sprintf("/tickets/%s/convert", id), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (a *ticketAPI) Messages(ctx context.Context, ticketID string) ([]domain.Message, error) {
	var messages []domain.Message
	if err := a.client.Get(ctx, fmt.Sprintf("/tickets/%s/messages", ticketID), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
