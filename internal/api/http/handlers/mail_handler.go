package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jusdesk/portal-sync/internal/api/dto"
	"github.com/jusdesk/portal-sync/internal/mailer"
	"github.com/jusdesk/portal-sync/internal/observability"
	apperrors "github.com/jusdesk/portal-sync/pkg/util"
)

// MailHandler relays email requests to the delivery provider.
type MailHandler struct {
	mailer  mailer.Sender
	metrics *observability.Metrics
}

// NewMailHandler returns a new handler instance.
func NewMailHandler(sender mailer.Sender, metrics *observability.Metrics) *MailHandler {
	return &MailHandler{mailer: sender, metrics: metrics}
}

// Send validates the request and forwards it to the provider.
func (h *MailHandler) Send(c *fiber.Ctx) error {
	var req dto.SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.To) == "" {
		return apperrors.NewValidationError("recipient is required", map[string]any{"field": "to"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}

	h.metrics.Inc(observability.MetricRelayRequests)
	err := h.mailer.Send(c.UserContext(), mailer.EmailRequest{
		To:          req.To,
		Title:       req.Title,
		EventDate:   req.EventDate,
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		return apperrors.NewUnavailable("email delivery failed", err)
	}
	return c.JSON(dto.SendEmailResponse{Sent: true})
}
