package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jusdesk/portal-sync/internal/analysis"
	apperrors "github.com/jusdesk/portal-sync/pkg/util"
)

// AnalysisHandler exposes the petition draft helper.
type AnalysisHandler struct {
	service *analysis.Service
}

// NewAnalysisHandler returns a new handler instance.
func NewAnalysisHandler(service *analysis.Service) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

type draftRequest struct {
	ClientName   string   `json:"clientName"`
	Category     string   `json:"category"`
	DocumentKind string   `json:"documentKind"`
	Facts        []string `json:"facts"`
}

// Draft runs one petition draft request.
func (h *AnalysisHandler) Draft(c *fiber.Ctx) error {
	var req draftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}

	draft, err := h.service.Generate(c.UserContext(), analysis.PromptInput{
		ClientName:   req.ClientName,
		Category:     req.Category,
		DocumentKind: req.DocumentKind,
		Facts:        req.Facts,
	})
	if err != nil {
		var parseErr *analysis.ParseError
		if errors.As(err, &parseErr) {
			return apperrors.NewDomainError("DRAFT_UNREADABLE",
				"the generated draft could not be read, try again",
				http.StatusBadGateway, nil)
		}
		return apperrors.NewUnavailable("draft generation failed", err)
	}
	return c.JSON(fiber.Map{"data": draft})
}

// History lists recent tool usage.
func (h *AnalysisHandler) History(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.History()})
}
