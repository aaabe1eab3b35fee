package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jusdesk/portal-sync/internal/auth"
	"github.com/jusdesk/portal-sync/internal/realtime"
	"github.com/jusdesk/portal-sync/internal/remote"
	"github.com/jusdesk/portal-sync/internal/store"
	apperrors "github.com/jusdesk/portal-sync/pkg/util"
)

// SessionHandler manages the daemon's portal session: login stores the
// credential and attaches the notification subscription, logout tears
// both down.
type SessionHandler struct {
	accounts remote.AccountAPI
	creds    *auth.CredentialStore
	channel  *realtime.Channel
	tickets  *store.TicketStore
	logger   *zap.Logger
}

// NewSessionHandler returns a new handler instance.
func NewSessionHandler(accounts remote.AccountAPI, creds *auth.CredentialStore, channel *realtime.Channel, tickets *store.TicketStore, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{accounts: accounts, creds: creds, channel: channel, tickets: tickets, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the portal backend, persists the sealed
// credential and subscribes to the user's notification topic.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	ctx := c.UserContext()
	result, err := h.accounts.Login(ctx, remote.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return apperrors.NewDomainError("LOGIN_FAILED", "login rejected by the portal backend",
			fiber.StatusUnauthorized, nil)
	}

	claims, err := auth.ParseSessionClaims(result.Token)
	if err != nil {
		return apperrors.NewUnavailable("backend returned an unreadable session token", err)
	}
	if err := h.creds.Set(ctx, result.Token); err != nil {
		h.logger.Warn("credential persist failed", zap.Error(err))
	}

	// The fold handler outlives this request; it must not inherit the
	// request context.
	if err := h.channel.Connect(ctx, realtime.NotificationTopic(claims.SubjectID), func(_ string, body []byte) {
		h.tickets.FoldFrame(context.Background(), body)
	}); err != nil {
		h.logger.Warn("notification channel unavailable", zap.Error(err))
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"userId": claims.SubjectID,
		"email":  claims.Email,
		"role":   claims.Role,
	}})
}

// Logout destroys the credential and drops the realtime subscription.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	h.creds.Clear(c.UserContext())
	h.channel.Disconnect()
	return c.JSON(fiber.Map{"data": fiber.Map{"loggedOut": true}})
}

// Current describes the active session, if any.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	token, ok := h.creds.Get()
	if !ok {
		return apperrors.NewNotFound("session", nil)
	}
	claims, err := auth.ParseSessionClaims(token)
	if err != nil {
		return apperrors.NewNotFound("session", nil)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"userId":   claims.SubjectID,
		"email":    claims.Email,
		"role":     claims.Role,
		"realtime": h.channel.State().String(),
	}})
}
