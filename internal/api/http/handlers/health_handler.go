package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jusdesk/portal-sync/internal/persistence"
	"github.com/jusdesk/portal-sync/internal/realtime"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	cache       *persistence.LocalCache
	channel     *realtime.Channel
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, cache *persistence.LocalCache, channel *realtime.Channel) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, cache: cache, channel: channel}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies. The
// realtime channel state is informational: a disconnected channel does
// not fail readiness because the daemon reconnects on its own.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if err := h.cache.Ping(ctx); err != nil {
		depStatus["localcache"] = err.Error()
		ready = false
	} else {
		depStatus["localcache"] = "ok"
	}

	if h.channel != nil {
		depStatus["realtime"] = h.channel.State().String()
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
