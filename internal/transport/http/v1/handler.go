// Package v1 provides the externally reachable HTTP handlers.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Signal webhook, called by the session service
	e.GET("/v1/calls/:call_session_id/signals", h.DeliverSignal)
	e.POST("/v1/calls/:call_session_id/signals", h.DeliverSignal)
}
