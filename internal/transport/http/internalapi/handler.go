// Package internalapi provides HTTP handlers for the voice gateway and the
// call ledger. These APIs are not exposed to the session service.
package internalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/transport/ws"
)

// Handler handles internal HTTP requests.
type Handler struct {
	service *service.Service
	gateway *ws.Server
}

// NewHandler creates a new internal API handler. gateway may be nil, in which
// case the WebSocket route is not registered.
func NewHandler(service *service.Service, gateway *ws.Server) *Handler {
	return &Handler{
		service: service,
		gateway: gateway,
	}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Voice gateway
	if h.gateway != nil {
		e.GET("/v1/gateway", h.gateway.HandleWebSocket)
	}

	// Call ledger
	e.GET("/v1/calls", h.ListCalls)
	e.GET("/v1/calls/:call_session_id", h.GetCall)
	e.GET("/v1/calls/:call_session_id/events", h.GetCallEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]interface{}{
		"status":       "healthy",
		"active_calls": h.service.ActiveCalls(),
	}
	if h.gateway != nil {
		resp["gateway_connections"] = h.gateway.ConnectionCount()
		resp["gateway_calls"] = h.gateway.CallCount()
	}
	return c.JSON(http.StatusOK, resp)
}
