package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

// SignalResponse is the body returned for a delivered signal.
type SignalResponse struct {
	OK        bool `json:"ok"`
	Delivered bool `json:"delivered"`
}

// DeliverSignal wakes the call a notification is addressed to.
// GET|POST /v1/calls/:call_session_id/signals?action=signal&value=<tag>
func (h *Handler) DeliverSignal(c echo.Context) error {
	callSessionID := c.Param("call_session_id")
	if callSessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "call_session_id is required"})
	}
	if action := c.QueryParam("action"); action != "signal" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported action: " + action})
	}

	err := h.service.DeliverSignal(callSessionID, c.QueryParam("value"))
	switch {
	case errors.Is(err, signalbridge.ErrUnknownSignal):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, signalbridge.ErrUnknownCall):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, SignalResponse{OK: true, Delivered: true})
}
