package internalapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListCalls returns recent calls, newest first.
// GET /v1/calls?limit=50
func (h *Handler) ListCalls(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
	}

	calls, err := h.service.ListCalls(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if calls == nil {
		calls = []domain.Call{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"calls": calls,
	})
}

// GetCall returns a single call.
// GET /v1/calls/:call_session_id
func (h *Handler) GetCall(c echo.Context) error {
	callSessionID := c.Param("call_session_id")

	call, err := h.service.GetCall(c.Request().Context(), callSessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if call == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}

	return c.JSON(http.StatusOK, call)
}

// GetCallEvents returns the ledger events of a call.
// GET /v1/calls/:call_session_id/events?after_ts=0&types=a,b&limit=50
func (h *Handler) GetCallEvents(c echo.Context) error {
	callSessionID := c.Param("call_session_id")
	ctx := c.Request().Context()

	var afterTs int64
	if raw := c.QueryParam("after_ts"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid after_ts"})
		}
		afterTs = v
	}

	var types []string
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
	}

	call, err := h.service.GetCall(ctx, callSessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if call == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "call not found"})
	}

	events, err := h.service.GetCallEvents(ctx, callSessionID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if events == nil {
		events = []domain.CallEvent{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"call_session_id": callSessionID,
		"events":          events,
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, strconv.ErrSyntax
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
