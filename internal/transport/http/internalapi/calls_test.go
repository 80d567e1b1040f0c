package internalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/adapter/choiceview"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/config"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/policy"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/prompts"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/repository"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/transport/ws"
)

func newTestHandler(t *testing.T) (*Handler, store.Store) {
	t.Helper()
	h, db, _ := newTestHandlerWithGateway(t, false)
	return h, db
}

func newTestHandlerWithGateway(t *testing.T, withGateway bool) (*Handler, store.Store, *ws.Server) {
	t.Helper()
	cfg := &config.Config{PublicURL: "http://ivr.example", RequestTimeout: time.Second}
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, "2")
	require.NoError(t, err)

	logger := zap.NewNop()
	client := choiceview.NewClient("http://choiceview.invalid", "", "", time.Second)
	svc := service.New(db, client, signalbridge.New(logger), policyEngine, prompts.Default(), cfg, logger)
	if !withGateway {
		return NewHandler(svc, nil), db, nil
	}
	gateway := ws.NewServer(cfg, ws.NewHub(logger), svc, logger)
	t.Cleanup(gateway.Close)
	return NewHandler(svc, gateway), db, gateway
}

func seedCall(t *testing.T, db store.Store, id string, startedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.CreateCall(ctx, &domain.Call{
		CallSessionID: id,
		CallerID:      "7205551234",
		CallID:        "call-" + id,
		StartedAt:     startedAt,
	}))
	require.NoError(t, db.CreateEvent(ctx, &domain.CallEvent{
		EventID: "evt_" + id + "_1", CallSessionID: id, Ts: 100, Type: domain.CallEventAnswered,
	}))
	require.NoError(t, db.CreateEvent(ctx, &domain.CallEvent{
		EventID: "evt_" + id + "_2", CallSessionID: id, Ts: 200, Type: domain.CallEventSessionCreated,
		Payload: json.RawMessage(`{"session_uri":"https://cv.example/sessions/1","status":"connected"}`),
	}))
	require.NoError(t, db.CreateEvent(ctx, &domain.CallEvent{
		EventID: "evt_" + id + "_3", CallSessionID: id, Ts: 300, Type: domain.CallEventSessionDeleted,
	}))
}

func newContext(e *echo.Echo, target string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		c.SetParamNames("call_session_id")
		c.SetParamValues(params...)
	}
	return c, rec
}

func TestListCalls(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	now := time.Now()
	seedCall(t, db, "cs-1", now.Add(-time.Minute))
	seedCall(t, db, "cs-2", now)

	c, rec := newContext(e, "/v1/calls?limit=10")
	require.NoError(t, h.ListCalls(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Calls []domain.Call `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Calls, 2)
	assert.Equal(t, "cs-2", resp.Calls[0].CallSessionID)
}

func TestListCallsInvalidLimit(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	c, rec := newContext(e, "/v1/calls?limit=abc")
	require.NoError(t, h.ListCalls(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCall(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	seedCall(t, db, "cs-1", time.Now())

	c, rec := newContext(e, "/v1/calls/cs-1", "cs-1")
	require.NoError(t, h.GetCall(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var call domain.Call
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &call))
	assert.Equal(t, "7205551234", call.CallerID)
	assert.Equal(t, domain.CallOutcomeInProgress, call.Outcome)

	c, rec = newContext(e, "/v1/calls/cs-nope", "cs-nope")
	require.NoError(t, h.GetCall(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCallEvents(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	seedCall(t, db, "cs-1", time.Now())

	c, rec := newContext(e, "/v1/calls/cs-1/events?after_ts=150&types=session_created,session_deleted", "cs-1")
	require.NoError(t, h.GetCallEvents(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CallSessionID string             `json:"call_session_id"`
		Events        []domain.CallEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cs-1", resp.CallSessionID)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, domain.CallEventSessionCreated, resp.Events[0].Type)
	assert.JSONEq(t, `{"session_uri":"https://cv.example/sessions/1","status":"connected"}`, string(resp.Events[0].Payload))
}

func TestGetCallEventsErrors(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)
	seedCall(t, db, "cs-1", time.Now())

	c, rec := newContext(e, "/v1/calls/cs-1/events?after_ts=soon", "cs-1")
	require.NoError(t, h.GetCallEvents(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(e, "/v1/calls/cs-nope/events", "cs-nope")
	require.NoError(t, h.GetCallEvents(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	c, rec := newContext(e, "/health")
	require.NoError(t, h.Health(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, float64(0), resp["active_calls"])
	assert.NotContains(t, resp, "gateway_connections")
}

func TestHealthWithGateway(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandlerWithGateway(t, true)

	c, rec := newContext(e, "/health")
	require.NoError(t, h.Health(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["gateway_connections"])
	assert.Equal(t, float64(0), resp["gateway_calls"])
}
