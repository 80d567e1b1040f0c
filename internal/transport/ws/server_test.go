package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/config"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/protocol"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

// scriptedCalls says one line, asks one prompt and reports what came back.
type scriptedCalls struct {
	prompt  service.Prompt
	results chan askOutcome
}

type askOutcome struct {
	sayErr error
	res    service.AskResult
	err    error
}

func (c *scriptedCalls) NewCallContext(callerID, callID, callSessionID string) domain.CallContext {
	if callSessionID == "" {
		callSessionID = "cs-generated"
	}
	return domain.CallContext{CallerID: callerID, CallID: callID, CallSessionID: callSessionID}
}

func (c *scriptedCalls) HandleCall(ctx context.Context, rt service.Runtime, cc domain.CallContext) (domain.CallOutcome, error) {
	var out askOutcome
	out.sayErr = rt.Say(ctx, service.Speech{Text: "Welcome", Voice: "vanessa"})
	if out.sayErr == nil {
		out.res, out.err = rt.Ask(ctx, c.prompt)
	}
	c.results <- out
	if out.err != nil || out.sayErr != nil {
		return domain.CallOutcomeHangup, nil
	}
	return domain.CallOutcomeLocalEnded, nil
}

func newTestServer(t *testing.T, calls CallService) *websocket.Conn {
	t.Helper()

	cfg := &config.Config{
		PingInterval:   time.Minute,
		WriteTimeout:   time.Second,
		ReadTimeout:    time.Minute,
		MaxMessageSize: 65536,
		AskGrace:       20 * time.Millisecond,
	}
	logger := zap.NewNop()
	srv := NewServer(cfg, NewHub(logger), calls, logger)

	e := echo.New()
	e.GET("/v1/gateway", srv.HandleWebSocket)
	ts := httptest.NewServer(e)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/gateway"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (protocol.BaseMessage, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var base protocol.BaseMessage
	require.NoError(t, json.Unmarshal(data, &base))
	return base, data
}

func writeFrame(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func answer(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	writeFrame(t, conn, protocol.CallAnsweredMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeCallAnswered},
		CallerID:    "7205551234",
		CallID:      "call-1",
	})
	base, _ := readFrame(t, conn)
	require.Equal(t, protocol.TypeCallAccepted, base.Type)
	assert.Equal(t, "cs-generated", base.CallSessionID)
}

func TestGatewayCallRoundTrip(t *testing.T) {
	calls := &scriptedCalls{
		prompt:  service.Prompt{Text: "Pick one", Choices: []string{"[1 DIGIT]"}, Mode: "dtmf", Attempts: 2, Timeout: time.Second},
		results: make(chan askOutcome, 1),
	}
	conn := newTestServer(t, calls)
	answer(t, conn)

	base, data := readFrame(t, conn)
	require.Equal(t, protocol.TypeSay, base.Type)
	var say protocol.SayMessage
	require.NoError(t, json.Unmarshal(data, &say))
	assert.Equal(t, "Welcome", say.Text)
	assert.Equal(t, "vanessa", say.Voice)
	writeFrame(t, conn, protocol.SayDoneMessage{BaseMessage: protocol.BaseMessage{Type: protocol.TypeSayDone, PromptID: say.PromptID}})

	base, data = readFrame(t, conn)
	require.Equal(t, protocol.TypeAsk, base.Type)
	var ask protocol.AskMessage
	require.NoError(t, json.Unmarshal(data, &ask))
	assert.Equal(t, "Pick one", ask.Text)
	assert.Equal(t, 2, ask.Attempts)
	assert.Equal(t, int64(1000), ask.TimeoutMs)
	writeFrame(t, conn, protocol.AskResultMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeAskResult, PromptID: ask.PromptID},
		Name:        service.ResultChoice,
		Value:       "1",
	})

	out := <-calls.results
	require.NoError(t, out.sayErr)
	require.NoError(t, out.err)
	assert.Equal(t, service.AskResult{Name: service.ResultChoice, Value: "1"}, out.res)

	base, data = readFrame(t, conn)
	require.Equal(t, protocol.TypeCallEnded, base.Type)
	var ended protocol.CallEndedMessage
	require.NoError(t, json.Unmarshal(data, &ended))
	assert.Equal(t, string(domain.CallOutcomeLocalEnded), ended.Outcome)
}

func TestGatewayAskDeadline(t *testing.T) {
	calls := &scriptedCalls{
		prompt:  service.Prompt{Text: "Pick one", Attempts: 1, Timeout: 20 * time.Millisecond},
		results: make(chan askOutcome, 1),
	}
	conn := newTestServer(t, calls)
	answer(t, conn)

	base, _ := readFrame(t, conn)
	require.Equal(t, protocol.TypeSay, base.Type)
	writeFrame(t, conn, protocol.SayDoneMessage{BaseMessage: protocol.BaseMessage{Type: protocol.TypeSayDone, PromptID: base.PromptID}})

	ask, _ := readFrame(t, conn)
	require.Equal(t, protocol.TypeAsk, ask.Type)

	cancel, _ := readFrame(t, conn)
	assert.Equal(t, protocol.TypeCancel, cancel.Type)
	assert.Equal(t, ask.PromptID, cancel.PromptID)

	out := <-calls.results
	require.NoError(t, out.err)
	assert.Equal(t, service.ResultTimeout, out.res.Name)
}

func TestGatewayHangup(t *testing.T) {
	calls := &scriptedCalls{
		prompt:  service.Prompt{Text: "Pick one", Attempts: 1, Timeout: time.Minute},
		results: make(chan askOutcome, 1),
	}
	conn := newTestServer(t, calls)
	answer(t, conn)

	base, _ := readFrame(t, conn)
	require.Equal(t, protocol.TypeSay, base.Type)
	writeFrame(t, conn, protocol.HangupMessage{BaseMessage: protocol.BaseMessage{Type: protocol.TypeHangup}})

	out := <-calls.results
	assert.ErrorIs(t, out.sayErr, service.ErrHangup)
}

func TestGatewayRejectsFramesBeforeCall(t *testing.T) {
	conn := newTestServer(t, &scriptedCalls{results: make(chan askOutcome, 1)})

	writeFrame(t, conn, protocol.AskResultMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeAskResult, PromptID: "prm_x"},
		Name:        service.ResultChoice,
	})
	base, data := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, base.Type)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, protocol.ErrorCodeCallRequired, errMsg.Code)

	writeFrame(t, conn, map[string]string{"type": "dance"})
	base, data = readFrame(t, conn)
	require.Equal(t, protocol.TypeError, base.Type)
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, errMsg.Code)
}

func TestGatewayRejectsSecondCall(t *testing.T) {
	calls := &scriptedCalls{
		prompt:  service.Prompt{Text: "Pick one", Attempts: 1, Timeout: time.Minute},
		results: make(chan askOutcome, 1),
	}
	conn := newTestServer(t, calls)
	answer(t, conn)

	// The first frame of the running call is its welcome prompt.
	base, _ := readFrame(t, conn)
	require.Equal(t, protocol.TypeSay, base.Type)

	writeFrame(t, conn, protocol.CallAnsweredMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeCallAnswered},
		CallerID:    "7205551234",
		CallID:      "call-2",
	})
	base, data := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, base.Type)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, protocol.ErrorCodeCallActive, errMsg.Code)
}

func TestGatewayRejectsUnknownAskResultName(t *testing.T) {
	calls := &scriptedCalls{
		prompt:  service.Prompt{Text: "Pick one", Attempts: 1, Timeout: time.Second},
		results: make(chan askOutcome, 1),
	}
	conn := newTestServer(t, calls)
	answer(t, conn)

	base, data := readFrame(t, conn)
	require.Equal(t, protocol.TypeSay, base.Type)
	var say protocol.SayMessage
	require.NoError(t, json.Unmarshal(data, &say))
	writeFrame(t, conn, protocol.SayDoneMessage{BaseMessage: protocol.BaseMessage{Type: protocol.TypeSayDone, PromptID: say.PromptID}})

	base, data = readFrame(t, conn)
	require.Equal(t, protocol.TypeAsk, base.Type)
	var ask protocol.AskMessage
	require.NoError(t, json.Unmarshal(data, &ask))

	// A gateway cannot impersonate a session signal.
	writeFrame(t, conn, protocol.AskResultMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeAskResult, PromptID: ask.PromptID},
		Name:        service.ResultSignal,
		Value:       string(domain.SignalNewMessage),
	})
	base, data = readFrame(t, conn)
	require.Equal(t, protocol.TypeError, base.Type)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, protocol.ErrorCodeInvalidMessage, errMsg.Code)

	// The prompt is still waiting for a real answer.
	writeFrame(t, conn, protocol.AskResultMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeAskResult, PromptID: ask.PromptID},
		Name:        service.ResultNoMatch,
	})
	out := <-calls.results
	require.NoError(t, out.err)
	assert.Equal(t, service.ResultNoMatch, out.res.Name)
}

// refusingCalls refuses every call as already active elsewhere.
type refusingCalls struct{ scriptedCalls }

func (c *refusingCalls) HandleCall(ctx context.Context, rt service.Runtime, cc domain.CallContext) (domain.CallOutcome, error) {
	return "", fmt.Errorf("failed to open call: %w", signalbridge.ErrCallActive)
}

func TestGatewayReportsRefusedCall(t *testing.T) {
	conn := newTestServer(t, &refusingCalls{})
	answer(t, conn)

	base, data := readFrame(t, conn)
	require.Equal(t, protocol.TypeError, base.Type)
	var errMsg protocol.ErrorMessage
	require.NoError(t, json.Unmarshal(data, &errMsg))
	assert.Equal(t, protocol.ErrorCodeCallActive, errMsg.Code)

	base, _ = readFrame(t, conn)
	assert.Equal(t, protocol.TypeCallEnded, base.Type)
}
