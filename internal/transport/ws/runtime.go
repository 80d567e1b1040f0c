package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/protocol"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
)

// callRuntime plays prompts on the gateway connection that answered a call.
type callRuntime struct {
	hub           *Hub
	conn          *Connection
	callSessionID string
	askGrace      time.Duration

	mu      sync.Mutex
	pending map[string]chan protocol.AskResultMessage

	hangupOnce sync.Once
	hungUp     chan struct{}
}

var _ service.Runtime = (*callRuntime)(nil)

func newCallRuntime(h *Hub, conn *Connection, callSessionID string, askGrace time.Duration) *callRuntime {
	return &callRuntime{
		hub:           h,
		conn:          conn,
		callSessionID: callSessionID,
		askGrace:      askGrace,
		pending:       make(map[string]chan protocol.AskResultMessage),
		hungUp:        make(chan struct{}),
	}
}

func (r *callRuntime) Say(ctx context.Context, speech service.Speech) error {
	promptID, done := r.begin()
	defer r.end(promptID)

	msg := protocol.SayMessage{
		BaseMessage: r.base(protocol.TypeSay, promptID),
		Text:        speech.Text,
		Voice:       speech.Voice,
	}
	if err := r.send(msg); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-r.hungUp:
		return service.ErrHangup
	case <-ctx.Done():
		r.cancel(promptID)
		return ctx.Err()
	}
}

func (r *callRuntime) Ask(ctx context.Context, prompt service.Prompt) (service.AskResult, error) {
	promptID, done := r.begin()
	defer r.end(promptID)

	msg := protocol.AskMessage{
		BaseMessage: r.base(protocol.TypeAsk, promptID),
		Text:        prompt.Text,
		Voice:       prompt.Voice,
		Choices:     prompt.Choices,
		Mode:        prompt.Mode,
		Attempts:    prompt.Attempts,
		TimeoutMs:   prompt.Timeout.Milliseconds(),
	}
	if err := r.send(msg); err != nil {
		return service.AskResult{}, err
	}

	attempts := prompt.Attempts
	if attempts < 1 {
		attempts = 1
	}
	deadline := time.NewTimer(time.Duration(attempts)*prompt.Timeout + r.askGrace)
	defer deadline.Stop()

	select {
	case res := <-done:
		return service.AskResult{Name: res.Name, Value: res.Value}, nil
	case <-r.hungUp:
		return service.AskResult{}, service.ErrHangup
	case <-deadline.C:
		r.cancel(promptID)
		return service.AskResult{Name: service.ResultTimeout}, nil
	case <-ctx.Done():
		r.cancel(promptID)
		return service.AskResult{}, ctx.Err()
	}
}

// resolve completes the prompt a gateway reply refers to. Replies for unknown
// or finished prompts are dropped.
func (r *callRuntime) resolve(promptID string, res protocol.AskResultMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	done, ok := r.pending[promptID]
	if !ok {
		return false
	}
	delete(r.pending, promptID)
	done <- res
	return true
}

func (r *callRuntime) hangup() {
	r.hangupOnce.Do(func() { close(r.hungUp) })
}

func (r *callRuntime) begin() (string, chan protocol.AskResultMessage) {
	promptID := "prm_" + uuid.New().String()[:8]
	done := make(chan protocol.AskResultMessage, 1)
	r.mu.Lock()
	r.pending[promptID] = done
	r.mu.Unlock()
	return promptID, done
}

func (r *callRuntime) end(promptID string) {
	r.mu.Lock()
	delete(r.pending, promptID)
	r.mu.Unlock()
}

func (r *callRuntime) cancel(promptID string) {
	_ = r.send(protocol.CancelMessage{BaseMessage: r.base(protocol.TypeCancel, promptID)})
}

func (r *callRuntime) send(v interface{}) error {
	select {
	case <-r.hungUp:
		return service.ErrHangup
	default:
	}
	if err := r.hub.SendJSONToConnection(r.conn, v); err != nil {
		if err == ErrConnectionClosed {
			return service.ErrHangup
		}
		return fmt.Errorf("failed to send to gateway: %w", err)
	}
	return nil
}

func (r *callRuntime) base(msgType, promptID string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:          msgType,
		Ts:            time.Now().UnixMilli(),
		CallSessionID: r.callSessionID,
		PromptID:      promptID,
	}
}
