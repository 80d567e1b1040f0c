// Package protocol defines the WebSocket message protocol between the voice
// gateway and the call synchronizer.
package protocol

// Message types from gateway to service
const (
	TypeCallAnswered = "call_answered"
	TypeSayDone      = "say_done"
	TypeAskResult    = "ask_result"
	TypeHangup       = "hangup"
)

// Message types from service to gateway
const (
	TypeCallAccepted = "call_accepted"
	TypeSay          = "say"
	TypeAsk          = "ask"
	TypeCancel       = "cancel"
	TypeCallEnded    = "call_ended"
	TypeError        = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type          string `json:"type"`
	Ts            int64  `json:"ts"`
	CallSessionID string `json:"call_session_id,omitempty"`
	PromptID      string `json:"prompt_id,omitempty"`
}

// CallAnsweredMessage is sent by the gateway when a call is picked up.
// CallSessionID is optional; the service generates one when it is empty.
type CallAnsweredMessage struct {
	BaseMessage
	CallerID string `json:"caller_id"`
	CallID   string `json:"call_id"`
}

// CallAcceptedMessage confirms the call session the connection is bound to.
type CallAcceptedMessage struct {
	BaseMessage
}

// SayMessage asks the gateway to speak text.
type SayMessage struct {
	BaseMessage
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// SayDoneMessage reports that a say prompt finished playing.
type SayDoneMessage struct {
	BaseMessage
}

// AskMessage asks the gateway to play a prompt and collect input.
type AskMessage struct {
	BaseMessage
	Text      string   `json:"text"`
	Voice     string   `json:"voice,omitempty"`
	Choices   []string `json:"choices,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Attempts  int      `json:"attempts"`
	TimeoutMs int64    `json:"timeout_ms"`
}

// AskResultMessage reports how an ask prompt ended.
type AskResultMessage struct {
	BaseMessage
	Name  string `json:"name"` // "choice", "timeout" or "nomatch"
	Value string `json:"value,omitempty"`
}

// CancelMessage tells the gateway to stop a prompt in progress.
type CancelMessage struct {
	BaseMessage
}

// HangupMessage is sent by the gateway when the caller leaves.
type HangupMessage struct {
	BaseMessage
}

// CallEndedMessage is sent once the call flow has finished.
type CallEndedMessage struct {
	BaseMessage
	Outcome string `json:"outcome"`
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeCallRequired   = "call_required"
	ErrorCodeCallActive     = "call_active"
	ErrorCodeStartupFailed  = "startup_failed"
	ErrorCodeInternalError  = "internal_error"
)
