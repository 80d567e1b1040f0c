package domain

import (
	"encoding/json"
	"time"
)

// Call is the ledger row for one answered call.
type Call struct {
	CallSessionID string        `json:"call_session_id"`
	CallerID      string        `json:"caller_id"`
	CallID        string        `json:"call_id"`
	SessionURI    string        `json:"session_uri,omitempty"`
	MessageURI    string        `json:"message_uri,omitempty"`
	FinalStatus   SessionStatus `json:"final_status,omitempty"`
	Outcome       CallOutcome   `json:"outcome"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
}

// CallEvent represents a trace event for a call.
type CallEvent struct {
	EventID       string          `json:"event_id"`
	CallSessionID string          `json:"call_session_id"`
	Ts            int64           `json:"ts"` // Unix milliseconds
	Type          CallEventType   `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// SessionCreatedPayload is recorded when the remote session starts.
type SessionCreatedPayload struct {
	SessionURI string        `json:"session_uri"`
	MessageURI string        `json:"message_uri,omitempty"`
	Status     SessionStatus `json:"status"`
}

// StartupFailedPayload is recorded when the remote session cannot start.
type StartupFailedPayload struct {
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// StateRefreshedPayload is recorded after each successful state fetch.
type StateRefreshedPayload struct {
	Previous SessionStatus `json:"previous"`
	Current  SessionStatus `json:"current"`
}

// SignalPayload is recorded when a signal interrupts a prompt.
type SignalPayload struct {
	Signal SignalType    `json:"signal"`
	Status SessionStatus `json:"status"`
}

// MessagePayload is recorded for each retrieved button press.
type MessagePayload struct {
	ButtonName   string `json:"button_name"`
	ButtonNumber string `json:"button_number"`
	Decision     string `json:"decision"`
}

// ForcedEndPayload is recorded when the call tears the session down locally.
type ForcedEndPayload struct {
	Reason string        `json:"reason"`
	Status SessionStatus `json:"status"`
}

// CallEndedPayload is recorded once per call.
type CallEndedPayload struct {
	Outcome     CallOutcome   `json:"outcome"`
	FinalStatus SessionStatus `json:"final_status,omitempty"`
}
