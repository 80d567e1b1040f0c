// Package domain defines the core domain models for the visual IVR.
package domain

// SessionStatus represents the lifecycle status reported by the remote session.
type SessionStatus string

const (
	SessionStatusConnecting   SessionStatus = "connecting"
	SessionStatusConnected    SessionStatus = "connected"
	SessionStatusInterrupted  SessionStatus = "interrupted"
	SessionStatusDisconnected SessionStatus = "disconnected"
)

// SignalType represents the tag of an asynchronous notification.
type SignalType string

const (
	SignalStateChange SignalType = "state_change"
	SignalNewMessage  SignalType = "new_message"
)

// SignalTypes lists every signal tag the remote session can deliver.
var SignalTypes = []SignalType{SignalStateChange, SignalNewMessage}

// ParseSignalType validates a raw signal tag.
func ParseSignalType(raw string) (SignalType, bool) {
	for _, s := range SignalTypes {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// CallEventType represents the type of a ledger event.
type CallEventType string

const (
	CallEventAnswered       CallEventType = "call_answered"
	CallEventLaunchStarted  CallEventType = "launch_started"
	CallEventSessionCreated CallEventType = "session_created"
	CallEventStartupFailed  CallEventType = "startup_failed"
	CallEventStateRefreshed CallEventType = "state_refreshed"
	CallEventContentPushed  CallEventType = "content_pushed"
	CallEventSignal         CallEventType = "signal"
	CallEventMessage        CallEventType = "message_received"
	CallEventForcedEnd      CallEventType = "forced_end"
	CallEventSessionDeleted CallEventType = "session_deleted"
	CallEventEnded          CallEventType = "call_ended"
)

// CallOutcome describes how a call finished.
type CallOutcome string

const (
	CallOutcomeInProgress    CallOutcome = "in_progress"
	CallOutcomeRemoteEnded   CallOutcome = "remote_ended"
	CallOutcomeLocalEnded    CallOutcome = "local_ended"
	CallOutcomeUserEnded     CallOutcome = "user_ended"
	CallOutcomeUnreachable   CallOutcome = "unreachable"
	CallOutcomeStartupFailed CallOutcome = "startup_failed"
	CallOutcomeHangup        CallOutcome = "hangup"
)
