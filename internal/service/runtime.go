package service

import (
	"context"
	"errors"
	"time"
)

// ErrHangup is returned by a Runtime once the caller has left the call.
var ErrHangup = errors.New("caller hung up")

// Ask result names.
const (
	ResultChoice  = "choice"
	ResultTimeout = "timeout"
	ResultNoMatch = "nomatch"
	ResultSignal  = "signal"
)

// Speech is a non-interactive prompt.
type Speech struct {
	Text  string
	Voice string
}

// Prompt is an interactive prompt collecting caller input.
type Prompt struct {
	Text     string
	Voice    string
	Choices  []string
	Mode     string
	Attempts int
	Timeout  time.Duration // per attempt
}

// AskResult is how a prompt ended. For ResultSignal, Value holds the signal tag.
type AskResult struct {
	Name  string
	Value string
}

// Runtime is the call-control runtime that plays prompts to the caller.
// Ask must return promptly once ctx is cancelled.
type Runtime interface {
	Say(ctx context.Context, speech Speech) error
	Ask(ctx context.Context, prompt Prompt) (AskResult, error)
}
