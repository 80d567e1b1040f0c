package service

import (
	"context"
	"errors"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/prompts"
)

func (f *callFlow) say(ctx context.Context, text string) error {
	return f.rt.Say(ctx, Speech{Text: text, Voice: f.s.prompts.Voice})
}

// ask plays an interactive prompt that the given signals may interrupt.
// A signal already pending is consumed without playing the prompt, and one
// pending when the prompt ends is preferred over the prompt's result. When a
// signal arrives mid-prompt the prompt is cancelled and waited for before ask
// returns, so the runtime is idle again when the caller acts on the signal.
func (f *callFlow) ask(ctx context.Context, a prompts.Ask, allow ...domain.SignalType) (AskResult, error) {
	if sig, ok := f.pendingSignal(allow); ok {
		return signalResult(sig), nil
	}

	promptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type askOutcome struct {
		res AskResult
		err error
	}
	done := make(chan askOutcome, 1)
	prompt := Prompt{
		Text:     a.Text,
		Voice:    f.s.prompts.Voice,
		Choices:  a.Choices,
		Mode:     a.Mode,
		Attempts: a.Attempts,
		Timeout:  a.Timeout(),
	}
	go func() {
		res, err := f.rt.Ask(promptCtx, prompt)
		done <- askOutcome{res: res, err: err}
	}()

	var stateChange, newMessage <-chan struct{}
	for _, sig := range allow {
		switch sig {
		case domain.SignalStateChange:
			stateChange = f.mailbox.Chan(sig)
		case domain.SignalNewMessage:
			newMessage = f.mailbox.Chan(sig)
		}
	}

	var sig domain.SignalType
	select {
	case out := <-done:
		if out.err != nil {
			return out.res, out.err
		}
		// A signal that landed while the prompt was ending still wins.
		if sig, ok := f.pendingSignal(allow); ok {
			return signalResult(sig), nil
		}
		return out.res, nil
	case <-stateChange:
		sig = domain.SignalStateChange
	case <-newMessage:
		sig = domain.SignalNewMessage
	}

	cancel()
	if out := <-done; errors.Is(out.err, ErrHangup) {
		return AskResult{}, out.err
	}
	return signalResult(sig), nil
}

func (f *callFlow) pendingSignal(allow []domain.SignalType) (domain.SignalType, bool) {
	for _, sig := range allow {
		select {
		case <-f.mailbox.Chan(sig):
			return sig, true
		default:
		}
	}
	return "", false
}

func signalResult(sig domain.SignalType) AskResult {
	return AskResult{Name: ResultSignal, Value: string(sig)}
}

func isSignal(res AskResult, sig domain.SignalType) bool {
	return res.Name == ResultSignal && res.Value == string(sig)
}
