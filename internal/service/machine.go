package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/policy"
)

const (
	reasonPromptEnded = "prompt_ended"
	reasonEndButton   = "end_button"
	reasonUnknown     = "unknown_status"
)

// run drives the call from the last known session status until the session
// is disconnected. It returns only runtime errors.
func (f *callFlow) run(ctx context.Context) error {
	for {
		var err error
		switch f.state.Status {
		case domain.SessionStatusConnected:
			err = f.connected(ctx)
		case domain.SessionStatusInterrupted:
			err = f.interrupted(ctx)
		case domain.SessionStatusDisconnected:
			if f.reported {
				f.outcome = domain.CallOutcomeRemoteEnded
				return f.say(ctx, f.s.prompts.RemoteEnded)
			}
			return nil
		default:
			f.logger.Warn("unexpected session status", zap.String("status", string(f.state.Status)))
			if err := f.say(ctx, f.s.prompts.CannotCommunicate); err != nil {
				return err
			}
			f.forceDisconnect(ctx, reasonUnknown, domain.CallOutcomeUnreachable)
		}
		if err != nil {
			return err
		}
	}
}

func (f *callFlow) connected(ctx context.Context) error {
	f.pushContent(ctx)

	res, err := f.ask(ctx, f.s.prompts.SelectButton, domain.SignalStateChange, domain.SignalNewMessage)
	if err != nil {
		return err
	}
	switch {
	case isSignal(res, domain.SignalStateChange):
		f.recordSignal(ctx, domain.SignalStateChange)
		f.refresh(ctx)
		return nil
	case isSignal(res, domain.SignalNewMessage):
		f.recordSignal(ctx, domain.SignalNewMessage)
		return f.handleMessage(ctx)
	default:
		f.forceDisconnect(ctx, reasonPromptEnded, domain.CallOutcomeLocalEnded)
		return nil
	}
}

func (f *callFlow) interrupted(ctx context.Context) error {
	res, err := f.ask(ctx, f.s.prompts.WaitReconnect, domain.SignalStateChange)
	if err != nil {
		return err
	}
	if !isSignal(res, domain.SignalStateChange) {
		f.forceDisconnect(ctx, reasonPromptEnded, domain.CallOutcomeLocalEnded)
		return nil
	}
	f.recordSignal(ctx, domain.SignalStateChange)
	if f.refresh(ctx) && f.state.Status == domain.SessionStatusConnected {
		return f.say(ctx, f.s.prompts.Reconnected)
	}
	return nil
}

func (f *callFlow) handleMessage(ctx context.Context) error {
	handle, ok := f.handle.Get()
	if !ok {
		return nil
	}
	msg, err := f.s.messages.Retrieve(ctx, handle)
	if errors.Is(err, ErrNoMessageResource) {
		f.logger.Warn("new_message signal without message resource")
		return nil
	}
	if err != nil {
		f.logger.Warn("failed to retrieve message", zap.Error(err))
		return nil
	}

	if err := f.say(ctx, f.s.prompts.PressedText(msg.ButtonName)); err != nil {
		return err
	}

	decision, err := f.s.policy.Evaluate(ctx, msg)
	if err != nil {
		f.logger.Warn("button policy evaluation failed", zap.Error(err))
		decision = policy.DecisionContinue
	}
	f.record(ctx, domain.CallEventMessage, domain.MessagePayload{
		ButtonName:   msg.ButtonName,
		ButtonNumber: msg.ButtonNumber,
		Decision:     string(decision),
	})

	if decision != policy.DecisionEndSession {
		return nil
	}
	if err := f.say(ctx, f.s.prompts.EndButton); err != nil {
		return err
	}
	f.forceDisconnect(ctx, reasonEndButton, domain.CallOutcomeUserEnded)
	return nil
}

// refresh replaces the state with a freshly fetched one. On failure the state
// is left as it was.
func (f *callFlow) refresh(ctx context.Context) bool {
	handle, ok := f.handle.Get()
	if !ok {
		return false
	}
	st, err := f.s.client.FetchState(ctx, handle)
	if err != nil {
		f.logger.Warn("failed to refresh session state", zap.Error(err))
		return false
	}
	prev := f.state.Status
	f.applyState(st)
	f.record(ctx, domain.CallEventStateRefreshed, domain.StateRefreshedPayload{
		Previous: prev,
		Current:  st.Status,
	})
	return true
}

func (f *callFlow) applyState(st domain.SessionState) {
	f.state = st
	f.reported = true
}

func (f *callFlow) pushContent(ctx context.Context) {
	handle, ok := f.handle.Get()
	if !ok {
		return
	}
	if err := f.s.client.PostContent(ctx, handle, f.s.config.ContentURL); err != nil {
		f.logger.Warn("failed to push content", zap.Error(err))
		return
	}
	f.record(ctx, domain.CallEventContentPushed, map[string]string{"url": f.s.config.ContentURL})
}

// forceDisconnect tears the session down locally regardless of what the
// remote side last reported.
func (f *callFlow) forceDisconnect(ctx context.Context, reason string, outcome domain.CallOutcome) {
	f.deleteSession(ctx)
	f.record(ctx, domain.CallEventForcedEnd, domain.ForcedEndPayload{
		Reason: reason,
		Status: f.state.Status,
	})
	f.state.Status = domain.SessionStatusDisconnected
	f.reported = false
	f.outcome = outcome
}

// deleteSession deletes the remote session at most once per call.
func (f *callFlow) deleteSession(ctx context.Context) {
	handle, ok := f.handle.Get()
	if !ok || f.deleted {
		return
	}
	f.deleted = true

	ctx, cancel := f.detached(ctx)
	defer cancel()
	if err := f.s.client.DeleteSession(ctx, handle); err != nil {
		f.logger.Warn("failed to delete session", zap.Error(err))
	}
	f.record(ctx, domain.CallEventSessionDeleted, nil)
}

func (f *callFlow) recordSignal(ctx context.Context, sig domain.SignalType) {
	f.record(ctx, domain.CallEventSignal, domain.SignalPayload{Signal: sig, Status: f.state.Status})
}

// detached returns a context that outlives the caller hanging up, for cleanup
// that must still reach the remote session and the ledger.
func (f *callFlow) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if f.s.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, f.s.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
