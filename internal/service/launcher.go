package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/adapter/choiceview"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// Launch is the result of starting the remote session.
type Launch struct {
	Handle *domain.SessionHandle
	State  domain.SessionState
	// PromptSignalled is set when the start prompt was ended by state_change.
	PromptSignalled bool
}

// launch creates the remote session while the caller hears the start prompt.
// The create request is always joined before launch returns, however the
// prompt ended. A create failure cancels the prompt.
//
// Errors: *choiceview.StartupError when no usable session exists, or the
// runtime error (ErrHangup, ctx) that ended the prompt. In the latter case a
// created session is already held by the flow so it can be deleted.
func (f *callFlow) launch(ctx context.Context) (*Launch, error) {
	f.record(ctx, domain.CallEventLaunchStarted, nil)

	g, gctx := errgroup.WithContext(ctx)

	var (
		handle *domain.SessionHandle
		state  domain.SessionState
	)
	g.Go(func() error {
		h, st, err := f.s.client.CreateSession(gctx, f.cc)
		handle, state = h, st
		return err
	})

	res, askErr := f.ask(gctx, f.s.prompts.StartClient, domain.SignalStateChange)
	createErr := g.Wait()

	if handle != nil {
		f.handle = domain.Some(handle)
	}

	if createErr != nil {
		f.record(ctx, domain.CallEventStartupFailed, startupFailedPayload(createErr))
		if handle != nil {
			// 201 with an unusable body: the session exists remotely.
			f.deleteSession(ctx)
		}
		var startup *choiceview.StartupError
		if errors.As(createErr, &startup) {
			return nil, startup
		}
		return nil, &choiceview.StartupError{Err: createErr}
	}
	if askErr != nil {
		return nil, fmt.Errorf("start prompt failed: %w", askErr)
	}

	launch := &Launch{
		Handle:          handle,
		State:           state,
		PromptSignalled: isSignal(res, domain.SignalStateChange),
	}
	f.applyState(state)
	f.attachSession(ctx, handle)

	if launch.PromptSignalled || state.Status == domain.SessionStatusConnecting {
		if f.refresh(ctx) {
			launch.State = f.state
		}
	}
	return launch, nil
}

func (f *callFlow) attachSession(ctx context.Context, handle *domain.SessionHandle) {
	messageURI, _ := handle.MessageURI.Get()
	if err := f.s.store.AttachSession(ctx, f.cc.CallSessionID, handle.URI, messageURI); err != nil {
		f.logger.Warn("failed to record session", zap.Error(err))
	}
	f.record(ctx, domain.CallEventSessionCreated, domain.SessionCreatedPayload{
		SessionURI: handle.URI,
		MessageURI: messageURI,
		Status:     f.state.Status,
	})
}

func startupFailedPayload(err error) domain.StartupFailedPayload {
	payload := domain.StartupFailedPayload{Message: err.Error()}
	var startup *choiceview.StartupError
	if errors.As(err, &startup) {
		payload.StatusCode = startup.StatusCode
	}
	return payload
}
