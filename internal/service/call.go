package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/adapter/choiceview"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

// callFlow is the state owned by one call. It is confined to the goroutine
// running HandleCall.
type callFlow struct {
	s       *Service
	rt      Runtime
	cc      domain.CallContext
	mailbox *signalbridge.Mailbox
	logger  *zap.Logger

	handle   domain.Optional[*domain.SessionHandle]
	state    domain.SessionState
	reported bool // state came from the remote side, not a local teardown
	deleted  bool
	outcome  domain.CallOutcome
}

// HandleCall runs one answered call to completion: welcome, session launch,
// the synchronization loop, session cleanup and farewell.
//
// A call whose session id is still active is refused with
// signalbridge.ErrCallActive before anything is created. Otherwise only a
// *choiceview.StartupError is returned as an error; the caller has already
// heard the apology by then. Everything else is absorbed and reflected in
// the returned outcome.
func (s *Service) HandleCall(ctx context.Context, rt Runtime, cc domain.CallContext) (domain.CallOutcome, error) {
	logger := s.logger.With(zap.String("call_session_id", cc.CallSessionID))
	mailbox, err := s.bridge.Open(cc.CallSessionID)
	if err != nil {
		logger.Warn("call refused", zap.Error(err))
		return "", fmt.Errorf("failed to open call: %w", err)
	}
	defer s.bridge.Close(mailbox)

	f := &callFlow{
		s:       s,
		rt:      rt,
		cc:      cc,
		mailbox: mailbox,
		logger:  logger,
		outcome: domain.CallOutcomeInProgress,
	}

	if err := s.store.CreateCall(ctx, &domain.Call{
		CallSessionID: cc.CallSessionID,
		CallerID:      cc.CallerID,
		CallID:        cc.CallID,
		StartedAt:     time.Now(),
	}); err != nil {
		f.logger.Warn("failed to record call", zap.Error(err))
	}
	f.record(ctx, domain.CallEventAnswered, map[string]string{
		"caller_id": cc.CallerID,
		"call_id":   cc.CallID,
	})
	f.logger.Info("call answered", zap.String("caller_id", cc.CallerID), zap.String("call_id", cc.CallID))

	err = f.say(ctx, s.prompts.Welcome)
	if err == nil {
		var launch *Launch
		launch, err = f.launch(ctx)
		if launch != nil {
			f.logger.Info("session launched",
				zap.String("status", string(launch.State.Status)),
				zap.Bool("prompt_signalled", launch.PromptSignalled))
		}
		var startup *choiceview.StartupError
		if errors.As(err, &startup) {
			f.logger.Error("session startup failed", zap.Error(err))
			f.outcome = domain.CallOutcomeStartupFailed
			if sayErr := f.say(ctx, s.prompts.CannotConnect); sayErr != nil {
				f.logger.Debug("apology not delivered", zap.Error(sayErr))
			}
			f.finish(ctx)
			return f.outcome, err
		}
	}
	if err == nil {
		err = f.run(ctx)
	}

	f.deleteSession(ctx)

	if err != nil {
		if !errors.Is(err, ErrHangup) {
			f.logger.Warn("call ended by runtime failure", zap.Error(err))
		}
		f.outcome = domain.CallOutcomeHangup
	} else if sayErr := f.say(ctx, s.prompts.Goodbye); sayErr != nil {
		f.logger.Debug("goodbye not delivered", zap.Error(sayErr))
	}

	f.finish(ctx)
	return f.outcome, nil
}

func (f *callFlow) finish(ctx context.Context) {
	ctx, cancel := f.detached(ctx)
	defer cancel()

	finalStatus := f.state.Status
	if !f.handle.Present() {
		finalStatus = ""
	}
	if err := f.s.store.CompleteCall(ctx, f.cc.CallSessionID, f.outcome, finalStatus); err != nil {
		f.logger.Warn("failed to complete call", zap.Error(err))
	}
	f.record(ctx, domain.CallEventEnded, domain.CallEndedPayload{
		Outcome:     f.outcome,
		FinalStatus: finalStatus,
	})
	f.logger.Info("call ended",
		zap.String("outcome", string(f.outcome)),
		zap.String("final_status", string(finalStatus)))
}

// record writes a ledger event. Ledger failures never affect the call.
func (f *callFlow) record(ctx context.Context, eventType domain.CallEventType, payload interface{}) {
	if err := f.s.recordEvent(ctx, f.cc.CallSessionID, eventType, payload); err != nil {
		f.logger.Warn("failed to record event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
