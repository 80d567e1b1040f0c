package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/config"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/policy"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/prompts"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/repository"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

// SessionClient is the remote session API used by a call.
type SessionClient interface {
	CreateSession(ctx context.Context, cc domain.CallContext) (*domain.SessionHandle, domain.SessionState, error)
	FetchState(ctx context.Context, handle *domain.SessionHandle) (domain.SessionState, error)
	PostContent(ctx context.Context, handle *domain.SessionHandle, url string) error
	FetchMessage(ctx context.Context, messageURI string) (domain.Message, error)
	DeleteSession(ctx context.Context, handle *domain.SessionHandle) error
}

// ButtonPolicy decides the local consequence of a button press.
type ButtonPolicy interface {
	Evaluate(ctx context.Context, msg domain.Message) (policy.Decision, error)
}

type Service struct {
	store    store.Store
	client   SessionClient
	messages *MessageRetriever
	bridge   *signalbridge.Bridge
	policy   ButtonPolicy
	prompts  *prompts.Catalog
	config   *config.Config
	logger   *zap.Logger
}

func New(store store.Store, client SessionClient, bridge *signalbridge.Bridge, policyEngine ButtonPolicy, catalog *prompts.Catalog, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		client:   client,
		messages: NewMessageRetriever(client),
		bridge:   bridge,
		policy:   policyEngine,
		prompts:  catalog,
		config:   cfg,
		logger:   logger,
	}
}

// NewCallContext builds the identifiers for an answered call. An empty
// callSessionID is replaced by a generated one.
func (s *Service) NewCallContext(callerID, callID, callSessionID string) domain.CallContext {
	if callSessionID == "" {
		callSessionID = "cs_" + uuid.New().String()
	}
	return domain.CallContext{
		CallerID:      callerID,
		CallID:        callID,
		CallSessionID: callSessionID,
		SignalBaseURI: s.config.SignalBaseURI(callSessionID),
	}
}

// ActiveCalls returns the number of calls currently able to receive signals.
func (s *Service) ActiveCalls() int {
	return s.bridge.Active()
}
