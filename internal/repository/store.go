package store

import (
	"context"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// Store defines the interface for call ledger operations.
type Store interface {
	// Call operations
	CreateCall(ctx context.Context, call *domain.Call) error
	GetCall(ctx context.Context, callSessionID string) (*domain.Call, error)
	ListCalls(ctx context.Context, limit int) ([]domain.Call, error)
	AttachSession(ctx context.Context, callSessionID, sessionURI, messageURI string) error
	CompleteCall(ctx context.Context, callSessionID string, outcome domain.CallOutcome, finalStatus domain.SessionStatus) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.CallEvent) error
	GetEvents(ctx context.Context, callSessionID string, afterTs int64, types []string, limit int) ([]domain.CallEvent, error)

	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
