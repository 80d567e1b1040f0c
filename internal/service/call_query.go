package service

import (
	"context"
	"fmt"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

func (s *Service) ListCalls(ctx context.Context, limit int) ([]domain.Call, error) {
	calls, err := s.store.ListCalls(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return calls, nil
}

func (s *Service) GetCall(ctx context.Context, callSessionID string) (*domain.Call, error) {
	call, err := s.store.GetCall(ctx, callSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get call: %w", err)
	}
	return call, nil
}

func (s *Service) GetCallEvents(ctx context.Context, callSessionID string, afterTs int64, types []string, limit int) ([]domain.CallEvent, error) {
	events, err := s.store.GetEvents(ctx, callSessionID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get call events: %w", err)
	}
	return events, nil
}
