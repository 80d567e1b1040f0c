package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, callSessionID string, eventType domain.CallEventType, payload interface{}) error {
	var payloadBytes []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payloadBytes = b
	}

	event := &domain.CallEvent{
		EventID:       "evt_" + uuid.New().String()[:8],
		CallSessionID: callSessionID,
		Ts:            time.Now().UnixMilli(),
		Type:          eventType,
		Payload:       payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}
