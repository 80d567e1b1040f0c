package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// ErrNoMessageResource is returned when a new_message signal arrives for a
// session whose create response carried no message link.
var ErrNoMessageResource = errors.New("session has no message resource")

// MessageRetriever fetches the queued message of a session.
type MessageRetriever struct {
	client SessionClient
}

func NewMessageRetriever(client SessionClient) *MessageRetriever {
	return &MessageRetriever{client: client}
}

// Retrieve fetches and decodes one message. It does not retry.
func (r *MessageRetriever) Retrieve(ctx context.Context, handle *domain.SessionHandle) (domain.Message, error) {
	uri, ok := handle.MessageURI.Get()
	if !ok {
		return domain.Message{}, ErrNoMessageResource
	}
	msg, err := r.client.FetchMessage(ctx, uri)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to fetch message: %w", err)
	}
	return msg, nil
}
