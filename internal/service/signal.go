package service

import (
	"fmt"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

// DeliverSignal hands a webhook notification to the call it addresses.
func (s *Service) DeliverSignal(callSessionID, tag string) error {
	sig, ok := domain.ParseSignalType(tag)
	if !ok {
		return fmt.Errorf("%w: %q", signalbridge.ErrUnknownSignal, tag)
	}
	return s.bridge.Deliver(callSessionID, sig)
}
