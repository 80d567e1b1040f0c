// Package signalbridge turns notifications delivered to the webhook endpoint
// into signals that a call blocked on a voice prompt can observe.
package signalbridge

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

var (
	// ErrUnknownCall is returned when no mailbox is open for a call session.
	ErrUnknownCall = errors.New("no active call for signal")
	// ErrUnknownSignal is returned for a tag outside the signal vocabulary.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrCallActive is returned when a mailbox is already open for a call session.
	ErrCallActive = errors.New("call session already active")
)

// Mailbox holds pending signals for one call. Each tag has a single pending
// slot, so repeated deliveries of a tag before it is consumed collapse into one.
type Mailbox struct {
	callSessionID string
	slots         map[domain.SignalType]chan struct{}
}

func newMailbox(callSessionID string) *Mailbox {
	m := &Mailbox{
		callSessionID: callSessionID,
		slots:         make(map[domain.SignalType]chan struct{}, len(domain.SignalTypes)),
	}
	for _, sig := range domain.SignalTypes {
		m.slots[sig] = make(chan struct{}, 1)
	}
	return m
}

// CallSessionID returns the call session the mailbox belongs to.
func (m *Mailbox) CallSessionID() string {
	return m.callSessionID
}

// Chan returns the receive side of a tag's slot. Unknown tags yield nil, which
// blocks forever in a select.
func (m *Mailbox) Chan(sig domain.SignalType) <-chan struct{} {
	return m.slots[sig]
}

// Post marks a tag as pending. It reports false when the tag was already
// pending and the delivery coalesced.
func (m *Mailbox) Post(sig domain.SignalType) bool {
	slot, ok := m.slots[sig]
	if !ok {
		return false
	}
	select {
	case slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Pending reports whether a tag is waiting to be consumed.
func (m *Mailbox) Pending(sig domain.SignalType) bool {
	return len(m.slots[sig]) > 0
}

// Bridge routes signals to the mailbox of the call they belong to.
type Bridge struct {
	logger    *zap.Logger
	mu        sync.RWMutex
	mailboxes map[string]*Mailbox
}

// New creates a new Bridge.
func New(logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		logger:    logger,
		mailboxes: make(map[string]*Mailbox),
	}
}

// Open creates the mailbox for a call session. A call session has at most one
// mailbox; opening it again before Close fails with ErrCallActive.
func (b *Bridge) Open(callSessionID string) (*Mailbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.mailboxes[callSessionID]; ok {
		return nil, ErrCallActive
	}
	m := newMailbox(callSessionID)
	b.mailboxes[callSessionID] = m
	return m, nil
}

// Close drops a mailbox. A mailbox that is no longer the registered one for
// its call session is ignored.
func (b *Bridge) Close(m *Mailbox) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mailboxes[m.CallSessionID()] == m {
		delete(b.mailboxes, m.CallSessionID())
	}
}

// Deliver posts a signal to a call. Deliveries never block.
func (b *Bridge) Deliver(callSessionID string, sig domain.SignalType) error {
	if _, ok := domain.ParseSignalType(string(sig)); !ok {
		return ErrUnknownSignal
	}

	b.mu.RLock()
	m, ok := b.mailboxes[callSessionID]
	b.mu.RUnlock()
	if !ok {
		return ErrUnknownCall
	}

	queued := m.Post(sig)
	b.logger.Debug("signal delivered",
		zap.String("call_session_id", callSessionID),
		zap.String("signal", string(sig)),
		zap.Bool("coalesced", !queued),
	)
	return nil
}

// Active returns the number of open mailboxes.
func (b *Bridge) Active() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.mailboxes)
}
