package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/config"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/policy"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/prompts"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/repository"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/signalbridge"
)

const testContentURL = "https://content.example/buttons.html"

// fakeClient is a scripted session API.
type fakeClient struct {
	mu sync.Mutex

	createRelease chan struct{} // when set, create blocks until closed
	createHandle  *domain.SessionHandle
	createState   domain.SessionState
	createErr     error
	createDone    bool

	states     []domain.SessionState // successive FetchState results
	fetchErrs  []error               // consumed before states
	messages   []domain.Message
	messageErr error
	pushErr    error

	creates      int
	fetches      int
	earlyFetches int
	pushes       int
	pushedURLs   []string
	messageReads int
	deletes      int
}

func newFakeClient(status domain.SessionStatus) *fakeClient {
	return &fakeClient{
		createHandle: &domain.SessionHandle{
			URI:        "https://cv.example/sessions/1",
			MessageURI: domain.Some("https://cv.example/sessions/1/controlmessage"),
		},
		createState: domain.SessionState{Status: status},
	}
}

func (c *fakeClient) CreateSession(ctx context.Context, cc domain.CallContext) (*domain.SessionHandle, domain.SessionState, error) {
	c.mu.Lock()
	c.creates++
	release := c.createRelease
	c.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, domain.SessionState{}, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.createDone = true
	return c.createHandle, c.createState, c.createErr
}

func (c *fakeClient) FetchState(ctx context.Context, handle *domain.SessionHandle) (domain.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	if !c.createDone {
		c.earlyFetches++
	}
	if len(c.fetchErrs) > 0 {
		err := c.fetchErrs[0]
		c.fetchErrs = c.fetchErrs[1:]
		if err != nil {
			return domain.SessionState{}, err
		}
	}
	if len(c.states) == 0 {
		return c.createState, nil
	}
	st := c.states[0]
	if len(c.states) > 1 {
		c.states = c.states[1:]
	}
	return st, nil
}

func (c *fakeClient) PostContent(ctx context.Context, handle *domain.SessionHandle, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes++
	c.pushedURLs = append(c.pushedURLs, url)
	return c.pushErr
}

func (c *fakeClient) FetchMessage(ctx context.Context, messageURI string) (domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageReads++
	if c.messageErr != nil {
		return domain.Message{}, c.messageErr
	}
	if len(c.messages) == 0 {
		return domain.Message{}, nil
	}
	msg := c.messages[0]
	c.messages = c.messages[1:]
	return msg, nil
}

func (c *fakeClient) DeleteSession(ctx context.Context, handle *domain.SessionHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	return nil
}

func (c *fakeClient) counts() (fetches, pushes, deletes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches, c.pushes, c.deletes
}

// askStep scripts one Ask. onStart runs when the prompt begins. When block is
// set the prompt waits for cancellation, otherwise it returns result/err.
type askStep struct {
	onStart func()
	block   bool
	result  AskResult
	err     error
}

// fakeRuntime records spoken text and replays scripted asks. Once the script
// is exhausted every Ask reports a hangup.
type fakeRuntime struct {
	mu     sync.Mutex
	steps  []askStep
	said   []string
	asked  []string
	sayErr error
}

func (r *fakeRuntime) Say(ctx context.Context, speech Speech) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sayErr != nil {
		return r.sayErr
	}
	r.said = append(r.said, speech.Text)
	return nil
}

func (r *fakeRuntime) Ask(ctx context.Context, prompt Prompt) (AskResult, error) {
	r.mu.Lock()
	r.asked = append(r.asked, prompt.Text)
	if len(r.steps) == 0 {
		r.mu.Unlock()
		return AskResult{}, ErrHangup
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	r.mu.Unlock()

	if step.onStart != nil {
		step.onStart()
	}
	if step.block {
		<-ctx.Done()
		return AskResult{}, ctx.Err()
	}
	return step.result, step.err
}

func (r *fakeRuntime) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.said...)
}

func (r *fakeRuntime) askedTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.asked...)
}

func timeoutStep() askStep {
	return askStep{result: AskResult{Name: ResultTimeout}}
}

type testEnv struct {
	svc     *Service
	client  *fakeClient
	rt      *fakeRuntime
	bridge  *signalbridge.Bridge
	store   *store.SQLiteStore
	catalog *prompts.Catalog
	cc      domain.CallContext
}

func newTestEnv(t *testing.T, client *fakeClient, steps ...askStep) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, "2")
	require.NoError(t, err)

	cfg := &config.Config{
		PublicURL:      "http://ivr.example",
		ContentURL:     testContentURL,
		RequestTimeout: time.Second,
	}
	logger := zap.NewNop()
	bridge := signalbridge.New(logger)
	catalog := prompts.Default()

	svc := New(st, client, bridge, engine, catalog, cfg, logger)
	return &testEnv{
		svc:     svc,
		client:  client,
		rt:      &fakeRuntime{steps: steps},
		bridge:  bridge,
		store:   st,
		catalog: catalog,
		cc:      svc.NewCallContext("7205551234", "call-1", "cs-test"),
	}
}

// deliver returns a hook that posts signals to the test call.
func (e *testEnv) deliver(sigs ...domain.SignalType) func() {
	return func() {
		for _, sig := range sigs {
			_ = e.bridge.Deliver(e.cc.CallSessionID, sig)
		}
	}
}

func (e *testEnv) handle(t *testing.T) (domain.CallOutcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.svc.HandleCall(ctx, e.rt, e.cc)
}

func (e *testEnv) eventTypes(t *testing.T) []domain.CallEventType {
	t.Helper()
	events, err := e.store.GetEvents(context.Background(), e.cc.CallSessionID, 0, nil, 0)
	require.NoError(t, err)
	types := make([]domain.CallEventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}
