// Package choiceview provides an HTTP client for the ChoiceView IVR session API.
package choiceview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// messageLinkSuffix identifies the message sub-resource among session links.
const messageLinkSuffix = "controlmessage"

// Client talks to the remote session resource and its message sub-resource.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a new session API client.
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateSession starts a remote session for the call. The returned handle is
// valid whenever the server created the resource, even if err is a DecodeError.
func (c *Client) CreateSession(ctx context.Context, cc domain.CallContext) (*domain.SessionHandle, domain.SessionState, error) {
	const op = "create session"

	body, err := json.Marshal(domain.CreateSessionRequest{
		CallerID:       cc.CallerID,
		CallID:         cc.CallID,
		StateChangeURI: cc.SignalURI(domain.SignalStateChange),
		NewMessageURI:  cc.SignalURI(domain.SignalNewMessage),
	})
	if err != nil {
		return nil, domain.SessionState{}, &StartupError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/sessions", body)
	if err != nil {
		return nil, domain.SessionState{}, &StartupError{Err: &TransportError{Op: op, Err: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, domain.SessionState{}, &StartupError{StatusCode: resp.StatusCode}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, domain.SessionState{}, &StartupError{Err: ErrMissingLocation}
	}
	handle := &domain.SessionHandle{
		URI:        location,
		Username:   c.username,
		Password:   c.password,
		MessageURI: domain.None[string](),
	}

	var rep domain.SessionRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return handle, domain.SessionState{}, &DecodeError{Op: op, Err: err}
	}
	if rep.Status == "" {
		return handle, domain.SessionState{}, &DecodeError{Op: op, Err: ErrMissingStatus}
	}
	handle.MessageURI = rep.FindLink(messageLinkSuffix)

	return handle, stateFrom(&rep), nil
}

// FetchState retrieves the current representation of the session.
func (c *Client) FetchState(ctx context.Context, handle *domain.SessionHandle) (domain.SessionState, error) {
	var rep domain.SessionRepresentation
	if err := c.getJSON(ctx, "fetch session", handle.URI, &rep); err != nil {
		return domain.SessionState{}, err
	}
	if rep.Status == "" {
		return domain.SessionState{}, &DecodeError{Op: "fetch session", Err: ErrMissingStatus}
	}
	return stateFrom(&rep), nil
}

// PostContent instructs the mobile client to display url.
func (c *Client) PostContent(ctx context.Context, handle *domain.SessionHandle, url string) error {
	const op = "post content"

	body, err := json.Marshal(domain.ContentRequest{URL: url})
	if err != nil {
		return fmt.Errorf("failed to marshal content request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, handle.URI, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}

// FetchMessage retrieves the queued control message.
func (c *Client) FetchMessage(ctx context.Context, messageURI string) (domain.Message, error) {
	var rep domain.MessageRepresentation
	if err := c.getJSON(ctx, "fetch message", messageURI, &rep); err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ButtonName:   rep.ButtonName,
		ButtonNumber: rep.ButtonNumber,
	}, nil
}

// DeleteSession ends the remote session. A session that is already gone is
// not an error.
func (c *Client) DeleteSession(ctx context.Context, handle *domain.SessionHandle) error {
	const op = "delete session"

	resp, err := c.do(ctx, http.MethodDelete, handle.URI, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, url string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	return c.httpClient.Do(req)
}

func stateFrom(rep *domain.SessionRepresentation) domain.SessionState {
	state := domain.SessionState{
		Status:         rep.Status,
		NetworkQuality: rep.NetworkQuality,
		NetworkType:    rep.NetworkType,
	}
	if rep.SessionID != nil {
		state.SessionID = fmt.Sprint(rep.SessionID)
	}
	return state
}
