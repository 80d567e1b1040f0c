package domain

import "strings"

// CallContext holds the identifiers of an answered call.
type CallContext struct {
	CallerID      string
	CallID        string
	CallSessionID string
	// SignalBaseURI is completed by appending a signal tag.
	SignalBaseURI string
}

// SignalURI returns the notification address for a signal tag.
func (c CallContext) SignalURI(sig SignalType) string {
	return c.SignalBaseURI + string(sig)
}

// SessionHandle addresses a remote session resource.
type SessionHandle struct {
	URI        string
	Username   string
	Password   string
	MessageURI Optional[string]
}

// SessionState mirrors the last known remote session representation.
type SessionState struct {
	Status         SessionStatus `json:"status"`
	SessionID      string        `json:"session_id,omitempty"`
	NetworkQuality string        `json:"network_quality,omitempty"`
	NetworkType    string        `json:"network_type,omitempty"`
}

// Message is a decoded button press from the mobile client.
type Message struct {
	ButtonName   string `json:"button_name"`
	ButtonNumber string `json:"button_number"`
}

// Link is a hypermedia link in a session representation.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// SessionRepresentation is the body returned by the session resource.
type SessionRepresentation struct {
	SessionID      any           `json:"sessionId,omitempty"`
	CallerID       string        `json:"callerId,omitempty"`
	CallID         string        `json:"callId,omitempty"`
	Status         SessionStatus `json:"status"`
	NetworkQuality string        `json:"networkQuality,omitempty"`
	NetworkType    string        `json:"networkType,omitempty"`
	Links          []Link        `json:"links,omitempty"`
}

// FindLink returns the href of the first link whose rel ends with suffix.
func (r *SessionRepresentation) FindLink(suffix string) Optional[string] {
	for _, l := range r.Links {
		if strings.HasSuffix(l.Rel, suffix) && l.Href != "" {
			return Some(l.Href)
		}
	}
	return None[string]()
}

// CreateSessionRequest is the body posted to start a remote session.
type CreateSessionRequest struct {
	CallerID       string `json:"callerId"`
	CallID         string `json:"callId"`
	StateChangeURI string `json:"stateChangeUri"`
	NewMessageURI  string `json:"newMessageUri"`
}

// ContentRequest asks the remote session to display a URL.
type ContentRequest struct {
	URL string `json:"url"`
}

// MessageRepresentation is the body of the message sub-resource.
type MessageRepresentation struct {
	ButtonName   string `json:"buttonName"`
	ButtonNumber string `json:"buttonNumber"`
}
