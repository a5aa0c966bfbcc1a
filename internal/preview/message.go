// Package preview keeps a rendering surface in step with the authoring
// document.
//
// The authoring side (Session) waits for the renderer to announce itself with
// a ready message, then sends a full snapshot. If no ready arrives within the
// handshake timeout the snapshot is sent anyway. Every later push sends a new
// full snapshot; renderers replace their state, they never merge.
package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/msalah0e/canopy/internal/document"
)

// Message types.
const (
	TypeReady        = "ready"
	TypeUpdateDesign = "updateDesign"
)

var (
	ErrNoRenderer     = errors.New("no preview renderer connected")
	ErrOriginMismatch = errors.New("message from unexpected origin")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrMalformed      = errors.New("malformed preview message")
)

// Message is the envelope exchanged between the two sides.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Snapshot is the payload of an updateDesign message.
type Snapshot struct {
	Components    document.Document `json:"components"`
	GeneratedCode string            `json:"generatedCode"`
	Timestamp     int64             `json:"timestamp"`
}

// Time returns the snapshot timestamp.
func (s Snapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Ready builds the renderer's handshake message.
func Ready() Message {
	return Message{Type: TypeReady}
}

// Update wraps a snapshot in an updateDesign message.
func Update(s Snapshot) (Message, error) {
	if s.Components == nil {
		s.Components = document.Document{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return Message{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	return Message{Type: TypeUpdateDesign, Data: data}, nil
}

// Snapshot decodes the payload of an updateDesign message.
func (m Message) Snapshot() (Snapshot, error) {
	if m.Type != TypeUpdateDesign {
		return Snapshot{}, fmt.Errorf("%s has no snapshot: %w", m.Type, ErrMalformed)
	}
	if len(m.Data) == 0 {
		return Snapshot{}, fmt.Errorf("missing data: %w", ErrMalformed)
	}
	var s Snapshot
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	return s, nil
}

// Decode parses a raw frame.
func Decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("missing type: %w", ErrMalformed)
	}
	return m, nil
}

// Inbound is a message as delivered by a transport, stamped with the origin
// of the peer that sent it.
type Inbound struct {
	Origin  string
	Message Message
}

// Sink delivers messages to the other side. Sends are best effort.
type Sink interface {
	Send(Message) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Message) error

func (f SinkFunc) Send(m Message) error { return f(m) }

// Origin reduces a URL to scheme://host[:port]. WebSocket schemes map to
// their HTTP equivalents.
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	scheme := u.Scheme
	switch scheme {
	case "ws":
		scheme = "http"
	case "wss":
		scheme = "https"
	}
	return scheme + "://" + u.Host
}
