package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/browser"
)

// DefaultTimeout is how long Open waits for a ready message before sending
// the snapshot anyway.
const DefaultTimeout = 3 * time.Second

// Status of the authoring session.
type Status int

const (
	StatusIdle Status = iota
	StatusWaiting
	StatusLive
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusWaiting:
		return "waiting"
	case StatusLive:
		return "live"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for _, v := range []Status{StatusIdle, StatusWaiting, StatusLive, StatusError} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown preview status %q", text)
}

// Report is a point-in-time view of a session.
type Report struct {
	Status   Status    `json:"status"`
	LastSent time.Time `json:"lastSent,omitzero"`
	Sent     int       `json:"sent"`
	Dropped  int       `json:"dropped"`
	Err      string    `json:"error,omitempty"`
}

// SnapshotFunc returns the current document snapshot.
type SnapshotFunc func() Snapshot

// Opener brings up a rendering surface at url.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to an Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }

// BrowserOpener opens the preview page in the user's browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

// NopOpener is used when the renderer is started separately.
type NopOpener struct{}

func (NopOpener) Open(string) error { return nil }

// SessionConfig configures a Session.
type SessionConfig struct {
	URL            string        // preview page handed to the Opener
	RendererOrigin string        // only messages from this origin are accepted
	Timeout        time.Duration // handshake fallback
}

// Session is the authoring side of the protocol.
type Session struct {
	cfg      SessionConfig
	opener   Opener
	sink     Sink
	snapshot SnapshotFunc

	mu       sync.Mutex
	status   Status
	lastErr  error
	lastSent time.Time
	sent     int
	dropped  int
	ready    bool
	fallback *time.Timer
	epoch    int
}

// NewSession creates an idle session.
func NewSession(cfg SessionConfig, opener Opener, sink Sink, snapshot SnapshotFunc) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if opener == nil {
		opener = NopOpener{}
	}
	return &Session{cfg: cfg, opener: opener, sink: sink, snapshot: snapshot}
}

// Open launches the renderer and arms the handshake fallback. The fallback is
// disarmed when ctx is done.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopFallback()
	s.ready = false
	s.status = StatusWaiting
	s.lastErr = nil

	if err := s.opener.Open(s.cfg.URL); err != nil {
		s.status = StatusError
		s.lastErr = fmt.Errorf("opening preview: %w", err)
		return s.lastErr
	}

	s.epoch++
	epoch := s.epoch
	s.fallback = time.AfterFunc(s.cfg.Timeout, func() { s.fire(epoch) })
	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch == epoch {
			s.stopFallback()
		}
	})
	return nil
}

// Handle processes a message from the renderer. Messages from other origins
// and unknown types are dropped without side effects beyond the counter.
func (s *Session) Handle(in Inbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Origin != s.cfg.RendererOrigin {
		s.dropped++
		return fmt.Errorf("%q: %w", in.Origin, ErrOriginMismatch)
	}
	if in.Message.Type != TypeReady {
		s.dropped++
		return fmt.Errorf("%q: %w", in.Message.Type, ErrUnknownMessage)
	}

	s.stopFallback()
	s.ready = true
	return s.send()
}

// Push sends a fresh snapshot.
func (s *Session) Push() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send()
}

// Retry re-opens the renderer and re-sends the snapshot.
func (s *Session) Retry(ctx context.Context) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	err := s.Push()
	if errors.Is(err, ErrNoRenderer) {
		// The renderer may still be starting; the handshake will deliver.
		s.mu.Lock()
		s.status = StatusWaiting
		s.mu.Unlock()
		return nil
	}
	return err
}

// Status reports the session state.
func (s *Session) Status() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Report{Status: s.status, LastSent: s.lastSent, Sent: s.sent, Dropped: s.dropped}
	if s.lastErr != nil {
		r.Err = s.lastErr.Error()
	}
	return r
}

// Close disarms the fallback and returns the session to idle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopFallback()
	s.epoch++
	s.status = StatusIdle
}

func (s *Session) fire(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.ready || s.fallback == nil {
		return
	}
	s.fallback = nil
	_ = s.send()
}

func (s *Session) stopFallback() {
	if s.fallback != nil {
		s.fallback.Stop()
		s.fallback = nil
	}
}

// send must be called with mu held.
func (s *Session) send() error {
	msg, err := Update(s.snapshot())
	if err == nil {
		err = s.sink.Send(msg)
	}
	if err != nil {
		s.status = StatusError
		s.lastErr = err
		return err
	}
	s.status = StatusLive
	s.lastErr = nil
	s.lastSent = time.Now()
	s.sent++
	return nil
}
