package preview

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Client is a renderer that connects to an authoring server over WebSocket.
type Client struct {
	Server   string // authoring server base URL, e.g. http://127.0.0.1:7410
	Origin   string // sent as the Origin header
	Viewer   *Viewer
	OnUpdate func(View)
	OnError  func(error)
}

// SocketURL returns the renderer socket URL for a server base URL.
func SocketURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/preview/ws"
	return u.String(), nil
}

// Run dials the server, announces readiness and applies updates until ctx is
// done or the connection closes.
func (c *Client) Run(ctx context.Context) error {
	if c.Viewer == nil {
		c.Viewer = NewViewer(Origin(c.Server))
	}
	wsURL, err := SocketURL(c.Server)
	if err != nil {
		return err
	}

	header := http.Header{}
	if c.Origin != "" {
		header.Set("Origin", c.Origin)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(Ready()); err != nil {
		return fmt.Errorf("sending ready: %w", err)
	}

	origin := Origin(c.Server)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading from %s: %w", wsURL, err)
		}
		msg, err := Decode(raw)
		if err != nil {
			c.report(err)
			continue
		}
		view, err := c.Viewer.Handle(Inbound{Origin: origin, Message: msg})
		if err != nil {
			c.report(err)
			if view.State != ViewError {
				continue
			}
		}
		if c.OnUpdate != nil {
			c.OnUpdate(view)
		}
	}
}

func (c *Client) report(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
