package obsws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/germanamz/mixbridge/pkg/mixer"
	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by requests issued on, or pending when, the
	// connection closes.
	ErrClosed = errors.New("obsws: connection closed")

	// ErrAuthFailed is returned by Connect when the password is rejected.
	ErrAuthFailed = errors.New("obsws: authentication failed")
)

const (
	// DefaultEventBuffer is the capacity of the events channel.
	DefaultEventBuffer = 64

	readLimit = 4 << 20
)

var _ mixer.Client = (*Client)(nil)

type reply struct {
	env envelope
	raw json.RawMessage
}

// Client is an obs-websocket v4 client. It is safe for concurrent use. A
// Client may be connected again after Disconnect.
type Client struct {
	log         *slog.Logger
	eventBuffer int

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan reply
	events  chan mixer.Event
	done    chan struct{}
}

// New creates a disconnected client. A nil logger falls back to
// slog.Default.
func New(log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		log:         log,
		eventBuffer: DefaultEventBuffer,
	}
}

// wsURL prefixes bare host:port addresses with ws://.
func wsURL(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}

	return "ws://" + address
}

// Connect dials address, starts the read loop and authenticates when the
// remote requires it. An existing connection is closed first.
func (c *Client) Connect(ctx context.Context, address, password string) error {
	_ = c.Disconnect()

	conn, _, err := websocket.Dial(ctx, wsURL(address), nil)
	if err != nil {
		return fmt.Errorf("obsws: dial %s: %w", address, err)
	}
	conn.SetReadLimit(readLimit)

	events := make(chan mixer.Event, c.eventBuffer)
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[string]chan reply)
	c.events = events
	c.done = done
	c.mu.Unlock()

	go c.readLoop(conn, events, done)

	if err := c.authenticate(ctx, password); err != nil {
		_ = c.Disconnect()
		return err
	}

	c.log.InfoContext(ctx, "connected to obs-websocket", "address", address)
	return nil
}

func (c *Client) authenticate(ctx context.Context, password string) error {
	var ar authRequiredResponse
	if err := c.request(ctx, reqGetAuthRequired, nil, &ar); err != nil {
		return err
	}
	if !ar.AuthRequired {
		return nil
	}

	err := c.request(ctx, reqAuthenticate, map[string]any{
		"auth": authResponse(password, ar.Salt, ar.Challenge),
	}, nil)

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %s", ErrAuthFailed, reqErr.Message)
	}

	return err
}

// Disconnect closes the connection. Pending requests fail with ErrClosed and
// the events channel is closed. It is a no-op when not connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close(websocket.StatusNormalClosure, "")
	<-done

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("obsws: close: %w", err)
	}
	return nil
}

// Events returns the event channel of the current connection, or nil before
// the first Connect.
func (c *Client) Events() <-chan mixer.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.events
}

func (c *Client) readLoop(conn *websocket.Conn, events chan mixer.Event, done chan struct{}) {
	defer close(done)
	defer close(events)
	defer c.failPending()

	ctx := context.Background()

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug("obs-websocket connection closed")
			default:
				c.log.Warn("obs-websocket read failed", "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("obs-websocket message is not an object, ignoring", "error", err)
			continue
		}

		switch {
		case env.MessageID != "":
			c.deliver(reply{env: env, raw: raw})
		case env.UpdateType != "":
			c.dispatch(env.UpdateType, raw, events)
		}
	}
}

func (c *Client) deliver(r reply) {
	c.mu.Lock()
	ch, ok := c.pending[r.env.MessageID]
	delete(c.pending, r.env.MessageID)
	c.mu.Unlock()

	if !ok {
		c.log.Debug("response for unknown request", "message_id", r.env.MessageID)
		return
	}
	ch <- r
}

func (c *Client) dispatch(updateType string, raw json.RawMessage, events chan mixer.Event) {
	ev, ok, err := decodeEvent(updateType, raw)
	if err != nil {
		c.log.Warn("malformed obs-websocket event", "update_type", updateType, "error", err)
		return
	}
	if !ok {
		return
	}

	select {
	case events <- ev:
	default:
		c.log.Warn("event buffer full, dropping event", "update_type", updateType)
	}
}

func (c *Client) failPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// request sends one request and decodes the response into out (if non-nil).
func (c *Client) request(ctx context.Context, requestType string, fields map[string]any, out any) error {
	id := uuid.NewString()
	ch := make(chan reply, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.pending == nil {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	msg := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		msg[k] = v
	}
	msg["request-type"] = requestType
	msg["message-id"] = id

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		c.forget(id)
		return fmt.Errorf("obsws: %s: write: %w", requestType, err)
	}

	select {
	case r, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if r.env.Status == "error" {
			return &RequestError{Request: requestType, Message: r.env.Error}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(r.raw, out); err != nil {
			return fmt.Errorf("obsws: %s: decode response: %w", requestType, err)
		}
		return nil

	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, id)
}
