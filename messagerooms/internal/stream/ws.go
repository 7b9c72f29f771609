package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const defaultWSReadLimit = 1 << 20

// WSOptions configures DialWS.
type WSOptions struct {
	HTTPClient       *http.Client
	Header           http.Header
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	ReadLimit        int64
}

// envelope is one WebSocket text frame. Data is either the payload object
// itself or a JSON string holding it, mirroring the SSE data field.
type envelope struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSStream wraps websocket.Conn with a per-read timeout.
type WSStream struct {
	ws          *websocket.Conn
	readTimeout time.Duration
}

// DialWS opens a WebSocket event stream.
func DialWS(ctx context.Context, url string, opts WSOptions) (*WSStream, error) {
	dialCtx := ctx
	if opts.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, opts.HandshakeTimeout)
		defer cancel()
	}

	ws, resp, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		HTTPClient: opts.HTTPClient,
		HTTPHeader: opts.Header,
	})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, &HandshakeError{StatusCode: resp.StatusCode}
		}
		return nil, err
	}

	limit := opts.ReadLimit
	if limit <= 0 {
		limit = defaultWSReadLimit
	}
	ws.SetReadLimit(limit)

	return &WSStream{ws: ws, readTimeout: opts.ReadTimeout}, nil
}

func (c *WSStream) Next(ctx context.Context) (Event, error) {
	readCtx := ctx
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}

	_, frame, err := c.ws.Read(readCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return Event{}, ErrIdleTimeout
		}
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return Event{}, io.EOF
		}
		return Event{}, err
	}

	// A bad frame is reported on its own; the connection stays usable.
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, &FrameError{Err: fmt.Errorf("decode frame: %w", err)}
	}
	if env.Type == "" {
		return Event{}, &FrameError{Err: errors.New("frame without type")}
	}
	data, err := unwrapData(env.Data)
	if err != nil {
		return Event{}, &FrameError{Type: env.Type, Err: fmt.Errorf("decode frame data: %w", err)}
	}
	return Event{ID: env.ID, Type: env.Type, Data: data}, nil
}

// Close sends a normal closure. Closing an already closed stream is not an
// error.
func (c *WSStream) Close() error {
	err := c.ws.Close(websocket.StatusNormalClosure, "client close")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func unwrapData(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '"' {
		return []byte(raw), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

var _ Stream = (*WSStream)(nil)
