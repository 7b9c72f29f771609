package messagerooms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/internal/stream"
	"github.com/vovakirdan/messagerooms-sdk/messagerooms/store"
)

// Client owns one live event stream and feeds its events to a Dispatcher.
type Client struct {
	cfg        Config
	logger     Logger
	store      *store.Store
	dispatcher *Dispatcher

	onOpen        func()
	onClose       func(error)
	onStateChange func(StateEvent)

	mu          sync.Mutex
	state       ConnectionState
	lastEventID string
	stream      stream.Stream
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewClient constructs a client that applies events to st using the
// default handler registry.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config, st *store.Store) *Client {
	if st == nil {
		st = store.New()
	}
	return &Client{
		cfg:        cfg,
		logger:     noopLogger{},
		store:      st,
		dispatcher: NewDispatcher(DefaultRegistry(), st),
	}
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.dispatcher.SetLogger(l)
}

// SetRegistry replaces the handler registry. Call before Connect.
func (c *Client) SetRegistry(r *Registry) {
	if r == nil {
		return
	}
	d := NewDispatcher(r, c.store)
	d.SetLogger(c.logger)
	d.SetOnError(c.dispatcher.onError)
	c.dispatcher = d
}

// Register adds a handler to the current registry.
func (c *Client) Register(h Handler) { c.dispatcher.Registry().Register(h) }

// OnOpen registers a callback run once the stream is established.
func (c *Client) OnOpen(fn func()) { c.onOpen = fn }

// OnClose registers a callback run when the stream ends. err is nil for a
// local Close or a clean end of stream.
func (c *Client) OnClose(fn func(err error)) { c.onClose = fn }

// OnError registers callback for errors, including dropped events.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnStateChange registers a callback for connection state transitions.
func (c *Client) OnStateChange(fn func(StateEvent)) { c.onStateChange = fn }

// Store returns the store events are applied to.
func (c *Client) Store() *store.Store { return c.store }

// Dispatcher returns the dispatcher, e.g. to replay recorded events.
func (c *Client) Dispatcher() *Dispatcher { return c.dispatcher }

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastEventID returns the id of the most recent event that carried one. The
// server does not replay missed events, so it is informational only.
func (c *Client) LastEventID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEventID
}

// Done returns a channel closed when the read loop has exited, or nil if
// Connect has not succeeded yet.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Connect performs the stream handshake and starts dispatching events.
// A failed handshake is not retried.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	token := c.cfg.Token
	if token == "" {
		token = c.store.Auth().AccessToken
	}
	if token == "" {
		return NewError(ErrorUnauthorized, "no access token")
	}

	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return NewError(ErrorAlreadyConnected, "already connected")
	}
	old := c.state
	c.state = StateConnecting
	c.mu.Unlock()
	if c.onStateChange != nil {
		c.onStateChange(StateEvent{OldState: old, NewState: StateConnecting})
	}

	header := http.Header{}
	header.Set("Authorization", token)
	url := c.cfg.streamURL()

	var (
		s   stream.Stream
		err error
	)
	switch c.cfg.Transport {
	case TransportWebSocket:
		s, err = stream.DialWS(ctx, url, stream.WSOptions{
			HTTPClient:       c.cfg.HTTPClient,
			Header:           header,
			HandshakeTimeout: c.cfg.HandshakeTimeout,
			ReadTimeout:      c.cfg.ReadTimeout,
		})
	default:
		s, err = stream.DialSSE(ctx, url, stream.SSEOptions{
			HTTPClient:       c.cfg.HTTPClient,
			Header:           header,
			HandshakeTimeout: c.cfg.HandshakeTimeout,
			IdleTimeout:      c.cfg.ReadTimeout,
		})
	}
	if err != nil {
		cerr := handshakeError(err)
		c.logger.Error("connection failed", map[string]any{"url": url, "error": err.Error()})
		c.setState(StateError, cerr)
		return cerr
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.stream = s
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	c.logger.Info("connection open", map[string]any{"url": url, "transport": string(c.transportName())})
	c.setState(StateConnected, nil)
	if c.onOpen != nil {
		c.onOpen()
	}

	go c.readLoop(runCtx, s, done)
	return nil
}

// Close ends the stream and waits for the read loop to exit. It must not
// be called from inside an event handler.
func (c *Client) Close() error {
	c.mu.Lock()
	s, cancel, done := c.stream, c.cancel, c.done
	c.stream, c.cancel = nil, nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	cancel()
	err := s.Close()
	<-done
	return err
}

func (c *Client) readLoop(ctx context.Context, s stream.Stream, done chan struct{}) {
	defer close(done)

	var cause error
	for {
		raw, err := s.Next(ctx)
		var frameErr *stream.FrameError
		if errors.As(err, &frameErr) {
			merr := MalformedEventError(frameErr.Type, frameErr.Err)
			c.logger.Warn("event dropped", map[string]any{"event": frameErr.Type, "error": merr.Error()})
			c.dispatcher.fireError(merr)
			continue
		}
		if err != nil {
			if !isExpectedDisconnect(ctx, err) {
				cause = disconnectError(err)
			}
			break
		}
		if raw.ID != "" {
			c.mu.Lock()
			c.lastEventID = raw.ID
			c.mu.Unlock()
		}
		c.dispatcher.Dispatch(Event{ID: raw.ID, Type: raw.Type, Data: raw.Data, Retry: raw.Retry})
	}

	// Release the transport even when the server ended the stream.
	_ = s.Close()
	c.mu.Lock()
	if c.stream == s {
		c.stream, c.cancel = nil, nil
	}
	c.mu.Unlock()

	if cause != nil {
		c.logger.Warn("connection close", map[string]any{"error": cause.Error()})
		c.dispatcher.fireError(cause)
		c.setState(StateError, cause)
	} else {
		c.logger.Info("connection close", nil)
	}
	c.setState(StateClosed, cause)
	if c.onClose != nil {
		c.onClose(cause)
	}
}

func (c *Client) setState(s ConnectionState, err error) {
	c.mu.Lock()
	old := c.state
	c.state = s
	c.mu.Unlock()
	if old == s {
		return
	}
	if c.onStateChange != nil {
		c.onStateChange(StateEvent{OldState: old, NewState: s, Error: err})
	}
}

func (c *Client) transportName() Transport {
	if c.cfg.Transport == "" {
		return TransportSSE
	}
	return c.cfg.Transport
}

func handshakeError(err error) *ClientError {
	var hs *stream.HandshakeError
	if errors.As(err, &hs) && (hs.StatusCode == http.StatusUnauthorized || hs.StatusCode == http.StatusForbidden) {
		return WrapError(ErrorUnauthorized, "handshake rejected", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(ErrorTimeout, "handshake timed out", err)
	}
	return WrapError(ErrorConnection, "handshake failed", err)
}

func disconnectError(err error) *ClientError {
	if errors.Is(err, stream.ErrIdleTimeout) {
		return WrapError(ErrorTimeout, "no data received within read timeout", err)
	}
	return WrapError(ErrorDisconnected, "stream interrupted", err)
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}
