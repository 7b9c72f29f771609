package messagerooms

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport selects how server-push events are received.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

// DefaultEventsPath is the server route for the event stream.
const DefaultEventsPath = "/api/sse/connect"

// Config controls how the SDK connects.
type Config struct {
	// URL is the server base URL, e.g. "http://localhost:9050".
	URL string
	// EventsPath is appended to URL for the stream handshake.
	EventsPath string
	// Token is sent verbatim in the Authorization header. When empty the
	// access token of the store's auth state is used.
	Token     string
	Transport Transport

	HandshakeTimeout time.Duration
	// ReadTimeout closes the stream when no data arrives for this long.
	// Zero disables it; servers send Heartbeat events to keep it alive.
	ReadTimeout time.Duration

	// HTTPClient is used for the handshake. It must not set Timeout.
	HTTPClient *http.Client
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		EventsPath:       DefaultEventsPath,
		Transport:        TransportSSE,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Validate reports configuration problems as ErrorInvalidConfig errors.
func (c Config) Validate() error {
	if c.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "invalid URL", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return NewError(ErrorInvalidConfig, "unsupported URL scheme "+u.Scheme)
	}
	switch c.Transport {
	case "", TransportSSE, TransportWebSocket:
	default:
		return NewError(ErrorInvalidConfig, "unknown transport "+string(c.Transport))
	}
	if c.HTTPClient != nil && c.HTTPClient.Timeout > 0 {
		return NewError(ErrorInvalidConfig, "HTTPClient.Timeout would cut the event stream")
	}
	return nil
}

// streamURL joins the base URL and the events path.
func (c Config) streamURL() string {
	path := c.EventsPath
	if path == "" {
		path = DefaultEventsPath
	}
	base := strings.TrimRight(c.URL, "/")
	if c.Transport != TransportWebSocket {
		if strings.HasPrefix(base, "ws://") {
			base = "http://" + strings.TrimPrefix(base, "ws://")
		} else if strings.HasPrefix(base, "wss://") {
			base = "https://" + strings.TrimPrefix(base, "wss://")
		}
	}
	return base + "/" + strings.TrimLeft(path, "/")
}
