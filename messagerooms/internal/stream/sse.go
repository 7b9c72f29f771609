package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	sseInitialBuffer = 64 * 1024
	sseMaxLine       = 10 * 1024 * 1024
)

// SSEOptions configures DialSSE.
type SSEOptions struct {
	// HTTPClient must not set Client.Timeout, which would cut the stream.
	HTTPClient       *http.Client
	Header           http.Header
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
}

// SSEStream decodes a text/event-stream response body.
type SSEStream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	cancel  context.CancelFunc

	idle     time.Duration
	timer    *time.Timer
	timedOut atomic.Bool

	lastID    string
	closeOnce sync.Once
}

// DialSSE issues the GET handshake and returns a stream positioned at the
// first event. ctx bounds the handshake only; the stream lives until Close.
func DialSSE(ctx context.Context, url string, opts SSEOptions) (*SSEStream, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(runCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	var handshakeTimer *time.Timer
	if opts.HandshakeTimeout > 0 {
		handshakeTimer = time.AfterFunc(opts.HandshakeTimeout, cancel)
	}
	resp, err := client.Do(req)
	if handshakeTimer != nil && !handshakeTimer.Stop() {
		// The timer cancelled runCtx, so err is context.Canceled.
		if err == nil {
			resp.Body.Close()
		}
		err = fmt.Errorf("no response within %s: %w", opts.HandshakeTimeout, context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, &HandshakeError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "text/event-stream" {
			resp.Body.Close()
			cancel()
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Body: "unexpected content type " + ct}
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, sseInitialBuffer), sseMaxLine)

	s := &SSEStream{
		resp:    resp,
		scanner: scanner,
		cancel:  cancel,
		idle:    opts.IdleTimeout,
	}
	if s.idle > 0 {
		s.timer = time.AfterFunc(s.idle, func() {
			s.timedOut.Store(true)
			cancel()
		})
	}
	return s, nil
}

// Next returns the next complete event. Events cut off by the end of the
// stream are discarded.
func (s *SSEStream) Next(ctx context.Context) (Event, error) {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	var (
		ev   Event
		data []string
	)
	for s.scanner.Scan() {
		s.touch()
		line := s.scanner.Text()

		if line == "" {
			if len(data) == 0 {
				ev = Event{}
				continue
			}
			ev.Data = []byte(strings.Join(data, "\n"))
			if ev.Type == "" {
				ev.Type = "message"
			}
			ev.ID = s.lastID
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "event":
			ev.Type = value
		case "data":
			data = append(data, value)
		case "id":
			if !strings.ContainsRune(value, 0) {
				s.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if s.timedOut.Load() {
		return Event{}, ErrIdleTimeout
	}
	if ctx.Err() != nil {
		return Event{}, ctx.Err()
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// Close aborts the request and releases the response body.
func (s *SSEStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.cancel()
		err = s.resp.Body.Close()
	})
	return err
}

func (s *SSEStream) touch() {
	if s.timer != nil {
		s.timer.Reset(s.idle)
	}
}

var _ Stream = (*SSEStream)(nil)
