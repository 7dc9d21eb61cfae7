package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"intradaytick/utils"
)

const (
	HeartbeatInterval = 10 * time.Second
	eventBuffer       = 64
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrNotConnected   = errors.New("session is not connected")
	ErrStartupFailure = errors.New("session startup failure")
)

type Options struct {
	Host              string
	Port              int
	Path              string
	Token             string
	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
}

// Session is a provider session over a WebSocket gateway. Events are read in
// the background and handed out in order by NextEvent.
type Session struct {
	opts Options

	mu   sync.Mutex
	conn *connection
}

type connection struct {
	ws      *websocket.Conn
	events  chan Event
	done    chan struct{}
	writeMu sync.Mutex
	once    sync.Once
	alive   atomic.Bool
}

func New(opts Options) *Session {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = HeartbeatInterval
	}
	return &Session{opts: opts}
}

// URL is the gateway endpoint the session dials.
func (s *Session) URL() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)),
		Path:   s.opts.Path,
	}
	return u.String()
}

// Start connects and blocks until the gateway reports SessionStarted.
func (s *Session) Start(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.opts.HandshakeTimeout,
	}

	ws, resp, err := dialer.DialContext(ctx, s.URL(), s.getHttpHeaders())
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to %s (status %d): %w", s.URL(), resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect to %s: %w", s.URL(), err)
	}

	c := &connection{
		ws:     ws,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	c.alive.Store(true)

	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()

	go c.readLoop()
	go c.heartbeat(s.opts.HeartbeatInterval)

	for {
		ev, err := s.NextEvent(ctx)
		if err != nil {
			s.Stop()
			return fmt.Errorf("waiting for session start: %w", err)
		}
		if ev.Type != EventSessionStatus {
			utils.Logger.Debugw("Ignoring event before session start", "event_type", ev.Type)
			continue
		}
		switch {
		case ev.Has(SessionStarted):
			utils.Logger.Infow("Session started", "url", s.URL())
			return nil
		case ev.Has(SessionStartupFailure):
			s.Stop()
			return ErrStartupFailure
		case ev.Has(SessionTerminated):
			s.Stop()
			return fmt.Errorf("waiting for session start: %w", ErrSessionClosed)
		}
	}
}

// OpenService asks the gateway to open name and waits for the outcome.
func (s *Session) OpenService(ctx context.Context, name string) error {
	id := uuid.NewString()
	if err := s.send(ctx, outbound{Action: actionOpenService, CorrelationID: id, Service: name}); err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}

	for {
		ev, err := s.NextEvent(ctx)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		switch ev.Type {
		case EventServiceStatus:
			for _, m := range ev.Messages {
				if m.CorrelationID != "" && m.CorrelationID != id {
					continue
				}
				switch m.MessageType {
				case ServiceOpened:
					utils.Logger.Infow("Service opened", "service", name)
					return nil
				case ServiceOpenFailure:
					return fmt.Errorf("failed to open %s: %s", name, string(m.Body))
				}
			}
		case EventSessionStatus:
			if ev.Has(SessionTerminated) {
				return fmt.Errorf("failed to open %s: %w", name, ErrSessionClosed)
			}
		default:
			utils.Logger.Debugw("Ignoring event while opening service", "event_type", ev.Type)
		}
	}
}

// SendRequest sends one request and returns its correlation id.
func (s *Session) SendRequest(ctx context.Context, service, operation string, params interface{}) (string, error) {
	id := uuid.NewString()
	msg := outbound{
		Action:        actionRequest,
		CorrelationID: id,
		Service:       service,
		Operation:     operation,
		Params:        params,
	}
	if err := s.send(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to send %s: %w", operation, err)
	}
	return id, nil
}

// NextEvent blocks until the next event arrives. After the connection is
// gone a final SessionTerminated event is returned, then ErrSessionClosed.
func (s *Session) NextEvent(ctx context.Context) (Event, error) {
	c := s.current()
	if c == nil {
		return Event{}, ErrNotConnected
	}
	select {
	case ev, ok := <-c.events:
		if !ok {
			return Event{}, ErrSessionClosed
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Connected reports whether the underlying connection is still up.
func (s *Session) Connected() bool {
	c := s.current()
	return c != nil && c.alive.Load()
}

// Stop closes the session. It is safe to call more than once.
func (s *Session) Stop() {
	c := s.current()
	if c == nil {
		return
	}
	c.once.Do(func() {
		if c.alive.Load() {
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.ws.WriteJSON(outbound{Action: actionStop, CorrelationID: uuid.NewString()})
			c.writeMu.Unlock()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}
		c.alive.Store(false)
		close(c.done)
		c.ws.Close()
	})
}

func (s *Session) current() *connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Session) send(ctx context.Context, v interface{}) error {
	c := s.current()
	if c == nil || !c.alive.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(dl)
		defer c.ws.SetWriteDeadline(time.Time{})
	}
	return c.ws.WriteJSON(v)
}

func (s *Session) getHttpHeaders() http.Header {
	headers := http.Header{}
	headers.Set("User-Agent", "intradaytick/1.0")
	if s.opts.Token != "" {
		headers.Set("Authorization", "Bearer "+s.opts.Token)
	}
	return headers
}

func (c *connection) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			utils.Logger.Warnw("Session connection lost", "error", err)
			c.alive.Store(false)
			terminated := Event{
				Type:     EventSessionStatus,
				Messages: []Message{{MessageType: SessionTerminated}},
			}
			select {
			case c.events <- terminated:
			case <-c.done:
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			utils.Logger.Warnw("Dropping malformed event", "error", err, "bytes", len(data))
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *connection) heartbeat(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
				utils.Logger.Warnw("Failed to send heartbeat", "error", err)
				return
			}
		}
	}
}
