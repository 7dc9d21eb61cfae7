package session

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	srv      *httptest.Server
	lastAuth atomic.Value
}

// newFakeGateway serves one session per connection: it announces startup,
// then hands every client action to onAction.
func newFakeGateway(t *testing.T, startup string, onAction func(conn *websocket.Conn, msg outbound) bool) *fakeGateway {
	t.Helper()
	g := &fakeGateway{}
	upgrader := websocket.Upgrader{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.lastAuth.Store(r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		writeEvent(conn, Event{Type: EventSessionStatus, Messages: []Message{{MessageType: startup}}})
		for {
			var msg outbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if onAction != nil && !onAction(conn, msg) {
				return
			}
		}
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) options(t *testing.T) Options {
	u, err := url.Parse(g.srv.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return Options{Host: host, Port: p, Path: "/session", HeartbeatInterval: -1}
}

func writeEvent(conn *websocket.Conn, ev Event) {
	_ = conn.WriteJSON(ev)
}

func serviceOpener(conn *websocket.Conn, msg outbound) bool {
	if msg.Action == actionOpenService {
		writeEvent(conn, Event{Type: EventServiceStatus, Messages: []Message{
			{MessageType: ServiceOpened, CorrelationID: msg.CorrelationID, Service: msg.Service},
		}})
	}
	return true
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSession_RequestResponse(t *testing.T) {
	var gotParams atomic.Value
	g := newFakeGateway(t, SessionStarted, func(conn *websocket.Conn, msg outbound) bool {
		switch msg.Action {
		case actionOpenService:
			serviceOpener(conn, msg)
		case actionRequest:
			raw, _ := json.Marshal(msg.Params)
			gotParams.Store(string(raw))
			body := json.RawMessage(`{"tickData":{"tickData":[{"time":"2024-03-01T14:30:00.000","type":"TRADE","value":1.5,"size":10}]}}`)
			writeEvent(conn, Event{Type: EventPartialResponse, Messages: []Message{{MessageType: "IntradayTickResponse", CorrelationID: msg.CorrelationID, Body: body}}})
			writeEvent(conn, Event{Type: EventResponse, Messages: []Message{{MessageType: "IntradayTickResponse", CorrelationID: msg.CorrelationID, Body: body}}})
		}
		return true
	})

	ctx := testContext(t)
	s := New(g.options(t))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()
	assert.True(t, s.Connected())

	require.NoError(t, s.OpenService(ctx, "//blp/refdata"))

	id, err := s.SendRequest(ctx, "//blp/refdata", "IntradayTickRequest", map[string]string{"security": "IBM US Equity"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ev, err := s.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventPartialResponse, ev.Type)
	require.Len(t, ev.Messages, 1)
	assert.Equal(t, id, ev.Messages[0].CorrelationID)
	assert.Contains(t, string(ev.Messages[0].Body), "TRADE")

	ev, err = s.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventResponse, ev.Type)

	assert.JSONEq(t, `{"security":"IBM US Equity"}`, gotParams.Load().(string))
}

func TestSession_StartupFailure(t *testing.T) {
	g := newFakeGateway(t, SessionStartupFailure, nil)

	s := New(g.options(t))
	err := s.Start(testContext(t))
	assert.ErrorIs(t, err, ErrStartupFailure)
	assert.False(t, s.Connected())
}

func TestSession_DialFailure(t *testing.T) {
	s := New(Options{Host: "127.0.0.1", Port: 1, Path: "/session", HandshakeTimeout: time.Second})
	err := s.Start(testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestSession_ServiceOpenFailure(t *testing.T) {
	g := newFakeGateway(t, SessionStarted, func(conn *websocket.Conn, msg outbound) bool {
		if msg.Action == actionOpenService {
			writeEvent(conn, Event{Type: EventServiceStatus, Messages: []Message{
				{MessageType: ServiceOpenFailure, CorrelationID: msg.CorrelationID, Body: json.RawMessage(`{"reason":"not entitled"}`)},
			}})
		}
		return true
	})

	ctx := testContext(t)
	s := New(g.options(t))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	err := s.OpenService(ctx, "//blp/refdata")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not entitled")
}

func TestSession_ConnectionLost(t *testing.T) {
	g := newFakeGateway(t, SessionStarted, func(conn *websocket.Conn, msg outbound) bool {
		return msg.Action != actionRequest
	})

	ctx := testContext(t)
	s := New(g.options(t))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	_, err := s.SendRequest(ctx, "//blp/refdata", "IntradayTickRequest", nil)
	require.NoError(t, err)

	ev, err := s.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventSessionStatus, ev.Type)
	assert.True(t, ev.Has(SessionTerminated))

	_, err = s.NextEvent(ctx)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.False(t, s.Connected())
}

func TestSession_MalformedEventDropped(t *testing.T) {
	g := newFakeGateway(t, SessionStarted, func(conn *websocket.Conn, msg outbound) bool {
		if msg.Action == actionRequest {
			_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
			writeEvent(conn, Event{Type: EventResponse})
		}
		return true
	})

	ctx := testContext(t)
	s := New(g.options(t))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	_, err := s.SendRequest(ctx, "//blp/refdata", "IntradayTickRequest", nil)
	require.NoError(t, err)

	ev, err := s.NextEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventResponse, ev.Type)
}

func TestSession_BearerToken(t *testing.T) {
	g := newFakeGateway(t, SessionStarted, nil)

	opts := g.options(t)
	opts.Token = "secret"
	s := New(opts)
	require.NoError(t, s.Start(testContext(t)))
	defer s.Stop()

	assert.Equal(t, "Bearer secret", g.lastAuth.Load())
}

func TestSession_NotConnected(t *testing.T) {
	s := New(Options{Host: "localhost", Port: 8194})

	_, err := s.NextEvent(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.SendRequest(context.Background(), "//blp/refdata", "IntradayTickRequest", nil)
	assert.True(t, errors.Is(err, ErrNotConnected))

	s.Stop()
}

func TestSession_NextEventHonoursContext(t *testing.T) {
	g := newFakeGateway(t, SessionStarted, nil)

	s := New(g.options(t))
	require.NoError(t, s.Start(testContext(t)))
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.NextEvent(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_StopIsIdempotent(t *testing.T) {
	g := newFakeGateway(t, SessionStarted, nil)

	s := New(g.options(t))
	require.NoError(t, s.Start(testContext(t)))

	s.Stop()
	s.Stop()
	assert.False(t, s.Connected())

	_, err := s.NextEvent(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_URL(t *testing.T) {
	s := New(Options{Host: "localhost", Port: 8194, Path: "/session"})
	assert.Equal(t, "ws://localhost:8194/session", s.URL())
}
