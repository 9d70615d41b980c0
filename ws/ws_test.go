package ws

import (
	"context"
	"encoding/json"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const timeout = 5 * time.Second

// HubSuite tests Hub.
type HubSuite struct {
	suite.Suite
	hub    *Hub
	ctx    context.Context
	cancel context.CancelFunc
}

func (suite *HubSuite) SetupTest() {
	suite.ctx, suite.cancel = context.WithTimeout(context.Background(), timeout)
	suite.hub = NewHub(zap.NewNop(), func() (event.Envelope, bool) {
		return event.Envelope{Type: event.TypeSnapshot, Payload: event.LevelSnapshot{Map: "q2dm1"}}, true
	})
	go suite.hub.Run(suite.ctx)
}

func (suite *HubSuite) TearDownTest() {
	suite.cancel()
}

func (suite *HubSuite) newClient(buffer int) *Client {
	c := &Client{
		ID:   uuid.New(),
		hub:  suite.hub,
		Send: make(chan []byte, buffer),
	}
	suite.hub.register <- c
	return c
}

func (suite *HubSuite) receive(c *Client) (event.Envelope, bool) {
	select {
	case <-suite.ctx.Done():
		suite.Fail("timeout", "should receive")
		return event.Envelope{}, false
	case raw, ok := <-c.Send:
		if !ok {
			return event.Envelope{}, false
		}
		var e event.Envelope
		suite.Require().NoError(json.Unmarshal(raw, &e))
		return e, true
	}
}

func (suite *HubSuite) TestWelcome() {
	c := suite.newClient(4)
	e, ok := suite.receive(c)
	suite.Require().True(ok)
	suite.Equal(event.TypeSnapshot, e.Type)
}

func (suite *HubSuite) TestBroadcast() {
	c1 := suite.newClient(4)
	c2 := suite.newClient(4)
	suite.receive(c1)
	suite.receive(c2)
	suite.hub.Broadcast(event.Envelope{Type: event.TypeRoundEnded, Payload: event.RoundEndedEvent{Arena: 2}})
	for _, c := range []*Client{c1, c2} {
		e, ok := suite.receive(c)
		suite.Require().True(ok)
		suite.Equal(event.TypeRoundEnded, e.Type)
	}
}

func (suite *HubSuite) TestArenaFilter() {
	c := suite.newClient(4)
	c2 := suite.newClient(4)
	suite.receive(c)
	suite.receive(c2)
	c.arenas = map[int]struct{}{2: {}}
	suite.hub.Broadcast(event.Envelope{Type: event.TypeArenaState, Payload: event.ArenaStateEvent{Arena: 1}})
	suite.hub.Broadcast(event.Envelope{Type: event.TypeRoundEnded, Payload: event.RoundEndedEvent{Arena: 2}})
	suite.hub.Broadcast(event.Envelope{Type: event.TypeSnapshot, Payload: event.LevelSnapshot{}})
	e, ok := suite.receive(c)
	suite.Require().True(ok)
	suite.Equal(event.TypeRoundEnded, e.Type, "should skip other arenas")
	e, ok = suite.receive(c)
	suite.Require().True(ok)
	suite.Equal(event.TypeSnapshot, e.Type, "should receive level-wide events")
	e, ok = suite.receive(c2)
	suite.Require().True(ok)
	suite.Equal(event.TypeArenaState, e.Type, "should follow all arenas without filter")
}

func (suite *HubSuite) TestUnregister() {
	c := suite.newClient(4)
	suite.receive(c)
	suite.hub.unregister <- c
	_, ok := suite.receive(c)
	suite.False(ok, "should close send channel")
}

func (suite *HubSuite) TestDropSlowClient() {
	// The welcome fills the buffer of the slow client. Nothing is read from it
	// until the hub handled both broadcasts.
	slow := suite.newClient(1)
	fast := suite.newClient(4)
	suite.receive(fast)
	suite.hub.Broadcast(event.Envelope{Type: event.TypeArenaState})
	suite.hub.Broadcast(event.Envelope{Type: event.TypeRoundEnded})
	for _, want := range []event.Type{event.TypeArenaState, event.TypeRoundEnded} {
		e, ok := suite.receive(fast)
		suite.Require().True(ok, "fast client should stay connected")
		suite.Require().Equal(want, e.Type)
	}
	e, ok := suite.receive(slow)
	suite.Require().True(ok, "should keep queued welcome")
	suite.Equal(event.TypeSnapshot, e.Type)
	_, ok = suite.receive(slow)
	suite.False(ok, "should drop slow client")
}

func TestHub(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func TestEnvelopeArena(t *testing.T) {
	tests := []struct {
		e     event.Envelope
		arena int
	}{
		{e: event.Envelope{Payload: event.ArenaStateEvent{Arena: 3}}, arena: 3},
		{e: event.Envelope{Payload: event.MatchEndedEvent{Arena: 4}}, arena: 4},
		{e: event.Envelope{Payload: event.VoteResolvedEvent{Arena: nulls.NewInt(5)}}, arena: 5},
		{e: event.Envelope{Payload: event.VoteResolvedEvent{}}, arena: 0},
		{e: event.Envelope{Payload: event.LevelSnapshot{}}, arena: 0},
	}
	for _, tt := range tests {
		if got := envelopeArena(tt.e); got != tt.arena {
			t.Errorf("%T: expected arena %d but got %d", tt.e.Payload, tt.arena, got)
		}
	}
}

func TestParseArenaFilter(t *testing.T) {
	arenas, err := parseArenaFilter(httptest.NewRequest(http.MethodGet, "/ws?arena=2&arena=7", nil))
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{2: {}, 7: {}}, arenas)
	arenas, err = parseArenaFilter(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Empty(t, arenas)
	_, err = parseArenaFilter(httptest.NewRequest(http.MethodGet, "/ws?arena=pit", nil))
	assert.True(t, errors.Is(err, errors.KindInvalidArgument))
	_, err = parseArenaFilter(httptest.NewRequest(http.MethodGet, "/ws?arena=0", nil))
	assert.Error(t, err)
}

func TestHandleWSInvalidArena(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	rr := httptest.NewRecorder()
	HandleWS(context.Background(), hub)(rr, httptest.NewRequest(http.MethodGet, "/ws?arena=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleWS(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	hub := NewHub(zap.NewNop(), nil)
	go hub.Run(ctx)
	server := httptest.NewServer(HandleWS(ctx, hub))
	defer server.Close()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	// Broadcast until the client is registered and receives.
	received := make(chan event.Envelope, 1)
	go func() {
		var e event.Envelope
		if err := conn.ReadJSON(&e); err == nil {
			received <- e
		}
	}()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Fatal("should receive broadcast")
		case e := <-received:
			if e.Type != event.TypeMatchEnded {
				t.Fatalf("unexpected type %s", e.Type)
			}
			return
		case <-ticker.C:
			hub.Broadcast(event.Envelope{Type: event.TypeMatchEnded, Payload: event.MatchEndedEvent{Arena: 1}})
		}
	}
}
