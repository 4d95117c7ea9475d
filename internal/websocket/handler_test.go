package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flowboard/internal/events"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenAuthenticator admits fixed token -> user mappings.
type tokenAuthenticator struct {
	tokens map[string]uuid.UUID
}

func (a *tokenAuthenticator) Authenticate(token string) (uuid.UUID, error) {
	if id, ok := a.tokens[token]; ok {
		return id, nil
	}
	return uuid.Nil, flowboard_errors.ErrUnauthorized
}

// staticParticipants answers membership from a fixed map.
type staticParticipants struct {
	members map[uuid.UUID][]uuid.UUID
}

func (s *staticParticipants) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	for _, id := range s.members[conversationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

type gatewayFixture struct {
	server  *httptest.Server
	hub     *Hub
	handler *Handler

	conversationID uuid.UUID
	alice          uuid.UUID
	bob            uuid.UUID
	outsider       uuid.UUID
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &gatewayFixture{
		conversationID: uuid.New(),
		alice:          uuid.New(),
		bob:            uuid.New(),
		outsider:       uuid.New(),
	}

	auth := &tokenAuthenticator{tokens: map[string]uuid.UUID{
		"alice-token":    f.alice,
		"bob-token":      f.bob,
		"outsider-token": f.outsider,
	}}
	participants := &staticParticipants{members: map[uuid.UUID][]uuid.UUID{
		f.conversationID: {f.alice, f.bob},
	}}

	f.hub = NewHub(NewPresenceRegistry(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx)

	f.handler = NewHandler(auth, f.hub, NewChannelAuthorizer(participants), nil)

	engine := gin.New()
	engine.GET("/ws", f.handler.Connect)
	f.server = httptest.NewServer(engine)
	t.Cleanup(func() {
		f.server.Close()
		cancel()
	})
	return f
}

func (f *gatewayFixture) wsURL(token string) string {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func (f *gatewayFixture) dial(t *testing.T, token string) *gws.Conn {
	t.Helper()
	conn, resp, err := gws.DefaultDialer.Dial(f.wsURL(token), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *gws.Conn) events.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestConnect_RejectsMissingOrBadToken(t *testing.T) {
	f := newGatewayFixture(t)

	for _, token := range []string{"", "wrong-token"} {
		_, resp, err := gws.DefaultDialer.Dial(f.wsURL(token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, 0, f.hub.ClientCount(), "rejected handshakes leave no state")
}

func TestConnect_AdmitsBearerHeader(t *testing.T) {
	f := newGatewayFixture(t)

	header := http.Header{"Authorization": {"Bearer alice-token"}}
	conn, resp, err := gws.DefaultDialer.Dial(f.wsURL(""), header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, f.hub.Presence().IsOnline(f.alice))
}

func TestConnect_RateLimiterRefusesBeforeUpgrade(t *testing.T) {
	f := newGatewayFixture(t)
	f.handler.SetConnectionLimiter(denyAllLimiter{})

	_, resp, err := gws.DefaultDialer.Dial(f.wsURL("alice-token"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, f.hub.ClientCount())
}

func TestJoinAndBroadcast_EndToEnd(t *testing.T) {
	f := newGatewayFixture(t)
	channel := events.ConversationChannel(f.conversationID)

	alice := f.dial(t, "alice-token")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: frameJoin, ConversationID: f.conversationID}))
	require.Eventually(t, func() bool { return f.hub.ChannelSubscriberCount(channel) == 1 }, time.Second, 10*time.Millisecond)

	f.hub.Broadcast(channel, events.EventMessage, map[string]string{"content": "hi"})

	env := readEnvelope(t, alice)
	assert.Equal(t, events.EventMessage, env.Event)
}

func TestJoin_DeniedForNonParticipant(t *testing.T) {
	f := newGatewayFixture(t)
	channel := events.ConversationChannel(f.conversationID)

	outsider := f.dial(t, "outsider-token")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, outsider.WriteJSON(ClientFrame{Type: frameJoin, ConversationID: f.conversationID}))

	// The join is silently refused; the subscriber set stays empty.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, f.hub.ChannelSubscriberCount(channel))
}

func TestTyping_RelayedToOtherMembersOnly(t *testing.T) {
	f := newGatewayFixture(t)
	channel := events.ConversationChannel(f.conversationID)

	alice := f.dial(t, "alice-token")
	bob := f.dial(t, "bob-token")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	// Bob's arrival flips him online, which notifies Alice (and vice
	// versa ordering can differ); drain one presence frame from each.
	readEnvelope(t, alice)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: frameJoin, ConversationID: f.conversationID}))
	require.NoError(t, bob.WriteJSON(ClientFrame{Type: frameJoin, ConversationID: f.conversationID}))
	require.Eventually(t, func() bool { return f.hub.ChannelSubscriberCount(channel) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: frameTypingStart, ConversationID: f.conversationID}))

	env := readEnvelope(t, bob)
	assert.Equal(t, events.EventTyping, env.Event)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var typing events.TypingEvent
	require.NoError(t, json.Unmarshal(raw, &typing))
	assert.Equal(t, f.alice, typing.UserID)
	assert.True(t, typing.Typing)
}

func TestDisconnect_EmitsOfflineOnce(t *testing.T) {
	f := newGatewayFixture(t)

	observer := f.dial(t, "bob-token")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	alicePhone := f.dial(t, "alice-token")
	assert.Equal(t, events.EventOnline, readEnvelope(t, observer).Event)

	aliceLaptop := f.dial(t, "alice-token")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	// Closing one device keeps Alice online.
	alicePhone.Close()
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)
	assert.True(t, f.hub.Presence().IsOnline(f.alice))

	// Closing the last device flips her offline.
	aliceLaptop.Close()
	env := readEnvelope(t, observer)
	assert.Equal(t, events.EventOffline, env.Event)
	require.Eventually(t, func() bool { return !f.hub.Presence().IsOnline(f.alice) }, time.Second, 10*time.Millisecond)
}

func TestPing_AnsweredWithPong(t *testing.T) {
	f := newGatewayFixture(t)

	conn := f.dial(t, "alice-token")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: framePing}))
	env := readEnvelope(t, conn)
	assert.Equal(t, "pong", env.Event)
}
