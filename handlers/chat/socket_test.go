package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkinpurry/backend/apperr"
)

// tokenAuth treats the token query parameter as the user id.
type tokenAuth struct{}

func (tokenAuth) UserIDFromRequest(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get("token"), 10, 64)
	if err != nil {
		return 0, apperr.Unauthenticated("invalid token")
	}
	return id, nil
}

type socketEnv struct {
	*env
	typing *Debouncer
	server *httptest.Server
}

func newSocketEnv(t *testing.T, users int, opts SocketOptions) *socketEnv {
	t.Helper()
	e := newEnv(t, users, nil)
	typing := NewDebouncer(e.presence, ScopeSender)
	typing.timeout = testTimeout
	srv := NewServer(tokenAuth{}, e.presence, e.router, typing, opts)
	ts := httptest.NewServer(srv.HandleWebSocket())
	t.Cleanup(ts.Close)
	return &socketEnv{env: e, typing: typing, server: ts}
}

func (s *socketEnv) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "?token=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: raw}))
}

func expect(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Event == event {
			return frame.Data
		}
	}
}

func join(t *testing.T, conn *websocket.Conn, userID int64) {
	t.Helper()
	send(t, conn, EventJoin, joinPayload{UserID: userID})
	expect(t, conn, EventJoined)
}

func TestSocketRejectsMissingToken(t *testing.T) {
	s := newSocketEnv(t, 1, SocketOptions{})
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocketMessageFlow(t *testing.T) {
	s := newSocketEnv(t, 2, SocketOptions{})
	a, b := s.ids[0], s.ids[1]
	ca, cb := s.dial(t, a), s.dial(t, b)
	join(t, ca, a)
	join(t, cb, b)

	send(t, ca, EventPrivateMessage, privateMessagePayload{ToID: b, Message: "hello"})

	var received Message
	require.NoError(t, json.Unmarshal(expect(t, cb, EventReceiveMessage), &received))
	assert.Equal(t, "hello", received.Message)
	assert.Equal(t, a, received.FromID)

	var ack Message
	require.NoError(t, json.Unmarshal(expect(t, ca, EventMessageSent), &ack))
	assert.Equal(t, received.ID, ack.ID)

	send(t, cb, EventGetChatHistory, historyRequestPayload{ConversationID: a})
	var history HistoryPayload
	require.NoError(t, json.Unmarshal(expect(t, cb, EventChatHistory), &history))
	require.Len(t, history.Messages, 1)

	send(t, ca, EventTypingStart, typingPayload{FromID: a, ToID: b})
	var typing TypingPayload
	require.NoError(t, json.Unmarshal(expect(t, cb, EventUserTyping), &typing))
	assert.Equal(t, TypingPayload{FromID: a, ToID: b}, typing)
}

func TestSocketRequiresJoin(t *testing.T) {
	s := newSocketEnv(t, 2, SocketOptions{})
	a, b := s.ids[0], s.ids[1]
	ca := s.dial(t, a)

	send(t, ca, EventPrivateMessage, privateMessagePayload{ToID: b, Message: "hello"})
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, ca, EventError), &payload))
	assert.Equal(t, apperr.CodeUnauthenticated, payload.Reason)
	assert.Equal(t, EventPrivateMessage, payload.Event)
	assert.JSONEq(t, `{"to_id": `+strconv.FormatInt(b, 10)+`, "message": "hello"}`, string(payload.Payload))

	send(t, ca, EventJoin, joinPayload{UserID: b})
	require.NoError(t, json.Unmarshal(expect(t, ca, EventError), &payload))
	assert.Equal(t, apperr.CodeUnauthenticated, payload.Reason, "join must match the token")
}

func TestSocketEmptyMessage(t *testing.T) {
	s := newSocketEnv(t, 2, SocketOptions{})
	a, b := s.ids[0], s.ids[1]
	ca := s.dial(t, a)
	join(t, ca, a)

	send(t, ca, EventPrivateMessage, privateMessagePayload{ToID: b, Message: "   "})
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, ca, EventError), &payload))
	assert.Equal(t, apperr.CodeInvalidOperation, payload.Reason)
}

func TestSocketOfflineRecipient(t *testing.T) {
	s := newSocketEnv(t, 2, SocketOptions{})
	a, b := s.ids[0], s.ids[1]
	ca := s.dial(t, a)
	join(t, ca, a)

	send(t, ca, EventPrivateMessage, privateMessagePayload{ToID: b, Message: "ping"})
	expect(t, ca, EventMessageSent)
	var offline OfflinePayload
	require.NoError(t, json.Unmarshal(expect(t, ca, EventUserOffline), &offline))
	assert.Equal(t, b, offline.UserID)
}

func TestSocketRateLimited(t *testing.T) {
	s := newSocketEnv(t, 2, SocketOptions{EventsPerSecond: 1, Burst: 1})
	a := s.ids[0]
	ca := s.dial(t, a)
	join(t, ca, a)

	send(t, ca, EventGetChatHistory, historyRequestPayload{ConversationID: s.ids[1]})
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, ca, EventError), &payload))
	assert.Equal(t, apperr.CodeRateLimited, payload.Reason)
}

func TestSocketDisconnectLeavesPresence(t *testing.T) {
	s := newSocketEnv(t, 1, SocketOptions{})
	a := s.ids[0]
	ca := s.dial(t, a)
	join(t, ca, a)
	require.True(t, s.presence.Online(a))

	require.NoError(t, ca.Close())
	assert.Eventually(t, func() bool { return !s.presence.Online(a) }, 2*time.Second, 10*time.Millisecond)
}

func TestSocketDisconnectCancelsTyping(t *testing.T) {
	s := newSocketEnv(t, 2, SocketOptions{})
	a, b := s.ids[0], s.ids[1]
	ca, cb := s.dial(t, a), s.dial(t, b)
	join(t, ca, a)
	join(t, cb, b)

	send(t, ca, EventTypingStart, typingPayload{FromID: a, ToID: b})
	expect(t, cb, EventUserTyping)
	require.Equal(t, 1, s.typing.Pending())

	require.NoError(t, ca.Close())
	require.Eventually(t, func() bool { return s.typing.Pending() == 0 }, testTimeout/2, 5*time.Millisecond)

	require.NoError(t, cb.SetReadDeadline(time.Now().Add(3*testTimeout)))
	for {
		var frame Frame
		if err := cb.ReadJSON(&frame); err != nil {
			var netErr interface{ Timeout() bool }
			require.ErrorAs(t, err, &netErr)
			assert.True(t, netErr.Timeout())
			return
		}
		assert.NotEqual(t, EventUserStoppedTyping, frame.Event)
	}
}
