package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/handlers/httpx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
	eventTimeout   = 10 * time.Second
)

var (
	errClientClosed = errors.New("client closed")
	errSendBuffer   = errors.New("send buffer full")
)

// Authenticator resolves the verified identity of an upgrade request.
type Authenticator interface {
	UserIDFromRequest(r *http.Request) (int64, error)
}

// SocketOptions tunes the per-connection inbound limiter.
type SocketOptions struct {
	EventsPerSecond float64
	Burst           int
	AllowedOrigins  []string
}

// Server owns the real-time endpoint.
type Server struct {
	auth     Authenticator
	presence *Registry
	router   *Router
	typing   *Debouncer
	opts     SocketOptions
	upgrader websocket.Upgrader
}

func NewServer(auth Authenticator, presence *Registry, router *Router, typing *Debouncer, opts SocketOptions) *Server {
	s := &Server{
		auth:     auth,
		presence: presence,
		router:   router,
		typing:   typing,
		opts:     opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// client is one websocket connection. It is the Handle registered in presence.
type client struct {
	id      string
	userID  int64
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func (c *client) ID() string { return c.id }

// Emit queues an event without blocking. A slow or closed client fails the emit.
func (c *client) Emit(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Event: event, Data: raw})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errSendBuffer
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// HandleWebSocket upgrades /ws/chat. The token query parameter authenticates the socket;
// the client must still send join before any other event.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.UserIDFromRequest(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("error upgrading connection")
			return
		}

		eps := s.opts.EventsPerSecond
		if eps <= 0 {
			eps = 20
		}
		burst := s.opts.Burst
		if burst <= 0 {
			burst = int(eps) * 2
		}
		c := &client{
			id:      uuid.NewString(),
			userID:  userID,
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			done:    make(chan struct{}),
			limiter: rate.NewLimiter(rate.Limit(eps), burst),
		}

		log.Info().Str("handle", c.id).Int64("user_id", userID).Msg("websocket connected")
		go s.writePump(c)
		s.readPump(r.Context(), c)
	}
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer s.disconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("handle", c.id).Msg("websocket read error")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			s.emitError(c, "", nil, apperr.InvalidOperation("malformed frame"))
			continue
		}
		if !c.limiter.Allow() {
			s.emitError(c, frame.Event, frame.Data, apperr.New(apperr.CodeRateLimited, "too many events"))
			continue
		}

		eventCtx, cancel := context.WithTimeout(ctx, eventTimeout)
		if err := s.dispatch(eventCtx, c, frame); err != nil {
			s.emitError(c, frame.Event, frame.Data, err)
		}
		cancel()
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Server) disconnect(c *client) {
	c.close()
	_ = c.conn.Close()

	userID, active := s.presence.Leave(c)
	if active {
		s.typing.CancelSender(userID)
	}
	log.Info().Str("handle", c.id).Int64("user_id", c.userID).Bool("was_joined", active).Msg("websocket disconnected")
}

func (s *Server) dispatch(ctx context.Context, c *client, frame Frame) error {
	if frame.Event == EventJoin {
		var p joinPayload
		if err := decodeData(frame.Data, &p); err != nil {
			return err
		}
		if p.UserID != c.userID {
			return apperr.Unauthenticated("user_id does not match token")
		}
		if replaced := s.presence.Join(c.userID, c); replaced != nil {
			log.Info().Int64("user_id", c.userID).Str("replaced", replaced.ID()).Msg("presence replaced by newer connection")
		}
		return c.Emit(EventJoined, joinPayload{UserID: c.userID})
	}

	userID, ok := s.presence.UserOf(c)
	if !ok {
		return apperr.Unauthenticated("join before sending events")
	}

	switch frame.Event {
	case EventPrivateMessage:
		var p privateMessagePayload
		if err := decodeData(frame.Data, &p); err != nil {
			return err
		}
		_, err := s.router.SendPrivateMessage(ctx, c, p.ToID, p.Message)
		return err

	case EventGetChatHistory:
		var p historyRequestPayload
		if err := decodeData(frame.Data, &p); err != nil {
			return err
		}
		messages, err := s.router.History(ctx, userID, p.ConversationID)
		if err != nil {
			return err
		}
		return c.Emit(EventChatHistory, HistoryPayload{ConversationID: p.ConversationID, Messages: messages})

	case EventTypingStart:
		var p typingPayload
		if err := decodeData(frame.Data, &p); err != nil {
			return err
		}
		if p.FromID != 0 && p.FromID != userID {
			return apperr.Unauthenticated("from_id does not match joined user")
		}
		if p.ToID <= 0 || p.ToID == userID {
			return apperr.InvalidOperation("invalid to_id")
		}
		s.typing.Start(userID, p.ToID)
		return nil

	case EventTypingStop:
		var p typingPayload
		if err := decodeData(frame.Data, &p); err != nil {
			return err
		}
		if p.ToID <= 0 || p.ToID == userID {
			return apperr.InvalidOperation("invalid to_id")
		}
		s.typing.Stop(userID, p.ToID)
		return nil

	default:
		return apperr.InvalidOperation("unknown event " + frame.Event)
	}
}

func (s *Server) emitError(c *client, event string, payload json.RawMessage, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		log.Error().Err(err).Str("handle", c.id).Str("event", event).Msg("socket event failed")
	}
	if emitErr := c.Emit(EventError, ErrorPayload{
		Reason:  appErr.Code,
		Message: appErr.Message,
		Event:   event,
		Payload: payload,
	}); emitErr != nil {
		log.Debug().Err(emitErr).Str("handle", c.id).Msg("error event dropped")
	}
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apperr.InvalidOperation("missing event data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.InvalidOperation("invalid event data")
	}
	return nil
}
