package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"linkinpurry/backend/apperr"
)

// ConnectionChecker reports whether two users are connected.
type ConnectionChecker interface {
	Connected(ctx context.Context, a, b int64) (bool, error)
}

// UserChecker confirms that a recipient exists.
type UserChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Router persists direct messages and pushes them to live handles.
type Router struct {
	presence *Registry
	store    *Store
	users    UserChecker
	gate     ConnectionChecker
}

// NewRouter builds a router. A nil gate lets any two users exchange messages.
func NewRouter(presence *Registry, store *Store, users UserChecker, gate ConnectionChecker) *Router {
	return &Router{presence: presence, store: store, users: users, gate: gate}
}

// SendPrivateMessage persists text from the user joined on sender to toID, delivers it to
// the recipient when present and acknowledges the sender. A returned error means nothing
// was persisted. Delivery problems after persisting are reported to the sender as events.
func (rt *Router) SendPrivateMessage(ctx context.Context, sender Handle, toID int64, text string) (*Message, error) {
	fromID, ok := rt.presence.UserOf(sender)
	if !ok {
		return nil, apperr.Unauthenticated("join before sending messages")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.InvalidOperation("message cannot be empty")
	}
	if toID == fromID {
		return nil, apperr.InvalidOperation("cannot message yourself")
	}

	exists, err := rt.users.Exists(ctx, toID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("recipient not found")
	}

	if rt.gate != nil {
		connected, err := rt.gate.Connected(ctx, fromID, toID)
		if err != nil {
			return nil, err
		}
		if !connected {
			return nil, apperr.InvalidOperation("you can only message your connections")
		}
	}

	msg, err := rt.store.Insert(ctx, fromID, toID, text)
	if err != nil {
		return nil, err
	}

	var deliveryErr error
	recipient, online := rt.presence.Lookup(toID)
	if online {
		deliveryErr = recipient.Emit(EventReceiveMessage, msg)
	}

	if err := sender.Emit(EventMessageSent, msg); err != nil {
		log.Warn().Err(err).Int64("user_id", fromID).Msg("error acknowledging message")
	}

	switch {
	case !online:
		_ = sender.Emit(EventUserOffline, OfflinePayload{UserID: toID})
	case deliveryErr != nil:
		log.Warn().Err(deliveryErr).
			Int64("from_id", fromID).
			Int64("to_id", toID).
			Int64("message_id", msg.ID).
			Msg("error delivering message")
		payload, _ := json.Marshal(privateMessagePayload{ToID: toID, Message: text})
		_ = sender.Emit(EventError, ErrorPayload{
			Reason:  apperr.CodeDeliveryFailed,
			Message: "message saved but could not be delivered",
			Event:   EventPrivateMessage,
			Payload: payload,
		})
	}
	return msg, nil
}

// History returns the messages between the caller and otherID.
func (rt *Router) History(ctx context.Context, callerID, otherID int64) ([]Message, error) {
	if otherID <= 0 {
		return nil, apperr.InvalidOperation("invalid conversation id")
	}
	return rt.store.History(ctx, callerID, otherID)
}
