package chat

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkinpurry/backend/apperr"
)

func TestSendPrivateMessageDelivers(t *testing.T) {
	e := newEnv(t, 2, nil)
	ctx := context.Background()
	a, b := e.ids[0], e.ids[1]
	ha, hb := newHandle("a"), newHandle("b")
	e.presence.Join(a, ha)
	e.presence.Join(b, hb)

	msg, err := e.router.SendPrivateMessage(ctx, ha, b, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Message)
	assert.False(t, msg.Timestamp.IsZero())

	require.Len(t, hb.named(EventReceiveMessage), 1)
	require.Len(t, ha.named(EventMessageSent), 1)
	assert.Empty(t, ha.named(EventUserOffline))

	history, err := e.router.History(ctx, b, a)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestSendPrivateMessageRejects(t *testing.T) {
	e := newEnv(t, 2, nil)
	ctx := context.Background()
	a, b := e.ids[0], e.ids[1]
	ha := newHandle("a")

	_, err := e.router.SendPrivateMessage(ctx, ha, b, "hi")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	e.presence.Join(a, ha)
	_, err = e.router.SendPrivateMessage(ctx, ha, b, "   ")
	assert.Equal(t, apperr.CodeInvalidOperation, apperr.CodeOf(err))

	_, err = e.router.SendPrivateMessage(ctx, ha, 9999, "hi")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	history, err := e.router.History(ctx, a, b)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendPrivateMessageOfflineRecipient(t *testing.T) {
	e := newEnv(t, 2, nil)
	ctx := context.Background()
	a, b := e.ids[0], e.ids[1]
	ha := newHandle("a")
	e.presence.Join(a, ha)

	_, err := e.router.SendPrivateMessage(ctx, ha, b, "are you there?")
	require.NoError(t, err)
	assert.Len(t, ha.named(EventMessageSent), 1)

	offline := ha.named(EventUserOffline)
	require.Len(t, offline, 1)
	assert.Equal(t, OfflinePayload{UserID: b}, offline[0].Data)

	history, err := e.router.History(ctx, a, b)
	require.NoError(t, err)
	assert.Len(t, history, 1, "offline messages are still persisted")
}

func TestSendPrivateMessageDeliveryFailure(t *testing.T) {
	e := newEnv(t, 2, nil)
	ctx := context.Background()
	a, b := e.ids[0], e.ids[1]
	ha, hb := newHandle("a"), newHandle("b")
	hb.fail = true
	e.presence.Join(a, ha)
	e.presence.Join(b, hb)

	_, err := e.router.SendPrivateMessage(ctx, ha, b, "hi")
	require.NoError(t, err)
	assert.Len(t, ha.named(EventMessageSent), 1)

	errs := ha.named(EventError)
	require.Len(t, errs, 1)
	var payload ErrorPayload
	decodeAs(t, errs[0].Data, &payload)
	assert.Equal(t, apperr.CodeDeliveryFailed, payload.Reason)
	assert.JSONEq(t, `{"to_id": `+jsonInt(b)+`, "message": "hi"}`, string(payload.Payload))
}

func TestSendPrivateMessageConnectionGate(t *testing.T) {
	e := newEnv(t, 2, staticGate(false))
	ctx := context.Background()
	a, b := e.ids[0], e.ids[1]
	ha := newHandle("a")
	e.presence.Join(a, ha)

	_, err := e.router.SendPrivateMessage(ctx, ha, b, "hi")
	assert.Equal(t, apperr.CodeInvalidOperation, apperr.CodeOf(err))

	e.router.gate = staticGate(true)
	_, err = e.router.SendPrivateMessage(ctx, ha, b, "hi")
	assert.NoError(t, err)
}

func TestConversations(t *testing.T) {
	e := newEnv(t, 3, nil)
	ctx := context.Background()
	a, b, c := e.ids[0], e.ids[1], e.ids[2]

	_, err := e.store.Insert(ctx, a, b, "first")
	require.NoError(t, err)
	_, err = e.store.Insert(ctx, c, a, "second")
	require.NoError(t, err)
	last, err := e.store.Insert(ctx, b, a, "third")
	require.NoError(t, err)

	conversations, err := e.store.Conversations(ctx, a)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, b, conversations[0].User.ID)
	assert.Equal(t, last.ID, conversations[0].LastMessage.ID)
	assert.Equal(t, c, conversations[1].User.ID)
}

func jsonInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
