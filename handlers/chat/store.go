package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/database"
	"linkinpurry/backend/metrics"
)

// Store persists direct messages. Messages are never updated.
type Store struct {
	db  *database.DB
	now func() time.Time
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Insert persists a message with a server-assigned timestamp.
func (s *Store) Insert(ctx context.Context, fromID, toID int64, text string) (*Message, error) {
	msg := &Message{
		FromID:    fromID,
		ToID:      toID,
		Message:   text,
		Timestamp: s.now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, InsertMessageQuery, fromID, toID, text, msg.Timestamp).Scan(&msg.ID)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "chat.store.Insert"))
	}
	metrics.ChatMessagesStoredTotal.Inc()
	return msg, nil
}

// History returns all messages between a and b in ascending time.
func (s *Store) History(ctx context.Context, a, b int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, HistoryQuery, a, b)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "chat.store.History"))
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.Message, &m.Timestamp); err != nil {
			return nil, apperr.Internal(errors.Wrap(err, "chat.store.History"))
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "chat.store.History"))
	}
	return messages, nil
}

// Conversations lists the user's chat partners, most recent first.
func (s *Store) Conversations(ctx context.Context, userID int64) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, ConversationsQuery, userID)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "chat.store.Conversations"))
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		err := rows.Scan(
			&c.User.ID,
			&c.User.Username,
			&c.User.FullName,
			&c.User.ProfilePhotoPath,
			&c.LastMessage.ID,
			&c.LastMessage.FromID,
			&c.LastMessage.ToID,
			&c.LastMessage.Message,
			&c.LastMessage.Timestamp,
		)
		if err != nil {
			return nil, apperr.Internal(errors.Wrap(err, "chat.store.Conversations"))
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "chat.store.Conversations"))
	}
	return conversations, nil
}
