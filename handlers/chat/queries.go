package chat

// Chat queries
const (
	InsertMessageQuery = `
		INSERT INTO chat_messages (from_id, to_id, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	// HistoryQuery returns every message between two users, oldest first
	HistoryQuery = `
		SELECT id, from_id, to_id, message, created_at
		FROM chat_messages
		WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
		ORDER BY created_at ASC, id ASC
	`

	// ConversationsQuery lists every counterpart of the user with the latest message exchanged
	ConversationsQuery = `
		SELECT
			u.id, u.username, u.full_name, u.profile_photo_path,
			m.id, m.from_id, m.to_id, m.message, m.created_at
		FROM users u
		JOIN chat_messages m ON m.id = (
			SELECT MAX(cm.id) FROM chat_messages cm
			WHERE (cm.from_id = $1 AND cm.to_id = u.id) OR (cm.from_id = u.id AND cm.to_id = $1)
		)
		WHERE u.id <> $1
		ORDER BY m.id DESC
	`
)
