package connection

// Connection graph queries. Placeholders first appear in ascending order so the same text
// runs on PostgreSQL and SQLite.
const (
	// PairBlockedQuery is true when a pending request or a connection exists in either direction
	PairBlockedQuery = `
		SELECT EXISTS (
			SELECT 1 FROM connection_requests
			WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
		) OR EXISTS (
			SELECT 1 FROM connections
			WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
		)
	`

	InsertRequestQuery = `
		INSERT INTO connection_requests (from_id, to_id, created_at)
		VALUES ($1, $2, $3)
	`

	RequestExistsQuery = `
		SELECT EXISTS (SELECT 1 FROM connection_requests WHERE from_id = $1 AND to_id = $2)
	`

	DeleteRequestQuery = `
		DELETE FROM connection_requests
		WHERE from_id = $1 AND to_id = $2
	`

	// DeletePairRequestsQuery clears pending requests in both directions
	DeletePairRequestsQuery = `
		DELETE FROM connection_requests
		WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
	`

	InsertConnectionQuery = `
		INSERT INTO connections (from_id, to_id, created_at)
		VALUES ($1, $2, $3)
	`

	DeleteConnectionPairQuery = `
		DELETE FROM connections
		WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
	`

	DeleteMessagesBetweenQuery = `
		DELETE FROM chat_messages
		WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
	`

	ConnectedQuery = `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
		)
	`

	// RelationQuery returns connected, pending sent and pending received flags for a pair
	RelationQuery = `
		SELECT
			EXISTS (
				SELECT 1 FROM connections
				WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
			),
			EXISTS (SELECT 1 FROM connection_requests WHERE from_id = $1 AND to_id = $2),
			EXISTS (SELECT 1 FROM connection_requests WHERE from_id = $2 AND to_id = $1)
	`

	CountConnectionsQuery = `SELECT COUNT(*) FROM connections WHERE from_id = $1`

	// ListConnectedQuery lists the counterpart of every connection row owned by the user
	ListConnectedQuery = `
		SELECT u.id, u.username, u.full_name, u.profile_photo_path, c.created_at
		FROM connections c
		JOIN users u ON u.id = c.to_id
		WHERE c.from_id = $1 AND u.id <> $1
		ORDER BY c.created_at DESC, u.id
	`

	// ListRequestedQuery lists outgoing pending requests that have no connection
	ListRequestedQuery = `
		SELECT u.id, u.username, u.full_name, u.profile_photo_path, r.created_at
		FROM connection_requests r
		JOIN users u ON u.id = r.to_id
		WHERE r.from_id = $1 AND u.id <> $1
		AND NOT EXISTS (
			SELECT 1 FROM connections c
			WHERE (c.from_id = $1 AND c.to_id = u.id) OR (c.from_id = u.id AND c.to_id = $1)
		)
		ORDER BY r.created_at DESC, u.id
	`

	// ListIncomingQuery lists incoming pending requests that have no connection
	ListIncomingQuery = `
		SELECT u.id, u.username, u.full_name, u.profile_photo_path, r.created_at
		FROM connection_requests r
		JOIN users u ON u.id = r.from_id
		WHERE r.to_id = $1 AND u.id <> $1
		AND NOT EXISTS (
			SELECT 1 FROM connections c
			WHERE (c.from_id = $1 AND c.to_id = u.id) OR (c.from_id = u.id AND c.to_id = $1)
		)
		ORDER BY r.created_at DESC, u.id
	`

	// ListUnconnectedQuery lists users with no connection and no pending request toward the user
	ListUnconnectedQuery = `
		SELECT u.id, u.username, u.full_name, u.profile_photo_path, u.created_at
		FROM users u
		WHERE u.id <> $1
		AND NOT EXISTS (
			SELECT 1 FROM connections c
			WHERE (c.from_id = $1 AND c.to_id = u.id) OR (c.from_id = u.id AND c.to_id = $1)
		)
		AND NOT EXISTS (
			SELECT 1 FROM connection_requests r
			WHERE (r.from_id = $1 AND r.to_id = u.id) OR (r.from_id = u.id AND r.to_id = $1)
		)
		ORDER BY u.username
		LIMIT $2
	`
)
