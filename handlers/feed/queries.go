package feed

const (
	postColumns = `p.id, u.id, u.username, u.full_name, u.profile_photo_path, p.content, p.created_at, p.updated_at`

	InsertPostQuery = `
		INSERT INTO posts (user_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	SelectPostQuery = `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`

	// FeedQuery pages through the posts of a user and their connections, newest first
	FeedQuery = `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE (
			p.user_id = $1
			OR EXISTS (SELECT 1 FROM connections c WHERE c.from_id = $1 AND c.to_id = p.user_id)
		)
		AND p.id < $2
		ORDER BY p.id DESC
		LIMIT $3
	`

	UpdatePostQuery = `
		UPDATE posts
		SET content = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`

	DeletePostQuery = `DELETE FROM posts WHERE id = $1 AND user_id = $2`
)
