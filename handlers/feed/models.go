package feed

import (
	"time"

	"linkinpurry/backend/handlers/user"
)

// Post is a feed entry with its author's display attributes.
type Post struct {
	ID        int64        `json:"id"`
	Author    user.Summary `json:"author"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Page is one page of the feed. NextCursor is nil on the last page.
type Page struct {
	Posts      []Post `json:"posts"`
	NextCursor *int64 `json:"next_cursor"`
}

// PostBody is the body of POST /api/feed and PUT /api/feed/{id}
type PostBody struct {
	Content string `json:"content"`
}
