package feed

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/database"
)

const (
	MaxContentLength = 280
	MaxPageSize      = 50
)

// Store keeps posts and serves the cursor-paginated feed.
type Store struct {
	db  *database.DB
	now func() time.Time
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return "", apperr.InvalidOperation("content cannot be empty")
	}
	if n > MaxContentLength {
		return "", apperr.InvalidOperation("content must be at most 280 characters")
	}
	return content, nil
}

// Create publishes a post for userID.
func (s *Store) Create(ctx context.Context, userID int64, content string) (*Post, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var id int64
	if err := s.db.QueryRowContext(ctx, InsertPostQuery, userID, content, now, now).Scan(&id); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "feed.store.Create"))
	}
	return s.Get(ctx, id)
}

func (s *Store) Get(ctx context.Context, id int64) (*Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, SelectPostQuery, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("post not found")
	}
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "feed.store.Get"))
	}
	return p, nil
}

// Update replaces the content of a post owned by userID. Posts of others are NOT_FOUND.
func (s *Store) Update(ctx context.Context, userID, postID int64, content string) (*Post, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, UpdatePostQuery, content, s.now().UTC(), postID, userID)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "feed.store.Update"))
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "feed.store.Update"))
	} else if n == 0 {
		return nil, apperr.NotFound("post not found")
	}
	return s.Get(ctx, postID)
}

// Delete removes a post owned by userID.
func (s *Store) Delete(ctx context.Context, userID, postID int64) error {
	res, err := s.db.ExecContext(ctx, DeletePostQuery, postID, userID)
	if err != nil {
		return apperr.Internal(errors.Wrap(err, "feed.store.Delete"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(errors.Wrap(err, "feed.store.Delete"))
	}
	if n == 0 {
		return apperr.NotFound("post not found")
	}
	return nil
}

// Feed returns posts older than cursor (all posts when cursor is 0) from userID and their
// connections. The next cursor is the id of the last post returned.
func (s *Store) Feed(ctx context.Context, userID, cursor int64, limit int) (*Page, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if cursor <= 0 {
		cursor = math.MaxInt64
	}

	rows, err := s.db.QueryContext(ctx, FeedQuery, userID, cursor, limit+1)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "feed.store.Feed"))
	}
	defer rows.Close()

	page := &Page{Posts: []Post{}}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, apperr.Internal(errors.Wrap(err, "feed.store.Feed"))
		}
		page.Posts = append(page.Posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "feed.store.Feed"))
	}

	if len(page.Posts) > limit {
		page.Posts = page.Posts[:limit]
		next := page.Posts[limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row scanner) (*Post, error) {
	var p Post
	err := row.Scan(
		&p.ID,
		&p.Author.ID,
		&p.Author.Username,
		&p.Author.FullName,
		&p.Author.ProfilePhotoPath,
		&p.Content,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
