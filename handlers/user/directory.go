package user

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/database"
)

// Directory resolves users by id, username or email and owns their uniqueness rules.
type Directory struct {
	db  *database.DB
	now func() time.Time
}

func NewDirectory(db *database.DB) *Directory {
	return &Directory{db: db, now: time.Now}
}

// Create inserts a user. A taken username or email is a CONFLICT naming the field.
func (d *Directory) Create(ctx context.Context, in NewUser) (*User, error) {
	now := d.now().UTC()
	var id int64
	err := d.db.QueryRowContext(ctx, InsertUserQuery,
		in.Username, in.Email, in.PasswordHash, in.FullName, now, now,
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if strings.Contains(database.ConstraintName(err), "email") {
				return nil, apperr.Conflict("email already exists")
			}
			return nil, apperr.Conflict("username already exists")
		}
		return nil, apperr.Internal(errors.Wrap(err, "user.directory.Create"))
	}
	return &User{
		ID:        id,
		Username:  in.Username,
		Email:     in.Email,
		FullName:  in.FullName,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (d *Directory) ByID(ctx context.Context, id int64) (*User, error) {
	return d.one(ctx, SelectUserByIDQuery, id)
}

func (d *Directory) ByUsername(ctx context.Context, username string) (*User, error) {
	return d.one(ctx, SelectUserByUsernameQuery, username)
}

func (d *Directory) ByEmail(ctx context.Context, email string) (*User, error) {
	return d.one(ctx, SelectUserByEmailQuery, strings.ToLower(email))
}

func (d *Directory) one(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	err := d.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.WorkHistory,
		&u.Skills,
		&u.ProfilePhotoPath,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "user.directory.one"))
	}
	return &u, nil
}

// Credentials returns the id and password hash for a username or email.
func (d *Directory) Credentials(ctx context.Context, identifier string) (int64, string, error) {
	var (
		id   int64
		hash string
	)
	err := d.db.QueryRowContext(ctx, SelectCredentialsQuery, identifier).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return 0, "", apperr.NotFound("user not found")
	}
	if err != nil {
		return 0, "", apperr.Internal(errors.Wrap(err, "user.directory.Credentials"))
	}
	return id, hash, nil
}

// Exists confirms that a user id resolves.
func (d *Directory) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := d.db.QueryRowContext(ctx, UserExistsQuery, id).Scan(&exists); err != nil {
		return false, apperr.Internal(errors.Wrap(err, "user.directory.Exists"))
	}
	return exists, nil
}

// Search returns users whose username or full name contains query.
func (d *Directory) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := d.db.QueryContext(ctx, SearchUsersQuery, pattern, limit)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "user.directory.Search"))
	}
	defer rows.Close()

	users := []Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Username, &s.FullName, &s.ProfilePhotoPath); err != nil {
			return nil, apperr.Internal(errors.Wrap(err, "user.directory.Search"))
		}
		users = append(users, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "user.directory.Search"))
	}
	return users, nil
}

// UpdateProfile merges the non-nil fields of upd into the user's profile.
func (d *Directory) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*User, error) {
	existing, err := d.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		existing.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.WorkHistory != nil {
		existing.WorkHistory = *upd.WorkHistory
	}
	if upd.Skills != nil {
		existing.Skills = *upd.Skills
	}
	if existing.FullName == "" {
		return nil, apperr.InvalidOperation("full name cannot be empty")
	}
	existing.UpdatedAt = d.now().UTC()

	_, err = d.db.ExecContext(ctx, UpdateProfileQuery,
		existing.FullName,
		existing.WorkHistory,
		existing.Skills,
		existing.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "user.directory.UpdateProfile"))
	}
	return existing, nil
}
