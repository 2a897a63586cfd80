package profile

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/pkg/errors"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/database"
	"linkinpurry/backend/handlers/connection"
	"linkinpurry/backend/handlers/httpx"
	"linkinpurry/backend/handlers/user"
)

// Relations resolves the caller's relation toward another user.
type Relations interface {
	Relation(ctx context.Context, callerID, targetID int64) (connection.Status, error)
}

type Handler struct {
	db        *database.DB
	dir       *user.Directory
	relations Relations
}

func NewHandler(db *database.DB, dir *user.Directory, relations Relations) *Handler {
	return &Handler{db: db, dir: dir, relations: relations}
}

// Load returns the profile of targetID as seen by callerID.
func (h *Handler) Load(ctx context.Context, callerID, targetID int64) (*ProfileResponse, error) {
	var p ProfileResponse
	err := h.db.QueryRowContext(ctx, SelectProfileQuery, targetID).Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.FullName,
		&p.WorkHistory,
		&p.Skills,
		&p.ProfilePhotoPath,
		&p.CreatedAt,
		&p.ConnectionCount,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "profile.Load"))
	}

	status, err := h.relations.Relation(ctx, callerID, targetID)
	if err != nil {
		return nil, err
	}
	p.ConnectionStatus = string(status)
	if status != connection.StatusSelf {
		p.Email = ""
	}
	return &p, nil
}

// GetUserProfileHandler returns the profile of user {id}
// Used by: /api/profile/{id}
func (h *Handler) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.CallerID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	targetID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.Load(r.Context(), userID, targetID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, "profile fetched", p)
}

// GetMyProfileHandler returns the caller's own profile
// Used by: /api/me/profile
func (h *Handler) GetMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.CallerID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.Load(r.Context(), userID, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, "profile fetched", p)
}

// UpdateProfileHandler applies a partial update to the caller's profile
// Used by: PUT /api/me/profile
func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.CallerID(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	var upd user.ProfileUpdate
	if err := httpx.Decode(r, &upd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if _, err := h.dir.UpdateProfile(r.Context(), userID, upd); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.Load(r.Context(), userID, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.OK(w, "profile updated", p)
}
