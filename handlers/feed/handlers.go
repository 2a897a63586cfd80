package feed

import (
	"net/http"
	"strconv"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/handlers/httpx"
)

// GetFeedHandler pages through the caller's feed
// Used by: /api/feed?cursor=&limit=
func GetFeedHandler(store *Store, defaultPageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		var cursor int64
		if raw := r.URL.Query().Get("cursor"); raw != "" {
			cursor, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || cursor <= 0 {
				httpx.WriteError(w, r, apperr.InvalidOperation("invalid cursor"))
				return
			}
		}
		limit := defaultPageSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				httpx.WriteError(w, r, apperr.InvalidOperation("invalid limit"))
				return
			}
		}

		page, err := store.Feed(r.Context(), userID, cursor, limit)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "feed fetched", page)
	}
}

// CreatePostHandler publishes a post
func CreatePostHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		var body PostBody
		if err := httpx.Decode(r, &body); err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		post, err := store.Create(r.Context(), userID, body.Content)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, "post created", post)
	}
}

// UpdatePostHandler edits one of the caller's posts
func UpdatePostHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		postID, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		var body PostBody
		if err := httpx.Decode(r, &body); err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		post, err := store.Update(r.Context(), userID, postID, body.Content)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "post updated", post)
	}
}

// DeletePostHandler removes one of the caller's posts
func DeletePostHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		postID, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		if err := store.Delete(r.Context(), userID, postID); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "post deleted", nil)
	}
}
