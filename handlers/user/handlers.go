package user

import (
	"net/http"

	"linkinpurry/backend/handlers/httpx"
)

// GetMeHandler returns the authenticated user's directory entry
func GetMeHandler(dir *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		u, err := dir.ByID(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "user fetched", u)
	}
}

// SearchUsersHandler lists users matching ?search= on username or full name
func SearchUsersHandler(dir *Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := httpx.CallerID(r); err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		users, err := dir.Search(r.Context(), r.URL.Query().Get("search"), 20)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "users fetched", users)
	}
}
