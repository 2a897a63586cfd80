package status

import (
	"net/http"
	"time"

	"linkinpurry/backend/handlers/httpx"
)

// Presence reports whether a user has a live real-time connection.
type Presence interface {
	Online(userID int64) bool
}

// Status represents the current online status of a user
type Status struct {
	UserID     int64     `json:"user_id"`
	Status     string    `json:"status"`
	LastUpdate time.Time `json:"last_update"`
}

const (
	Online  = "online"
	Offline = "offline"
)

func statusOf(presence Presence, userID int64) Status {
	s := Status{UserID: userID, Status: Offline, LastUpdate: time.Now().UTC()}
	if presence.Online(userID) {
		s.Status = Online
	}
	return s
}

// GetStatusHandler returns the online status of user {id}
func GetStatusHandler(presence Presence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := httpx.CallerID(r); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		userID, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "status fetched", statusOf(presence, userID))
	}
}

// GetMyStatusHandler returns the online status of the authenticated user
func GetMyStatusHandler(presence Presence) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "status fetched", statusOf(presence, userID))
	}
}
