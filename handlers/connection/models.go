package connection

import (
	"time"

	"linkinpurry/backend/handlers/user"
)

// Status is the relation of the caller toward another user.
type Status string

const (
	StatusSelf            Status = "self"
	StatusConnected       Status = "connected"
	StatusUnconnected     Status = "unconnected"
	StatusPendingSent     Status = "pending_sent"
	StatusPendingReceived Status = "pending_received"
)

// Peer is a user in one of the caller's listings.
type Peer struct {
	user.Summary
	// Since is when the connection or request was created; for unconnected users it is
	// their registration time.
	Since time.Time `json:"since"`
}

// CreateRequestBody is the body of POST /api/connections/requests
type CreateRequestBody struct {
	TargetID int64 `json:"target_id"`
}

// StatusResponse is the body of GET /api/connections/status/{id}
type StatusResponse struct {
	UserID int64  `json:"user_id"`
	Status Status `json:"status"`
}
