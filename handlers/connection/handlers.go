package connection

import (
	"context"
	"net/http"

	"linkinpurry/backend/handlers/httpx"
)

// RequestConnectionHandler sends a connection request to target_id
// Used by: /api/connections/requests
func RequestConnectionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		var req CreateRequestBody
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		if err := svc.RequestConnection(r.Context(), userID, req.TargetID); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, "connection request sent", StatusResponse{
			UserID: req.TargetID,
			Status: StatusPendingSent,
		})
	}
}

// AcceptRequestHandler accepts the pending request sent by {id}
func AcceptRequestHandler(svc *Service) http.HandlerFunc {
	return pairAction(func(ctx context.Context, callerID, otherID int64) (string, Status, error) {
		return "connection request accepted", StatusConnected, svc.AcceptRequest(ctx, callerID, otherID)
	})
}

// DeclineRequestHandler declines the pending request sent by {id}
func DeclineRequestHandler(svc *Service) http.HandlerFunc {
	return pairAction(func(ctx context.Context, callerID, otherID int64) (string, Status, error) {
		return "connection request declined", StatusUnconnected, svc.DeclineRequest(ctx, callerID, otherID)
	})
}

// DisconnectHandler removes the connection with {id}
func DisconnectHandler(svc *Service) http.HandlerFunc {
	return pairAction(func(ctx context.Context, callerID, otherID int64) (string, Status, error) {
		return "connection removed", StatusUnconnected, svc.Disconnect(ctx, callerID, otherID)
	})
}

func pairAction(action func(ctx context.Context, callerID, otherID int64) (string, Status, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		otherID, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		msg, status, err := action(r.Context(), userID, otherID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, msg, StatusResponse{UserID: otherID, Status: status})
	}
}

// GetStatusHandler returns self, connected or unconnected toward {id}
func GetStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		status, err := svc.ConnectionStatus(r.Context(), userID, targetID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "connection status fetched", StatusResponse{UserID: targetID, Status: status})
	}
}

// ListHandler serves one of the caller's listings
// Used by: /api/connections/{unconnected,requested,incoming,connected}
func ListHandler(list func(ctx context.Context, userID int64) ([]Peer, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.CallerID(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		peers, err := list(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "users fetched", peers)
	}
}

// GetUserConnectionsHandler lists the connections of any user
// Used by: /api/users/{id}/connections
func GetUserConnectionsHandler(svc *Service) http.HandlerFunc {
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

		peers, err := svc.ListConnected(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.OK(w, "connections fetched", peers)
	}
}
