package httpx

import (
	"context"
	"net/http"

	"linkinpurry/backend/apperr"
)

type callerKey struct{}

// WithCallerID stores the verified identity of the caller.
func WithCallerID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerID returns the identity stored by the auth middleware.
func CallerID(r *http.Request) (int64, error) {
	id, ok := r.Context().Value(callerKey{}).(int64)
	if !ok || id <= 0 {
		return 0, apperr.Unauthenticated("unauthorized")
	}
	return id, nil
}
