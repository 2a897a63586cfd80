package auth

import (
	"net/http"

	"linkinpurry/backend/handlers/httpx"
)

// Middleware rejects requests without a valid token and stores the caller id in the context.
func (m *TokenManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := m.UserIDFromRequest(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(httpx.WithCallerID(r.Context(), userID)))
	})
}
