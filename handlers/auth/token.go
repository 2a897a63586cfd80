package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"linkinpurry/backend/apperr"
)

// TokenManager issues and verifies HS256 tokens carrying the user id.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a token for the user, returning it with its expiry.
func (m *TokenManager) GenerateToken(userID int64, username string) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret key not set")
	}
	expiresAt := m.now().Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"iat":      m.now().Unix(),
		"exp":      expiresAt.Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken verifies the token and returns the user id it was issued for.
func (m *TokenManager) ParseToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, apperr.Unauthenticated("invalid token claims")
	}
	raw, ok := claims["user_id"].(float64)
	if !ok || raw <= 0 {
		return 0, apperr.Unauthenticated("invalid token claims")
	}
	return int64(raw), nil
}

// UserIDFromRequest reads the token from the Authorization header, falling back to the
// token query parameter used by websocket clients.
func (m *TokenManager) UserIDFromRequest(r *http.Request) (int64, error) {
	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tokenString == "" {
		tokenString = strings.TrimPrefix(r.URL.Query().Get("token"), "Bearer ")
	}
	if tokenString == "" {
		return 0, apperr.Unauthenticated("no token provided")
	}
	return m.ParseToken(tokenString)
}
