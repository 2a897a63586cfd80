package auth

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/handlers/httpx"
	"linkinpurry/backend/handlers/user"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,32}$`)

const minPasswordLength = 8

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse is the body returned by register and login.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

func (req *registerRequest) normalize() error {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if !usernamePattern.MatchString(req.Username) {
		return apperr.InvalidOperation("username must be 3-32 chars of lowercase letters, digits, '_' or '.'")
	}
	if !strings.Contains(req.Email, "@") {
		return apperr.InvalidOperation("invalid email")
	}
	if req.FullName == "" {
		req.FullName = req.Username
	}
	if len(req.Password) < minPasswordLength {
		return apperr.InvalidOperation("password must be at least 8 characters")
	}
	return nil
}

// RegisterHandler handles user registration
// Used by: /api/auth/register
// Response: LoginResponse
func RegisterHandler(dir *user.Directory, tokens *TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if err := req.normalize(); err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.WriteError(w, r, apperr.Internal(err))
			return
		}

		u, err := dir.Create(r.Context(), user.NewUser{
			Username:     req.Username,
			Email:        req.Email,
			FullName:     req.FullName,
			PasswordHash: string(hashedPassword),
		})
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		token, expiresAt, err := tokens.GenerateToken(u.ID, u.Username)
		if err != nil {
			httpx.WriteError(w, r, apperr.Internal(err))
			return
		}

		log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user registered")
		httpx.WriteJSON(w, http.StatusCreated, "user registered", LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			User:      u,
		})
	}
}

// LoginHandler handles user authentication by username or email
// Used by: /api/auth/login
// Response: LoginResponse
func LoginHandler(dir *user.Directory, tokens *TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		identifier := strings.ToLower(strings.TrimSpace(req.Identifier))

		invalid := apperr.Unauthenticated("invalid credentials")
		userID, hashedPassword, err := dir.Credentials(r.Context(), identifier)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound {
				err = invalid
			}
			httpx.WriteError(w, r, err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
			httpx.WriteError(w, r, invalid)
			return
		}

		u, err := dir.ByID(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		token, expiresAt, err := tokens.GenerateToken(u.ID, u.Username)
		if err != nil {
			httpx.WriteError(w, r, apperr.Internal(err))
			return
		}

		httpx.OK(w, "login successful", LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			User:      u,
		})
	}
}
