package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkinpurry/backend/config"
	"linkinpurry/backend/database"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

func newTestServer(t *testing.T, overrides ...func(*config.Config)) *httptest.Server {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		JWTSecretKey:             "test-secret",
		TokenTTL:                 time.Hour,
		AllowedOrigins:           []string{"*"},
		PurgeHistoryOnDisconnect: true,
		TypingTimerScope:         "sender",
		SocketEventsPerSecond:    20,
		SocketEventBurst:         40,
		FeedPageSize:             10,
	}
	for _, o := range overrides {
		o(cfg)
	}
	ts := httptest.NewServer(newServer(cfg, db).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func register(t *testing.T, ts *httptest.Server, username string) (int64, string) {
	t.Helper()
	code, env := call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Body, &body))
	return body.User.ID, body.Token
}

func TestServerConnectionFlow(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := register(t, ts, "alice")
	bob, bobToken := register(t, ts, "bob")

	code, _ := call(t, ts, http.MethodGet, "/api/connections/connected", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, ts, http.MethodPost, "/api/connections/requests", aliceToken, map[string]int64{"target_id": bob})
	require.Equal(t, http.StatusCreated, code)

	code, env := call(t, ts, http.MethodGet, "/api/connections/incoming", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Body), `"username":"alice"`)

	code, _ = call(t, ts, http.MethodPost, fmt.Sprintf("/api/connections/requests/%d/accept", alice), bobToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, ts, http.MethodGet, fmt.Sprintf("/api/profile/%d", bob), aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Body), `"connection_status":"connected"`)

	code, _ = call(t, ts, http.MethodDelete, fmt.Sprintf("/api/connections/%d", bob), aliceToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, ts, http.MethodDelete, fmt.Sprintf("/api/connections/%d", bob), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServerLoginAndHealth(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "carol")

	code, env := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "carol@example.com",
		"password":   "password123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", env.Message)

	resp, err := http.Post(ts.URL+"/api/test/generate-users", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "test routes are off unless enabled")
}

func TestServerTestRoutesSkipAuth(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.EnableTestRoutes = true })

	code, env := call(t, ts, http.MethodPost, "/api/test/generate-users?count=3", "", nil)
	require.Equal(t, http.StatusCreated, code)
	var result struct {
		Users  int `json:"users"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Body, &result))
	assert.Equal(t, 3, result.Users+result.Failed)
	assert.Positive(t, result.Users)
}
