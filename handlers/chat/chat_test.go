package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"linkinpurry/backend/database"
	"linkinpurry/backend/handlers/user"
)

type emitted struct {
	Event string
	Data  interface{}
}

type fakeHandle struct {
	id   string
	fail bool

	mu     sync.Mutex
	events []emitted
}

func newHandle(id string) *fakeHandle { return &fakeHandle{id: id} }

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Emit(event string, data interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("broken pipe")
	}
	h.events = append(h.events, emitted{Event: event, Data: data})
	return nil
}

func (h *fakeHandle) named(event string) []emitted {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []emitted
	for _, e := range h.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type staticGate bool

func (g staticGate) Connected(context.Context, int64, int64) (bool, error) { return bool(g), nil }

type env struct {
	db       *database.DB
	dir      *user.Directory
	presence *Registry
	store    *Store
	router   *Router
	ids      []int64
}

func newEnv(t *testing.T, users int, gate ConnectionChecker) *env {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{db: db, dir: user.NewDirectory(db), presence: NewRegistry(), store: NewStore(db)}
	e.router = NewRouter(e.presence, e.store, e.dir, gate)
	for i := 0; i < users; i++ {
		u, err := e.dir.Create(context.Background(), user.NewUser{
			Username:     fmt.Sprintf("chatter%d", i+1),
			Email:        fmt.Sprintf("chatter%d@example.com", i+1),
			FullName:     fmt.Sprintf("Chatter %d", i+1),
			PasswordHash: "x",
		})
		require.NoError(t, err)
		e.ids = append(e.ids, u.ID)
	}
	return e
}

func decodeAs(t *testing.T, data interface{}, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}
