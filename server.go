package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"linkinpurry/backend/config"
	"linkinpurry/backend/database"
	"linkinpurry/backend/handlers"
	"linkinpurry/backend/handlers/auth"
	"linkinpurry/backend/handlers/chat"
	"linkinpurry/backend/handlers/connection"
	"linkinpurry/backend/handlers/feed"
	"linkinpurry/backend/handlers/httpx"
	"linkinpurry/backend/handlers/profile"
	"linkinpurry/backend/handlers/status"
	"linkinpurry/backend/handlers/user"
)

// server wires the stores and services behind the HTTP routes.
type server struct {
	cfg *config.Config
	db  *database.DB

	tokens      *auth.TokenManager
	directory   *user.Directory
	connections *connection.Service
	profiles    *profile.Handler
	posts       *feed.Store
	presence    *chat.Registry
	messages    *chat.Store
	chatRouter  *chat.Router
	sockets     *chat.Server
}

func newServer(cfg *config.Config, db *database.DB) *server {
	s := &server{cfg: cfg, db: db}
	s.tokens = auth.NewTokenManager(cfg.JWTSecretKey, cfg.TokenTTL)
	s.directory = user.NewDirectory(db)
	s.connections = connection.NewService(db, s.directory, cfg.PurgeHistoryOnDisconnect)
	s.profiles = profile.NewHandler(db, s.directory, s.connections)
	s.posts = feed.NewStore(db)

	var gate chat.ConnectionChecker
	if cfg.RequireConnectionForChat {
		gate = s.connections
	}
	s.presence = chat.NewRegistry()
	s.messages = chat.NewStore(db)
	s.chatRouter = chat.NewRouter(s.presence, s.messages, s.directory, gate)
	typing := chat.NewDebouncer(s.presence, chat.TimerScope(cfg.TypingTimerScope))
	s.sockets = chat.NewServer(s.tokens, s.presence, s.chatRouter, typing, chat.SocketOptions{
		EventsPerSecond: cfg.SocketEventsPerSecond,
		Burst:           cfg.SocketEventBurst,
		AllowedOrigins:  cfg.AllowedOrigins,
	})
	return s
}

// Handler builds the router wrapped in CORS.
func (s *server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(httpx.RequestLogger)

	r.HandleFunc("/healthz", s.healthz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Public routes (no auth required)
	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	if s.cfg.AuthRequestsPerMinute > 0 {
		authRoutes.Use(httprate.LimitByIP(s.cfg.AuthRequestsPerMinute, time.Minute))
	}
	authRoutes.HandleFunc("/register", auth.RegisterHandler(s.directory, s.tokens)).Methods("POST", "OPTIONS")
	authRoutes.HandleFunc("/login", auth.LoginHandler(s.directory, s.tokens)).Methods("POST", "OPTIONS")

	if s.cfg.EnableTestRoutes {
		r.HandleFunc("/api/test/generate-users", handlers.GenerateTestDataHandler(s.db)).Methods("POST", "OPTIONS")
	}

	r.HandleFunc("/ws/chat", s.sockets.HandleWebSocket())

	// Create a subrouter for protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(s.tokens.Middleware)

	// User routes
	protected.HandleFunc("/users", user.SearchUsersHandler(s.directory)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/users/{id}/connections", connection.GetUserConnectionsHandler(s.connections)).Methods("GET", "OPTIONS")

	// Me and profile routes
	protected.HandleFunc("/me", user.GetMeHandler(s.directory)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/me/profile", s.profiles.GetMyProfileHandler).Methods("GET", "OPTIONS")
	protected.HandleFunc("/me/profile", s.profiles.UpdateProfileHandler).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/profile/{id}", s.profiles.GetUserProfileHandler).Methods("GET", "OPTIONS")

	// Connection routes
	protected.HandleFunc("/connections/requests", connection.RequestConnectionHandler(s.connections)).Methods("POST", "OPTIONS")
	protected.HandleFunc("/connections/requests/{id}/accept", connection.AcceptRequestHandler(s.connections)).Methods("POST", "OPTIONS")
	protected.HandleFunc("/connections/requests/{id}/decline", connection.DeclineRequestHandler(s.connections)).Methods("POST", "OPTIONS")
	protected.HandleFunc("/connections/status/{id}", connection.GetStatusHandler(s.connections)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/connections/unconnected", connection.ListHandler(s.connections.ListUnconnected)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/connections/requested", connection.ListHandler(s.connections.ListRequested)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/connections/incoming", connection.ListHandler(s.connections.ListIncoming)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/connections/connected", connection.ListHandler(s.connections.ListConnected)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/connections/{id}", connection.DisconnectHandler(s.connections)).Methods("DELETE", "OPTIONS")

	// Feed routes
	protected.HandleFunc("/feed", feed.GetFeedHandler(s.posts, s.cfg.FeedPageSize)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/feed", feed.CreatePostHandler(s.posts)).Methods("POST", "OPTIONS")
	protected.HandleFunc("/feed/{id}", feed.UpdatePostHandler(s.posts)).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/feed/{id}", feed.DeletePostHandler(s.posts)).Methods("DELETE", "OPTIONS")

	// Chat routes
	protected.HandleFunc("/chat", chat.GetChatsHandler(s.messages)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/chat/{id}/messages", chat.GetChatMessagesHandler(s.chatRouter)).Methods("GET", "OPTIONS")

	// Status routes
	protected.HandleFunc("/status/{id}", status.GetStatusHandler(s.presence)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/status", status.GetMyStatusHandler(s.presence)).Methods("GET", "OPTIONS")

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", httpx.RequestIDHeader},
		ExposedHeaders:   []string{httpx.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	})
	return c.Handler(r)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	httpx.OK(w, "ok", map[string]int{"online_users": s.presence.Count()})
}
