package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const envPrefix = "LINKINPURRY_"

// Config is the runtime configuration of the server.
type Config struct {
	Port           string        `koanf:"port"`
	DatabaseURL    string        `koanf:"database_url"`
	JWTSecretKey   string        `koanf:"jwt_secret_key"`
	TokenTTL       time.Duration `koanf:"token_ttl"`
	AllowedOrigins []string      `koanf:"allowed_origins"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// PurgeHistoryOnDisconnect deletes the chat history of a pair when they disconnect.
	PurgeHistoryOnDisconnect bool `koanf:"purge_history_on_disconnect"`
	// RequireConnectionForChat rejects messages between users who are not connected.
	RequireConnectionForChat bool `koanf:"require_connection_for_chat"`
	// TypingTimerScope is "sender" (one timer per sender) or "pair" (one per sender and recipient).
	TypingTimerScope string `koanf:"typing_timer_scope"`

	SocketEventsPerSecond float64 `koanf:"socket_events_per_second"`
	SocketEventBurst      int     `koanf:"socket_event_burst"`
	AuthRequestsPerMinute int     `koanf:"auth_requests_per_minute"`
	FeedPageSize          int     `koanf:"feed_page_size"`
	EnableTestRoutes      bool    `koanf:"enable_test_routes"`
}

// legacyKeys are the bare environment names the server has always read.
var legacyKeys = map[string]string{
	"DATABASE_URL":   "database_url",
	"JWT_SECRET_KEY": "jwt_secret_key",
	"PORT":           "port",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":                        "8080",
		"token_ttl":                   "24h",
		"allowed_origins":             []string{"*"},
		"log_level":                   "info",
		"log_format":                  "json",
		"purge_history_on_disconnect": true,
		"require_connection_for_chat": false,
		"typing_timer_scope":          "sender",
		"socket_events_per_second":    20.0,
		"socket_event_burst":          40,
		"auth_requests_per_minute":    30,
		"feed_page_size":              10,
		"enable_test_routes":          false,
	}
}

// Load reads configuration from defaults, then the optional TOML file at configPath, then
// the environment. envFile, when set, is loaded into the environment first.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg(".env file not loaded")
		}
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "error loading defaults")
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, errors.Wrap(err, "error loading config")
			}
		} else {
			log.Warn().Str("path", configPath).Msg("config file not found, using environment only")
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyKeys[s]
	}), nil); err != nil {
		return nil, errors.Wrap(err, "error loading environment")
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "error loading environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling config")
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "database_url is not set")
	}
	if c.JWTSecretKey == "" {
		problems = append(problems, "jwt_secret_key is not set")
	}
	if c.TypingTimerScope != "sender" && c.TypingTimerScope != "pair" {
		problems = append(problems, "typing_timer_scope must be sender or pair, got \""+c.TypingTimerScope+"\"")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "token_ttl must be positive")
	}
	if c.FeedPageSize <= 0 {
		problems = append(problems, "feed_page_size must be positive")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
