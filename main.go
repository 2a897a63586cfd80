package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"linkinpurry/backend/config"
	"linkinpurry/backend/database"
	"linkinpurry/backend/handlers"
	"linkinpurry/backend/logging"
	"linkinpurry/backend/metrics"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "linkinpurry",
		Usage:   "LinkInPurry backend: connections, feed and real-time chat",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "linkinpurry.toml",
				EnvVars: []string{"LINKINPURRY_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE`",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run migrations and start the HTTP and websocket server",
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(c *cli.Context) error {
			_, db, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer db.Close()
			return migrateDB(db)
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Fill the database with fake users, connections and posts",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "users",
				Usage: "Number of users to create",
				Value: 20,
			},
		},
		Action: func(c *cli.Context) error {
			_, db, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrateDB(db); err != nil {
				return err
			}
			result, err := handlers.Seed(c.Context, db, c.Int("users"))
			if err != nil {
				return err
			}
			fmt.Printf("created %d users, %d connections, %d pending requests, %d posts (password %q)\n",
				result.Users, result.Connections, result.Requests, result.Posts, handlers.TestPassword)
			return nil
		},
	}
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap(c *cli.Context) (*config.Config, *database.DB, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("dialect", string(db.Dialect)).Msg("database connected")
	return cfg, db, nil
}

func migrateDB(db *database.DB) error {
	result, err := db.Migrate()
	if err != nil {
		return err
	}
	log.Info().
		Uint("version", result.Version).
		Bool("changed", result.Changed).
		Bool("dirty", result.Dirty).
		Msg("database migrated")
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrateDB(db); err != nil {
		return err
	}
	metrics.MustRegister()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(cfg, db).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
