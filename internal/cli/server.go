package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forest-valley-trail/internal/app"
	"forest-valley-trail/internal/config"
	"forest-valley-trail/internal/content"
	"forest-valley-trail/internal/infra/memory"
	pginfra "forest-valley-trail/internal/infra/postgres"
	redisinfra "forest-valley-trail/internal/infra/redis"
	transport "forest-valley-trail/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trail server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Trail.SessionTTL, 24*time.Hour)
	contentTTL := config.TTLDuration(cfg.Trail.ContentTTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Trail content: built-in catalog unless Postgres holds an authored trail.
	var loader memory.CheckpointLoader = memory.NewStaticCheckpointLoader(content.Checkpoints())
	if pool != nil {
		dbLoader := pginfra.NewCheckpointLoader(pool)
		if _, err := dbLoader.LoadCheckpoints(ctx); err != nil {
			log.Printf("checkpoints table empty or unreadable, serving built-in trail: %v", err)
		} else {
			loader = dbLoader
		}
	}

	var checkpoints app.CheckpointRepository
	if redisClient != nil {
		checkpoints = redisinfra.NewCheckpointRepository(redisClient, loader, contentTTL)
	} else {
		checkpoints = memory.NewCheckpointRepository(loader, contentTTL)
	}

	var sessions app.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	hub := app.NewBoard()
	var board app.NationBoard
	if redisClient != nil {
		redisBoard := redisinfra.NewNationBoard(redisClient, hub)
		if err := redisBoard.Hydrate(ctx); err != nil {
			log.Printf("leaderboard hydrate failed, starting empty: %v", err)
		}
		board = redisBoard
	} else {
		board = memory.NewNationBoard(hub)
	}

	var surveys app.SurveyStore
	if pool != nil {
		surveys = pginfra.NewSurveyStore(pool)
	} else {
		surveys = memory.NewSurveyStore()
	}

	service := app.NewTrailService(sessions, checkpoints, board, surveys, content.Nations())
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trail service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
