package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"myth-quiz-service/internal/app"
	"myth-quiz-service/internal/config"
	"myth-quiz-service/internal/events"
	"myth-quiz-service/internal/infra/memory"
	redisstore "myth-quiz-service/internal/infra/redis"
	"myth-quiz-service/internal/logging"
	transport "myth-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := referenceLoader(cfg, pool)
	if err != nil {
		return err
	}

	referenceTTL := config.TTLDuration(cfg.Reference.TTL, 10*time.Minute)
	var references app.ReferenceRepository
	if redisClient != nil {
		references = redisstore.NewReferenceRepository(redisClient, loader, referenceTTL, logger)
	} else {
		references = memory.NewReferenceRepository(loader, referenceTTL, logger)
	}

	// redis.ttl is the older spelling of session.ttl
	sessionTTL := config.TTLDuration(cfg.Session.TTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		store := memory.NewSessionStore(sessionTTL)
		go store.RunSweeper(ctx, time.Minute)
		sessions = store
	}

	notifier, closeNotifier, err := events.NewNotifier(ctx, events.Options{
		Publisher:    cfg.Events.Publisher,
		Topic:        cfg.Events.Topic,
		KafkaBrokers: cfg.Events.KafkaBrokers,
		Buffer:       cfg.Events.Buffer,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeNotifier(); err != nil {
			logger.Warn("close event notifier", "error", err)
		}
	}()

	service := app.NewQuizService(sessions, references, notifier, logger)
	if _, err := service.Reference(ctx); err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	sessionOpts := transport.SessionOptions{Secure: cfg.Session.CookieSecure}
	router := transport.NewRouter(
		transport.NewHandler(service, logger, sessionOpts),
		transport.NewWSHandler(service, logger, sessionOpts),
		logger,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorLog:     logging.NewStdLogger(logger),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case err := <-serveErr:
		logger.LogError(err, "failed to start server")
		return err
	}

	shutdownTimeout := config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
