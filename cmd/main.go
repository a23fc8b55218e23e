// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/event-participation/internal/auth"
	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/database"
	"github.com/Shivanand-hulikatti/event-participation/internal/handler"
	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/notify"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/Shivanand-hulikatti/event-participation/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("connected to PostgreSQL", "host", cfg.Database.Host, "database", cfg.Database.Name)

	// ── 2. Notification sinks ─────────────────────────────────────────────
	var (
		broadcaster notify.Broadcaster
		sinks       []notify.Sink
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, broadcasts will fail until it recovers", "error", err)
		}
		rb := notify.NewRedisBroadcaster(client, cfg.Redis.ChannelPrefix)
		broadcaster = rb
		sinks = append(sinks, rb)
	}
	var queue *notify.QueuePublisher
	if cfg.AMQP.URL != "" {
		queue = notify.NewQueuePublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		sinks = append(sinks, queue)
	}
	if cfg.SendGrid.APIKey != "" {
		sinks = append(sinks, notify.NewEmailSink(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName))
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout, broadcaster, sinks...)
	logger.Info("notifications configured", "sinks", len(sinks), "broadcast", broadcaster != nil)

	// ── 3. Wire up layers ────────────────────────────────────────────────
	subjectRepo := repository.NewSubjectRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	certRepo := repository.NewCertificateRepository(pool)
	files := repository.NewFileStore(pool)

	router := handler.NewRouter(handler.Deps{
		Registrations:  service.NewRegistrationService(subjectRepo, eventRepo, regRepo, dispatcher),
		Events:         service.NewEventService(eventRepo),
		Certificates:   service.NewCertificateService(subjectRepo, eventRepo, certRepo, files, dispatcher),
		Verifier:       auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.AdminRole),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending notifications abandoned", "error", err)
	}
	if queue != nil {
		if err := queue.Close(); err != nil {
			logger.Warn("closing notification queue", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("flushing traces", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
