package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cacconnect/registrar/internal/api"
	"github.com/cacconnect/registrar/internal/config"
	"github.com/cacconnect/registrar/internal/events"
	"github.com/cacconnect/registrar/internal/extractor"
	"github.com/cacconnect/registrar/internal/notify"
	"github.com/cacconnect/registrar/internal/oracle"
	"github.com/cacconnect/registrar/internal/responder"
	"github.com/cacconnect/registrar/internal/store"
	"github.com/cacconnect/registrar/internal/turn"
	"github.com/cacconnect/registrar/internal/upload"
)

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("registrar starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Oracle client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := oracle.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	slog.Info("oracle client ready", "model", cfg.OpenAIModel)

	// NATS (optional, lifecycle events only)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		var err error
		eventsClient, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without lifecycle events")
	}

	// Slack poster (optional, notifies ops about completed registrations)
	var poster *notify.Poster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		poster = notify.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured — running without completion notices")
	}

	// Database. The process stays up when the store is unreachable; the
	// storage-backed endpoints return 503 until a restart with a working
	// connection.
	var db *store.Store
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set — storage endpoints will return 503")
	} else {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database — storage endpoints will return 503", "error", err)
		} else {
			defer db.Close()
			slog.Info("database connected")
		}
	}

	var turns api.Turner
	var uploads api.Uploader
	if db != nil {
		var pub turn.Publisher
		var upub upload.Publisher
		if eventsClient != nil {
			pub = eventsClient
			upub = eventsClient
		}
		var notifier turn.Notifier
		if poster != nil {
			notifier = poster
		}

		ext := extractor.New(llm, slog.Default())
		resp := responder.New(llm, slog.Default())
		turns = turn.New(db, db, ext, resp, pub, notifier, slog.Default())
		uploads = upload.NewHandler(cfg.UploadDir, db, upub, slog.Default())
	}

	srv := api.NewServer(cfg.Port, cfg.UploadDir, turns, uploads, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("registrar ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("registrar stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
