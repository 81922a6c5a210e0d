package app

import (
	"context"
	"fmt"
	"log/slog"

	"MentionScanner/internal/alert"
	"MentionScanner/internal/config"
	"MentionScanner/internal/infrastructure/email"
	"MentionScanner/internal/infrastructure/feed"
	"MentionScanner/internal/infrastructure/scheduler"
	"MentionScanner/internal/infrastructure/storage"
	"MentionScanner/internal/infrastructure/telegram"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
	"MentionScanner/internal/server"
	"MentionScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.MentionStore
	server    *server.Server
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance: store, feed source, alert
// channels, pipeline, read service and HTTP surface.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open mention store: %w", err)
	}

	source := feed.NewSource(nil, baseLogger.With("component", "feed"))

	dispatcher := alert.NewDispatcher(
		baseLogger.With("component", "alerts"),
		email.NewSender(cfg.Notifications.Email),
		telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID),
	)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Store:    store,
		Alerts:   dispatcher,
		Feeds:    cfg.Feeds,
		Keywords: cfg.Keywords,
		Urgent:   cfg.Urgent,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	reader := usecase.NewReader(store, cfg.Mentions.DefaultLimit)

	app := &Application{
		cfg:    cfg,
		logger: baseLogger,
		store:  store,
		server: server.New(pipeline, reader, baseLogger.With("component", "http")),
	}

	if interval := cfg.Scheduler.Duration(); interval > 0 {
		driver := scheduler.NewIntervalScheduler(interval)
		app.scheduler = usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler"))
	}

	return app, nil
}

// Run starts the optional interval scheduler and serves HTTP until ctx is
// cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing store", "error", err)
		}
	}()

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() { _ = a.scheduler.Stop(context.Background()) }()
	}

	a.logger.Info("listening", "addr", a.cfg.Server.Addr)
	return a.server.Serve(ctx, a.cfg.Server.Addr)
}
