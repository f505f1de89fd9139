package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/handlers"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/notify"
	"github.com/ukydev/fleet-maintenance/internal/pep"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
	"github.com/ukydev/fleet-maintenance/internal/server"
	"golang.org/x/sync/errgroup"
)

// app holds the wired services of one server process.
type app struct {
	store      db.Backend
	engine     *reminders.Engine
	forms      *pep.FormService
	metrics    *metrics.Metrics
	handler    http.Handler
	dispatcher *notify.Dispatcher
	notifier   notify.Notifier
}

func configureLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func newNotifier(cfg config.MQTTConfig, logger log.FieldLogger) (notify.Notifier, error) {
	if cfg.Broker == "" {
		logger.Info("MQTT_BROKER not set, notifications go to the log")
		return notify.LogNotifier{Log: logger}, nil
	}
	return notify.NewMQTTNotifier(cfg)
}

// newApp wires storage, services and the HTTP API. notifier may be nil to
// derive one from cfg.
func newApp(cfg *config.Config, notifier notify.Notifier) (*app, error) {
	logger := log.StandardLogger()

	store, err := db.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}

	catalog, err := pep.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		store.Close(context.Background())
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}

	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		store.Close(context.Background())
		return nil, err
	}

	if notifier == nil {
		notifier, err = newNotifier(cfg.MQTT, logger)
		if err != nil {
			store.Close(context.Background())
			return nil, err
		}
	}

	m := metrics.New()
	engine := reminders.NewEngine(store, reminders.WithLogger(logger), reminders.WithMetrics(m))
	forms := pep.NewFormService(store, engine,
		pep.WithCatalog(catalog),
		pep.WithFormLogger(logger),
		pep.WithFormMetrics(m),
	)

	handler := handlers.NewRouter(handlers.RouterConfig{
		Reminders:   handlers.NewReminderHandler(engine, nil),
		Forms:       handlers.NewFormHandler(forms, nil),
		Schedule:    handlers.NewScheduleHandler(nil),
		Auth:        middleware.NewAuthMiddleware(authService),
		RateLimiter: middleware.NewRateLimitMiddleware(cfg.RateLimit.TrustProxy),
		RateLimit:   cfg.RateLimit,
		Metrics:     m.Handler(),
		Logger:      logger,
	})

	return &app{
		store:      store,
		engine:     engine,
		forms:      forms,
		metrics:    m,
		handler:    handler,
		notifier:   notifier,
		dispatcher: notify.NewDispatcher(engine, notifier, nil, logger, m),
	}, nil
}

func (a *app) Close() {
	a.notifier.Close()
	if err := a.store.Close(context.Background()); err != nil {
		log.WithError(err).Warn("Failed to close store")
	}
}

// run serves the API and dispatches notifications until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	log.WithFields(log.Fields{
		"store":           cfg.Store.Type,
		"notify_interval": cfg.NotifyInterval.String(),
		"catalogue":       a.forms.Catalog().Components(),
	}).Info("Fleet maintenance service ready")

	srv := server.New(":"+cfg.Port, a.handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return a.dispatcher.Run(gctx, cfg.NotifyInterval) })
	return g.Wait()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
	log.Info("Server stopped")
}
