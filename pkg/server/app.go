package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BarFlow/internal/domain/repository"
	"BarFlow/internal/usecase"
	"BarFlow/pkg/cache"
	pkgch "BarFlow/pkg/clickhouse"
	"BarFlow/pkg/config"
	xhttp "BarFlow/pkg/http"
	pkgkafka "BarFlow/pkg/kafka"
	applogger "BarFlow/pkg/logger"
	pkgpg "BarFlow/pkg/postgres"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	client   *usecase.StreamClient
	consumer *pkgkafka.Consumer
	kh       *usecase.KafkaEventsHandler
	handler  xhttp.Handler
	pgClient *pkgpg.Client
	chClient *pkgch.Client
	archive  repository.TickArchive
	pub      repository.EventPublisher
	cacheSvc cache.Service

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	client *usecase.StreamClient,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaEventsHandler,
	handler xhttp.Handler,
	pgClient *pkgpg.Client,
	chClient *pkgch.Client,
	archive repository.TickArchive,
	pub repository.EventPublisher,
	cacheSvc cache.Service,
) *App {
	return &App{
		cfg:      cfg,
		logger:   l,
		client:   client,
		consumer: consumer,
		kh:       kh,
		handler:  handler,
		pgClient: pgClient,
		chClient: chClient,
		archive:  archive,
		pub:      pub,
		cacheSvc: cacheSvc,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		serverOpts = append(serverOpts, xhttp.WithRequestMetrics(l, 500*time.Millisecond))
	}
	a.httpServer = xhttp.NewServer(a.handler, serverOpts...)

	// Start the feed. Subscriptions arrive later through the API; the
	// listener is registered before the first frame can be read.
	if err := a.client.Start(ctx); err != nil {
		l.Error("feed start error", applogger.Error(err))
		return err
	}
	l.Info("feed started", applogger.String("url", a.cfg.Feed.WebSocketURL))

	// Start replay consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops services in reverse start order, then closes
// infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.client.Stop(shutdownCtx); err != nil {
		l.Warn("feed stop error", applogger.Error(err))
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			l.Warn("tick archive close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}
	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
