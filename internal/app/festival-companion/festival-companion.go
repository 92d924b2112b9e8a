package festivalcompanion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	openai "github.com/sashabaranov/go-openai"
	"github.com/streadway/amqp"

	"github.com/musiclands/festival-companion/internal/cache"
	"github.com/musiclands/festival-companion/internal/config"
	"github.com/musiclands/festival-companion/internal/migrations"
	"github.com/musiclands/festival-companion/internal/rabbitmq"
	chatservice "github.com/musiclands/festival-companion/internal/services/chat"
	purchaseservice "github.com/musiclands/festival-companion/internal/services/purchase"
	"github.com/musiclands/festival-companion/internal/storage"
	"github.com/musiclands/festival-companion/internal/store"
	"github.com/musiclands/festival-companion/internal/store/appstore"
	"github.com/musiclands/festival-companion/internal/store/degraded"
	"github.com/musiclands/festival-companion/internal/store/googleplay"
)

// App хранит HTTP-сервер и зависимости, закрываемые при остановке.
type App struct {
	server          *http.Server
	logger          *slog.Logger
	db              *storage.Storage
	conn            *amqp.Connection
	ch              *amqp.Channel
	purchaseService *purchaseservice.Service
}

// New собирает приложение: хранилище, кэш, брокер, магазин покупок,
// чат-ассистента и маршруты HTTP.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitmqConnectionString, 5, 5*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReceiptQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewReceiptPublisher(ch)

	var adapter store.Adapter
	switch cfg.Store.Platform {
	case "google":
		adapter = googleplay.New(cfg.Store.Google, logger)
	case "apple":
		adapter = appstore.New(cfg.Store.Apple)
	default:
		adapter = degraded.New(logger)
	}

	purchaseService := purchaseservice.New(logger, adapter, degraded.New(logger), cacheRedis, publisher)
	if err = purchaseService.Init(ctx); err != nil {
		return nil, err
	}

	var completer chatservice.Completer
	if cfg.OpenAI.APIKey != "" {
		completer = openai.NewClient(cfg.OpenAI.APIKey)
	}
	chatService := chatservice.New(logger, completer, db, cfg.OpenAI.Model)

	router := chi.NewRouter()

	checkDB := func() error { return storage.CheckDatabaseReady(db) }
	RegisterRoutes(router, logger, chatService, purchaseService, checkDB)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:          srv,
		logger:          logger,
		db:              db,
		conn:            conn,
		ch:              ch,
		purchaseService: purchaseService,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)

		if shutdownErr := a.purchaseService.Shutdown(timeoutCtx); shutdownErr != nil {
			a.logger.Error("failed to shut down purchase service", slog.Any("err", shutdownErr))
		}
		if chErr := a.ch.Close(); chErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", chErr))
		}
		if connErr := a.conn.Close(); connErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", connErr))
		}
		a.db.DB.Close()
		return err
	}
}
