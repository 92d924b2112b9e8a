// Package receiptsender собирает сервис рассылки квитанций: подключение
// к брокеру, SMTP-транспорт и потребитель очереди квитанций.
package receiptsender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/musiclands/festival-companion/internal/config"
	"github.com/musiclands/festival-companion/internal/lib/smtp"
	"github.com/musiclands/festival-companion/internal/rabbitmq"
	senderservice "github.com/musiclands/festival-companion/internal/services/receiptsender"
)

// App хранит подключение к брокеру и сервис отправки квитанций.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New собирает приложение рассылки квитанций.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitmqConnectionString, 5, 5*time.Second)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReceiptQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.New(logger, newTransport, cfg.SMTP.OpsEmail)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителя очереди квитанций до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueReceiptsEmail, a.senderService.SendReceipt)
	if err != nil {
		a.logger.Error("failed to start receipts consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("receipt sender shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
