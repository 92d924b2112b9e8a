package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/musiclands/festival-companion/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReceiptPublisher публикует квитанции о покупках в обменник квитанций.
type ReceiptPublisher struct {
	ch *amqp.Channel
}

// NewReceiptPublisher создает нового издателя квитанций.
func NewReceiptPublisher(ch *amqp.Channel) *ReceiptPublisher {
	return &ReceiptPublisher{ch: ch}
}

// PublishReceipt публикует квитанцию о подтвержденной покупке.
func (p *ReceiptPublisher) PublishReceipt(_ context.Context, receipt models.ReceiptInfo) error {
	return PublishMessage(p.ch, ExchangeReceipts, RoutingKeyPurchased, receipt)
}
