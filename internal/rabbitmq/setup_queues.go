package rabbitmq

// Топология обменника квитанций.
const (
	ExchangeReceipts    = "receipts"
	QueueReceiptsEmail  = "receipts.email"
	RoutingKeyPurchased = "purchased"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetReceiptQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueReceiptsEmail, RoutingKey: RoutingKeyPurchased},
		// при необходимости дополнительные очереди для других воркеров
	}
}
