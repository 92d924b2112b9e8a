package rabbitmq

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musiclands/festival-companion/internal/models"
)

func TestPublishReceipt(t *testing.T) {
	if os.Getenv("SKIP_RABBITMQ_TESTS") == SkipRabbitMQTestsEnv {
		t.Skip("Skipping RabbitMQ tests in CI")
	}

	ctx := context.Background()
	rmqContainer, cleanup := SetupRabbitMQContainer(ctx, t)
	defer cleanup()

	amqpURI, err := GetAmqpURI(ctx, rmqContainer)
	require.NoError(t, err)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	ch, err := SetupChannel(conn, GetReceiptQueues())
	require.NoError(t, err)
	defer func() {
		if err := ch.Close(); err != nil {
			t.Errorf("failed to close channel: %v", err)
		}
	}()

	t.Run("квитанция доходит до очереди почтового воркера", func(t *testing.T) {
		receipt := models.ReceiptInfo{
			UserUID:       "user-1",
			OfferingID:    "day_pass",
			TransactionID: "GPA.1234",
			PurchasedAt:   time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC),
			ExpiresAt:     time.Date(2025, 7, 5, 12, 0, 0, 0, time.UTC),
		}

		publisher := NewReceiptPublisher(ch)
		require.NoError(t, publisher.PublishReceipt(ctx, receipt))

		deliveries, err := ch.Consume(QueueReceiptsEmail, "test-consumer", true, false, false, false, nil)
		require.NoError(t, err)

		select {
		case d := <-deliveries:
			var got models.ReceiptInfo
			require.NoError(t, json.Unmarshal(d.Body, &got))
			assert.Equal(t, receipt, got)
			assert.Equal(t, "application/json", d.ContentType)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		// В json marshal нельзя сериализовать канал
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := PublishMessage(ch, "", QueueReceiptsEmail, badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})
}
