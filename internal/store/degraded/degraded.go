// Package degraded реализует адаптер магазина для окружений без подсистемы
// покупок. Вместо обращения к платформе адаптер детерминированно
// синтезирует результаты: каталог с резервными ценами, покупки с локально
// сгенерированными идентификаторами транзакций и пустую историю
// восстановления. Операции никогда не завершаются ошибкой.
package degraded

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/musiclands/festival-companion/internal/entitlement"
	"github.com/musiclands/festival-companion/internal/models"
	"github.com/musiclands/festival-companion/internal/store"
)

// Adapter синтетический адаптер магазина.
type Adapter struct {
	log *slog.Logger
	now func() time.Time
}

// New создает новый деградированный адаптер.
func New(log *slog.Logger) *Adapter {
	return &Adapter{
		log: log,
		now: time.Now,
	}
}

// Initialize всегда сообщает о доступности: синтетическому магазину
// нечего инициализировать.
func (a *Adapter) Initialize(_ context.Context) (store.Availability, error) {
	return store.Available(), nil
}

// ListOfferings возвращает фиксированный каталог с резервными ценами
// для запрошенных идентификаторов.
func (a *Adapter) ListOfferings(_ context.Context, ids []string) ([]models.Offering, error) {
	var result []models.Offering
	for _, id := range ids {
		if entry, ok := entitlement.Lookup(id); ok {
			result = append(result, entry.Offering)
		}
	}
	return result, nil
}

// Purchase синтезирует успешную покупку с локальным идентификатором
// транзакции и текущим временем.
func (a *Adapter) Purchase(_ context.Context, req store.PurchaseRequest) (*models.PurchaseRecord, error) {
	rec := &models.PurchaseRecord{
		OfferingID:    req.OfferingID,
		TransactionID: "degraded-" + uuid.New().String(),
		PurchasedAt:   a.now().UTC(),
		Platform:      models.PlatformDegraded,
	}
	a.log.Info("synthesized purchase in degraded mode",
		slog.String("offering_id", rec.OfferingID),
		slog.String("transaction_id", rec.TransactionID))
	return rec, nil
}

// RestorePurchases возвращает пустую историю: синтетические покупки
// нигде не хранятся.
func (a *Adapter) RestorePurchases(_ context.Context, _ []models.PurchaseToken) ([]*models.PurchaseRecord, error) {
	return nil, nil
}

// Finalize не делает ничего: подтверждать доставку некому.
func (a *Adapter) Finalize(_ context.Context, _ *models.PurchaseRecord) error {
	return nil
}

// Teardown не делает ничего: реального подключения нет.
func (a *Adapter) Teardown(_ context.Context) error {
	return nil
}
