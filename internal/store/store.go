// Package store определяет единую точку взаимодействия с магазином покупок
// платформы: интерфейс адаптера, типизированный результат проверки
// доступности и таксономию ошибок.
package store

import (
	"context"

	"github.com/musiclands/festival-companion/internal/models"
)

// Availability типизированный результат проверки доступности магазина,
// возвращаемый Initialize. Заменяет управление потоком через разбор текста
// ошибок: вызывающая сторона принимает решение о деградированном режиме
// только по этому значению.
type Availability struct {
	Available bool
	Reason    string // Причина недоступности, пустая при Available
}

// Available возвращает результат "магазин доступен".
func Available() Availability {
	return Availability{Available: true}
}

// Unavailable возвращает результат "магазин недоступен" с причиной.
func Unavailable(reason string) Availability {
	return Availability{Available: false, Reason: reason}
}

// PurchaseRequest запрос на проверку одной покупки: оффер и опаковый токен,
// выданный платформой клиентскому приложению при завершении покупки.
type PurchaseRequest struct {
	OfferingID    string
	PurchaseToken string
}

// Adapter абстрагирует магазин покупок платформы. Все операции могут
// блокироваться на сетевых вызовах к платформе, поэтому принимают контекст;
// собственных таймаутов адаптер не накладывает — ограничение времени
// задает вызывающая сторона через контекст.
type Adapter interface {
	// Initialize идемпотентно готовит подключение к магазину и возвращает
	// результат проверки доступности. Повторные вызовы не выполняют
	// повторную инициализацию.
	Initialize(ctx context.Context) (Availability, error)

	// ListOfferings возвращает подмножество каталога, известное магазину,
	// для переданных идентификаторов офферов.
	ListOfferings(ctx context.Context, ids []string) ([]models.Offering, error)

	// Purchase проверяет одну транзакцию у платформы и возвращает
	// нормализованную запись о покупке. Возвращает ErrUserCancelled,
	// если платформа сообщает об отмене покупки пользователем,
	// и *PurchaseError для остальных отказов платформы.
	Purchase(ctx context.Context, req PurchaseRequest) (*models.PurchaseRecord, error)

	// RestorePurchases проверяет весь набор восстановленных клиентом
	// токенов и возвращает все записи независимо от срока действия:
	// действительность определяет вычислитель доступа, а не адаптер.
	RestorePurchases(ctx context.Context, tokens []models.PurchaseToken) ([]*models.PurchaseRecord, error)

	// Finalize подтверждает платформе доставку транзакции. Повторное
	// подтверждение той же транзакции безвредно.
	Finalize(ctx context.Context, rec *models.PurchaseRecord) error

	// Teardown освобождает подключение. Безопасен при повторных вызовах.
	Teardown(ctx context.Context) error
}

// PurchaseObserved событие о наблюдаемой транзакции. Адаптеры и сервис
// публикуют такие события в канал, единственный потребитель которого
// выполняет Finalize и рассылку квитанций: доставка событий отделена
// от их обработки.
type PurchaseObserved struct {
	UserUID string
	Record  *models.PurchaseRecord
}
