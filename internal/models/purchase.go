// Package models содержит доменные структуры приложения: офферы магазина
// платформы, записи о покупках и производное состояние доступа,
// а также сообщения чата-ассистента.
package models

import "time"

// Platform указывает магазин покупок платформы.
type Platform string

// Поддерживаемые платформы. PlatformDegraded используется для синтетических
// записей, созданных в деградированном режиме.
const (
	PlatformGoogle   Platform = "google"
	PlatformApple    Platform = "apple"
	PlatformDegraded Platform = "degraded"
)

// OfferingKind вид оффера: разовая покупка или подписка.
type OfferingKind string

const (
	OfferingKindOneTime   OfferingKind = "one_time"
	OfferingKindRecurring OfferingKind = "recurring"
)

// Offering представляет продукт, доступный для покупки в магазине платформы.
// Неизменяем после получения; обновляется только повторным запросом каталога.
type Offering struct {
	ID           string       `json:"id"`            // Стабильный идентификатор продукта
	Title        string       `json:"title"`         // Отображаемое название
	Description  string       `json:"description"`   // Отображаемое описание
	Price        string       `json:"price"`         // Локализованная строка цены
	CurrencyCode string       `json:"currency_code"` // Код валюты
	Kind         OfferingKind `json:"kind"`          // Вид оффера
}

// PurchaseRecord результат завершенной или восстановленной транзакции.
// Создается магазином и никогда не изменяется. Хранится только в памяти
// в рамках сессии: системой учета покупок остается магазин платформы.
type PurchaseRecord struct {
	OfferingID    string    `json:"offering_id"`
	TransactionID string    `json:"transaction_id"` // Уникален в пределах транзакции
	PurchasedAt   time.Time `json:"purchased_at"`
	PurchaseToken string    `json:"-"` // Опаковый токен платформы для подтверждения
	Receipt       string    `json:"-"` // Сырой ответ платформы (опционально)
	Platform      Platform  `json:"platform"`
}

// PurchaseToken пара "оффер + токен", которую клиент передает
// для проверки новой покупки или восстановления прежних.
type PurchaseToken struct {
	OfferingID string `json:"offering_id" validate:"required"`
	Token      string `json:"token" validate:"required"`
}

// EntitlementState производное состояние доступа. Не хранится:
// вычисляется заново из текущего набора PurchaseRecord при каждом запросе.
// ExpiresAt присутствует только при активном доступе и равен максимальному
// сроку действия среди действительных записей.
type EntitlementState struct {
	HasActiveEntitlement bool       `json:"has_active_entitlement"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
}

// ReceiptInfo полезная нагрузка события о подтвержденной покупке,
// публикуемого в очередь уведомлений.
type ReceiptInfo struct {
	UserUID       string    `json:"user_uid"`
	OfferingID    string    `json:"offering_id"`
	TransactionID string    `json:"transaction_id"`
	PurchasedAt   time.Time `json:"purchased_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Simulated     bool      `json:"simulated"` // Покупка создана в деградированном режиме
}
