package entitlement

import (
	"time"

	"github.com/musiclands/festival-companion/internal/models"
)

// Expiration возвращает срок действия доступа по записи о покупке.
// Второй результат false, если запись не дает доступа вовсе:
// неизвестный оффер или отсутствующая метка времени транзакции.
func Expiration(rec *models.PurchaseRecord) (time.Time, bool) {
	if rec == nil || rec.PurchasedAt.IsZero() {
		return time.Time{}, false
	}
	entry, ok := catalog[rec.OfferingID]
	if !ok {
		return time.Time{}, false
	}
	return rec.PurchasedAt.AddDate(0, 0, entry.GrantDays), true
}

// Derive вычисляет состояние доступа из набора записей о покупках
// на момент now. Чистая функция: не обращается к магазину и никогда
// не возвращает ошибку.
//
// Доступ активен, если срок действия хотя бы одной записи строго позже now;
// граница исключающая — при now == expiration доступ уже не активен.
// Записи одного и того же оффера учитываются независимо, поэтому покупки
// суммируются по максимальному сроку.
func Derive(records []*models.PurchaseRecord, now time.Time) models.EntitlementState {
	var best time.Time
	for _, rec := range records {
		expiration, ok := Expiration(rec)
		if !ok {
			continue
		}
		if !expiration.After(now) {
			continue // запись истекла
		}
		if expiration.After(best) {
			best = expiration
		}
	}
	if best.IsZero() {
		return models.EntitlementState{}
	}
	return models.EntitlementState{
		HasActiveEntitlement: true,
		ExpiresAt:            &best,
	}
}
