// Package entitlement содержит фиксированный каталог офферов фестиваля
// и чистую функцию вычисления состояния доступа из набора покупок.
package entitlement

import "github.com/musiclands/festival-companion/internal/models"

// Идентификаторы офферов фиксированного каталога.
const (
	DayPassID     = "day_pass"
	WeekendPassID = "weekend_pass"
)

// CatalogEntry описывает оффер каталога и длительность предоставляемого
// доступа в днях. Для разовых продуктов магазин не сообщает срок действия,
// поэтому срок всегда выводится локально:
// expiration = PurchasedAt + GrantDays.
type CatalogEntry struct {
	Offering  models.Offering
	GrantDays int
}

var catalog = map[string]CatalogEntry{
	DayPassID: {
		Offering: models.Offering{
			ID:           DayPassID,
			Title:        "Day Pass",
			Description:  "Полный доступ к ассистенту на один день фестиваля",
			Price:        "$4.99",
			CurrencyCode: "USD",
			Kind:         models.OfferingKindOneTime,
		},
		GrantDays: 1,
	},
	WeekendPassID: {
		Offering: models.Offering{
			ID:           WeekendPassID,
			Title:        "Weekend Pass",
			Description:  "Полный доступ к ассистенту на все выходные фестиваля",
			Price:        "$9.99",
			CurrencyCode: "USD",
			Kind:         models.OfferingKindOneTime,
		},
		GrantDays: 3,
	},
}

// Catalog возвращает фиксированный каталог. Цены в нем резервные:
// используются в деградированном режиме и когда магазин не вернул
// соответствующий продукт.
func Catalog() map[string]CatalogEntry {
	return catalog
}

// Lookup возвращает запись каталога по идентификатору оффера.
func Lookup(offeringID string) (CatalogEntry, bool) {
	entry, ok := catalog[offeringID]
	return entry, ok
}

// OfferingIDs возвращает идентификаторы всех офферов каталога
// в стабильном порядке.
func OfferingIDs() []string {
	return []string{DayPassID, WeekendPassID}
}

// FallbackOfferings возвращает офферы каталога с резервными ценами
// в стабильном порядке.
func FallbackOfferings() []models.Offering {
	result := make([]models.Offering, 0, len(catalog))
	for _, id := range OfferingIDs() {
		result = append(result, catalog[id].Offering)
	}
	return result
}
