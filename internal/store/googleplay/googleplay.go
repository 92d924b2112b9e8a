// Package googleplay реализует адаптер магазина поверх Google Play
// Developer API: проверка покупок по токену, подтверждение доставки
// и чтение каталога продуктов.
package googleplay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/musiclands/festival-companion/internal/entitlement"
	"github.com/musiclands/festival-companion/internal/lib/sl"
	"github.com/musiclands/festival-companion/internal/models"
	"github.com/musiclands/festival-companion/internal/store"
)

// Состояния покупки, сообщаемые Google Play.
// https://developers.google.com/android-publisher/api-ref/rest/v3/purchases.products
const (
	purchaseStatePurchased = 0
	purchaseStateCanceled  = 1
	purchaseStatePending   = 2
)

// Config настройки подключения к Google Play Developer API.
type Config struct {
	PackageName        string `yaml:"package_name"`
	ServiceAccountJSON string `yaml:"service_account_json"`
}

// Adapter адаптер магазина Google Play.
type Adapter struct {
	cfg Config
	log *slog.Logger

	mu           sync.Mutex
	svc          *androidpublisher.Service
	initialized  bool
	availability store.Availability
}

// New создает адаптер Google Play. Подключение не открывается
// до вызова Initialize.
func New(cfg Config, log *slog.Logger) *Adapter {
	cfg.PackageName = strings.TrimSpace(cfg.PackageName)
	return &Adapter{cfg: cfg, log: log}
}

// Initialize идемпотентно открывает подключение к Google Play Developer API.
// Отсутствие учетных данных или недоступность API трактуются как
// недоступность подсистемы покупок, а не как ошибка.
func (a *Adapter) Initialize(ctx context.Context) (store.Availability, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return a.availability, nil
	}
	// Повторные вызовы не выполняют повторную инициализацию
	// независимо от ее результата.
	a.initialized = true

	if a.cfg.PackageName == "" || strings.TrimSpace(a.cfg.ServiceAccountJSON) == "" {
		a.availability = store.Unavailable("google play credentials are not configured")
		return a.availability, nil
	}

	svc, err := androidpublisher.NewService(ctx,
		option.WithCredentialsJSON([]byte(a.cfg.ServiceAccountJSON)),
		option.WithScopes(androidpublisher.AndroidpublisherScope),
	)
	if err != nil {
		a.log.Error("failed to build androidpublisher client", sl.Err(err))
		a.availability = store.Unavailable(fmt.Sprintf("androidpublisher.NewService: %v", err))
		return a.availability, nil
	}

	a.svc = svc
	a.availability = store.Available()
	return a.availability, nil
}

// ListOfferings возвращает офферы каталога, известные Google Play.
// Для продуктов, которые магазин не вернул, подставляются резервные
// цены фиксированного каталога.
func (a *Adapter) ListOfferings(ctx context.Context, ids []string) ([]models.Offering, error) {
	const op = "store.googleplay.ListOfferings"

	svc, err := a.service()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := svc.Inappproducts.List(a.cfg.PackageName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bySku := make(map[string]*androidpublisher.InAppProduct, len(resp.Inappproduct))
	for _, p := range resp.Inappproduct {
		bySku[p.Sku] = p
	}

	var result []models.Offering
	for _, id := range ids {
		entry, known := entitlement.Lookup(id)
		if !known {
			continue
		}
		offering := entry.Offering
		if p, ok := bySku[id]; ok {
			applyProduct(&offering, p)
		}
		result = append(result, offering)
	}
	return result, nil
}

// Purchase проверяет токен покупки у Google Play и возвращает
// нормализованную запись.
func (a *Adapter) Purchase(ctx context.Context, req store.PurchaseRequest) (*models.PurchaseRecord, error) {
	const op = "store.googleplay.Purchase"

	svc, err := a.service()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.OfferingID == "" || strings.TrimSpace(req.PurchaseToken) == "" {
		return nil, &store.PurchaseError{Reason: "offering_id and purchase_token are required"}
	}

	resp, err := svc.Purchases.Products.Get(a.cfg.PackageName, req.OfferingID, req.PurchaseToken).
		Context(ctx).
		Do()
	if err != nil {
		return nil, &store.PurchaseError{Reason: fmt.Sprintf("google products.get: %v", err)}
	}

	return recordFromProduct(req.OfferingID, req.PurchaseToken, resp)
}

// RestorePurchases проверяет все переданные токены и возвращает записи
// независимо от срока действия. Отмененные платформой покупки
// пропускаются; отказ API прерывает восстановление целиком.
func (a *Adapter) RestorePurchases(ctx context.Context, tokens []models.PurchaseToken) ([]*models.PurchaseRecord, error) {
	svc, err := a.service()
	if err != nil {
		return nil, &store.RestoreError{Reason: err.Error()}
	}

	var result []*models.PurchaseRecord
	for _, token := range tokens {
		resp, err := svc.Purchases.Products.Get(a.cfg.PackageName, token.OfferingID, token.Token).
			Context(ctx).
			Do()
		if err != nil {
			return nil, &store.RestoreError{Reason: fmt.Sprintf("google products.get: %v", err)}
		}
		rec, err := recordFromProduct(token.OfferingID, token.Token, resp)
		if err != nil {
			// Отмененные и незавершенные покупки не входят в историю.
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

// Finalize подтверждает Google Play доставку покупки. Уже подтвержденные
// транзакции пропускаются, поэтому повторный вызов безвреден.
func (a *Adapter) Finalize(ctx context.Context, rec *models.PurchaseRecord) error {
	const op = "store.googleplay.Finalize"

	svc, err := a.service()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := svc.Purchases.Products.Get(a.cfg.PackageName, rec.OfferingID, rec.PurchaseToken).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.AcknowledgementState == 1 {
		return nil // уже подтверждена
	}

	ackReq := &androidpublisher.ProductPurchasesAcknowledgeRequest{}
	err = svc.Purchases.Products.Acknowledge(a.cfg.PackageName, rec.OfferingID, rec.PurchaseToken, ackReq).
		Context(ctx).
		Do()
	if err != nil {
		// Гонка с параллельным подтверждением: платформа уже приняла доставку.
		if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 400 {
			a.log.Warn("acknowledge raced with another finalize",
				slog.String("transaction_id", rec.TransactionID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Teardown освобождает клиент API.
func (a *Adapter) Teardown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.svc = nil
	return nil
}

func (a *Adapter) service() (*androidpublisher.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.svc == nil {
		return nil, store.ErrStoreUnavailable
	}
	return a.svc, nil
}

// recordFromProduct нормализует ответ Google Play в запись о покупке.
// Состояние "canceled" транслируется в ErrUserCancelled, "pending" —
// в PurchaseError: обе ситуации не дают владения продуктом.
func recordFromProduct(offeringID, token string, resp *androidpublisher.ProductPurchase) (*models.PurchaseRecord, error) {
	switch resp.PurchaseState {
	case purchaseStatePurchased:
	case purchaseStateCanceled:
		return nil, store.ErrUserCancelled
	case purchaseStatePending:
		return nil, &store.PurchaseError{Reason: "payment is pending"}
	default:
		return nil, &store.PurchaseError{Reason: fmt.Sprintf("unknown purchase state %d", resp.PurchaseState)}
	}

	transactionID := resp.OrderId
	if transactionID == "" {
		transactionID = token
	}

	var purchasedAt time.Time
	if resp.PurchaseTimeMillis > 0 {
		purchasedAt = time.UnixMilli(resp.PurchaseTimeMillis).UTC()
	}

	raw, _ := json.Marshal(resp)

	return &models.PurchaseRecord{
		OfferingID:    offeringID,
		TransactionID: transactionID,
		PurchasedAt:   purchasedAt,
		PurchaseToken: token,
		Receipt:       string(raw),
		Platform:      models.PlatformGoogle,
	}, nil
}

// applyProduct переносит в оффер данные продукта из Google Play:
// заголовок и описание из списка локализаций по умолчанию и цену
// по умолчанию в формате "1.23 USD".
func applyProduct(offering *models.Offering, p *androidpublisher.InAppProduct) {
	if listing, ok := p.Listings[p.DefaultLanguage]; ok {
		if listing.Title != "" {
			offering.Title = listing.Title
		}
		if listing.Description != "" {
			offering.Description = listing.Description
		}
	}
	if p.DefaultPrice != nil && p.DefaultPrice.PriceMicros != "" {
		micros, err := strconv.ParseInt(p.DefaultPrice.PriceMicros, 10, 64)
		if err == nil {
			offering.Price = fmt.Sprintf("%.2f %s", float64(micros)/1e6, p.DefaultPrice.Currency)
			offering.CurrencyCode = p.DefaultPrice.Currency
		}
	}
}
