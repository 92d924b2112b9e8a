// Package appstore реализует адаптер магазина поверх App Store Server API:
// запросы подписываются ключом ES256 из App Store Connect, транзакции
// проверяются по идентификатору, выданному StoreKit на устройстве.
package appstore

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/musiclands/festival-companion/internal/entitlement"
	"github.com/musiclands/festival-companion/internal/models"
	"github.com/musiclands/festival-companion/internal/store"
)

const (
	prodBaseURL    = "https://api.storekit.itunes.apple.com"
	sandboxBaseURL = "https://api.storekit-sandbox.itunes.apple.com"
)

// Config настройки доступа к App Store Server API.
type Config struct {
	IssuerID   string `yaml:"issuer_id"`
	KeyID      string `yaml:"key_id"`
	BundleID   string `yaml:"bundle_id"`
	PrivateKey string `yaml:"private_key"` // PEM с ключом ES256 из App Store Connect
	// Environment выбирает окружение: "sandbox" или "production" (по умолчанию).
	Environment string `yaml:"environment"`
}

// Adapter адаптер магазина App Store.
type Adapter struct {
	cfg Config

	mu           sync.Mutex
	key          *ecdsa.PrivateKey
	initialized  bool
	availability store.Availability

	baseURL    string
	httpClient *http.Client
}

// New создает адаптер App Store. Ключ подписи разбирается в Initialize.
func New(cfg Config) *Adapter {
	baseURL := prodBaseURL
	if strings.EqualFold(strings.TrimSpace(cfg.Environment), "sandbox") {
		baseURL = sandboxBaseURL
	}
	return &Adapter{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Initialize идемпотентно готовит клиент App Store Server API.
// Отсутствующие или невалидные учетные данные означают недоступность
// подсистемы покупок, а не ошибку.
func (a *Adapter) Initialize(_ context.Context) (store.Availability, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return a.availability, nil
	}
	a.initialized = true

	if strings.TrimSpace(a.cfg.IssuerID) == "" ||
		strings.TrimSpace(a.cfg.KeyID) == "" ||
		strings.TrimSpace(a.cfg.PrivateKey) == "" {
		a.availability = store.Unavailable("app store credentials are not configured")
		return a.availability, nil
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(a.cfg.PrivateKey))
	if err != nil {
		a.availability = store.Unavailable(fmt.Sprintf("parse private key: %v", err))
		return a.availability, nil
	}

	a.key = key
	a.availability = store.Available()
	return a.availability, nil
}

// ListOfferings возвращает фиксированный каталог с резервными ценами:
// App Store Server API не отдает метаданные продуктов, локализованные
// цены клиент получает из StoreKit на устройстве.
func (a *Adapter) ListOfferings(_ context.Context, ids []string) ([]models.Offering, error) {
	var result []models.Offering
	for _, id := range ids {
		if entry, ok := entitlement.Lookup(id); ok {
			result = append(result, entry.Offering)
		}
	}
	return result, nil
}

// Purchase проверяет транзакцию у Apple по идентификатору, полученному
// клиентом от StoreKit, и возвращает нормализованную запись.
func (a *Adapter) Purchase(ctx context.Context, req store.PurchaseRequest) (*models.PurchaseRecord, error) {
	if req.OfferingID == "" || strings.TrimSpace(req.PurchaseToken) == "" {
		return nil, &store.PurchaseError{Reason: "offering_id and purchase_token are required"}
	}

	payload, raw, err := a.fetchTransaction(ctx, req.PurchaseToken)
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, &store.PurchaseError{Reason: err.Error()}
	}

	rec, err := recordFromTransaction(payload, raw)
	if err != nil {
		return nil, err
	}
	if rec.OfferingID != req.OfferingID {
		return nil, &store.PurchaseError{
			Reason: fmt.Sprintf("transaction belongs to product %q, not %q", rec.OfferingID, req.OfferingID),
		}
	}
	return rec, nil
}

// RestorePurchases проверяет все переданные идентификаторы транзакций.
// Отозванные покупки пропускаются; отказ API прерывает восстановление.
func (a *Adapter) RestorePurchases(ctx context.Context, tokens []models.PurchaseToken) ([]*models.PurchaseRecord, error) {
	var result []*models.PurchaseRecord
	for _, token := range tokens {
		payload, raw, err := a.fetchTransaction(ctx, token.Token)
		if err != nil {
			return nil, &store.RestoreError{Reason: err.Error()}
		}
		rec, err := recordFromTransaction(payload, raw)
		if err != nil {
			continue // отозванная покупка не входит в историю
		}
		result = append(result, rec)
	}
	return result, nil
}

// Finalize не делает ничего: App Store Server API не требует
// подтверждения доставки, завершение транзакции выполняет StoreKit
// на устройстве.
func (a *Adapter) Finalize(_ context.Context, _ *models.PurchaseRecord) error {
	return nil
}

// Teardown освобождает ключ подписи.
func (a *Adapter) Teardown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = nil
	return nil
}

// transactionPayload полезная нагрузка signedTransactionInfo.
type transactionPayload struct {
	TransactionID        string `json:"transactionId"`
	OriginalTransacionID string `json:"originalTransactionId"`
	ProductID            string `json:"productId"`
	BundleID             string `json:"bundleId"`
	PurchaseDate         int64  `json:"purchaseDate"` // миллисекунды Unix
	RevocationDate       int64  `json:"revocationDate,omitempty"`
	Quantity             int64  `json:"quantity"`
}

type transactionInfoResponse struct {
	SignedTransactionInfo string `json:"signedTransactionInfo"`
}

// fetchTransaction запрашивает у Apple информацию о транзакции и
// возвращает раскодированную полезную нагрузку вместе с сырым JWS.
func (a *Adapter) fetchTransaction(ctx context.Context, transactionID string) (*transactionPayload, string, error) {
	token, err := a.requestToken()
	if err != nil {
		return nil, "", err
	}

	url := a.baseURL + "/inApps/v1/transactions/" + transactionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("apple transactions.get: unexpected status %s", resp.Status)
	}

	var info transactionInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	payload, err := decodeJWSPayload(info.SignedTransactionInfo)
	if err != nil {
		return nil, "", err
	}
	return payload, info.SignedTransactionInfo, nil
}

// requestToken выпускает короткоживущий JWT ES256 для авторизации
// запроса к App Store Server API.
func (a *Adapter) requestToken() (string, error) {
	a.mu.Lock()
	key := a.key
	a.mu.Unlock()
	if key == nil {
		return "", store.ErrStoreUnavailable
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": a.cfg.IssuerID,
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "appstoreconnect-v1",
		"bid": a.cfg.BundleID,
	})
	token.Header["kid"] = a.cfg.KeyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign request token: %w", err)
	}
	return signed, nil
}

// decodeJWSPayload раскодирует среднюю часть JWS. Ответ получен напрямую
// от Apple по TLS, цепочка x5c повторно не проверяется.
func decodeJWSPayload(signed string) (*transactionPayload, error) {
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed signed transaction")
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode transaction payload: %w", err)
	}
	var payload transactionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal transaction payload: %w", err)
	}
	return &payload, nil
}

// recordFromTransaction нормализует транзакцию Apple в запись о покупке.
// Отзыв покупки (возврат средств) транслируется в ErrUserCancelled.
func recordFromTransaction(payload *transactionPayload, raw string) (*models.PurchaseRecord, error) {
	if payload.RevocationDate > 0 {
		return nil, store.ErrUserCancelled
	}

	var purchasedAt time.Time
	if payload.PurchaseDate > 0 {
		purchasedAt = time.UnixMilli(payload.PurchaseDate).UTC()
	}

	return &models.PurchaseRecord{
		OfferingID:    payload.ProductID,
		TransactionID: payload.TransactionID,
		PurchasedAt:   purchasedAt,
		PurchaseToken: payload.TransactionID,
		Receipt:       raw,
		Platform:      models.PlatformApple,
	}, nil
}
