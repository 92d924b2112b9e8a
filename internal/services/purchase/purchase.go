// Package purchase содержит бизнес-логику сверки покупок: выбор адаптера
// магазина, деградированный режим, вывод прав доступа из записей о покупках
// и асинхронное подтверждение доставки.
package purchase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/musiclands/festival-companion/internal/entitlement"
	"github.com/musiclands/festival-companion/internal/lib/sl"
	"github.com/musiclands/festival-companion/internal/models"
	"github.com/musiclands/festival-companion/internal/store"
)

const (
	offeringsCacheKey = "offerings:all"
	offeringsCacheTTL = time.Hour

	finalizeQueueSize = 128
)

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// ReceiptPublisher публикует квитанции о завершенных покупках.
type ReceiptPublisher interface {
	PublishReceipt(ctx context.Context, receipt models.ReceiptInfo) error
}

// Service реализует сверку покупок поверх адаптера магазина.
// Записи о покупках живут только в памяти процесса и выводятся заново
// из ответов магазина, локально они никуда не сохраняются.
type Service struct {
	log       *slog.Logger
	adapter   store.Adapter
	fallback  store.Adapter
	cache     Cache
	publisher ReceiptPublisher
	now       func() time.Time

	mu       sync.Mutex
	records  map[string][]*models.PurchaseRecord
	seen     map[string]struct{}
	degraded bool
	started  bool

	observed  chan store.PurchaseObserved
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New создает сервис сверки покупок. adapter — платформенный адаптер,
// fallback — деградированный, на который сервис переключается, если
// платформа сообщает о недоступности подсистемы покупок.
func New(log *slog.Logger, adapter, fallback store.Adapter, cache Cache, publisher ReceiptPublisher) *Service {
	return &Service{
		log:       log,
		adapter:   adapter,
		fallback:  fallback,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
		records:   make(map[string][]*models.PurchaseRecord),
		seen:      make(map[string]struct{}),
		observed:  make(chan store.PurchaseObserved, finalizeQueueSize),
		done:      make(chan struct{}),
	}
}

// Init инициализирует адаптер магазина и запускает обработчик
// подтверждений. Если платформа недоступна, сервис переключается на
// деградированный адаптер и продолжает работать.
func (s *Service) Init(ctx context.Context) error {
	availability, err := s.adapter.Initialize(ctx)
	if err != nil {
		return err
	}

	if !availability.Available {
		s.log.Warn("store is unavailable, switching to degraded mode",
			slog.String("reason", availability.Reason))
		if _, err := s.fallback.Initialize(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.adapter = s.fallback
		s.degraded = true
		s.mu.Unlock()
	}

	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.consumeObserved()
	})
	return nil
}

// IsDegraded сообщает, работает ли сервис на синтетическом адаптере.
func (s *Service) IsDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Offerings возвращает каталог офферов, используя кеш или магазин.
func (s *Service) Offerings(ctx context.Context) ([]models.Offering, error) {
	var cached []models.Offering
	found, err := s.cache.Get(offeringsCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read offerings from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	offerings, err := s.currentAdapter().ListOfferings(ctx, entitlement.OfferingIDs())
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(offeringsCacheKey, offerings, offeringsCacheTTL); err != nil {
		s.log.Warn("failed to cache offerings", sl.Err(err))
	}
	return offerings, nil
}

// Purchase проводит покупку через адаптер магазина, запоминает запись
// в сессии пользователя и ставит ее в очередь на подтверждение доставки.
// Ошибки адаптера возвращаются без изменений: отмену, отказ платежа и
// недоступность магазина различает транспортный слой.
func (s *Service) Purchase(ctx context.Context, userUID string, req store.PurchaseRequest) (models.EntitlementState, *models.PurchaseRecord, error) {
	rec, err := s.currentAdapter().Purchase(ctx, req)
	if err != nil {
		return models.EntitlementState{}, nil, err
	}

	state, fresh := s.remember(userUID, rec)
	if fresh {
		s.enqueue(store.PurchaseObserved{UserUID: userUID, Record: rec})
	}
	return state, rec, nil
}

// Restore восстанавливает покупки по токенам с устройства, добавляет их
// в сессию пользователя и возвращает пересчитанные права доступа.
func (s *Service) Restore(ctx context.Context, userUID string, tokens []models.PurchaseToken) (models.EntitlementState, []*models.PurchaseRecord, error) {
	records, err := s.currentAdapter().RestorePurchases(ctx, tokens)
	if err != nil {
		return models.EntitlementState{}, nil, err
	}

	var state models.EntitlementState
	for _, rec := range records {
		var fresh bool
		state, fresh = s.remember(userUID, rec)
		if fresh {
			s.enqueue(store.PurchaseObserved{UserUID: userUID, Record: rec})
		}
	}
	if len(records) == 0 {
		state = s.Entitlement(userUID)
	}
	return state, records, nil
}

// Entitlement выводит текущие права доступа пользователя из записей
// о покупках его сессии.
func (s *Service) Entitlement(userUID string) models.EntitlementState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entitlement.Derive(s.records[userUID], s.now())
}

// Shutdown останавливает обработчик подтверждений и освобождает адаптер.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.observed)
	})

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if started {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.currentAdapter().Teardown(ctx)
}

func (s *Service) currentAdapter() store.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter
}

// remember добавляет запись в сессию пользователя и возвращает
// пересчитанные права. Запись попадает в сессию всегда, если сессия еще
// не содержит эту транзакцию: права выводятся из всех известных записей
// пользователя. fresh истинно, если транзакция встречена впервые среди
// всех сессий и ее нужно поставить в очередь на подтверждение.
func (s *Service) remember(userUID string, rec *models.PurchaseRecord) (models.EntitlementState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := false
	for _, existing := range s.records[userUID] {
		if existing.TransactionID == rec.TransactionID {
			held = true
			break
		}
	}
	if !held {
		s.records[userUID] = append(s.records[userUID], rec)
	}

	_, known := s.seen[rec.TransactionID]
	if !known {
		s.seen[rec.TransactionID] = struct{}{}
	}
	return entitlement.Derive(s.records[userUID], s.now()), !known
}

// enqueue ставит событие в буферизованную очередь подтверждений, не
// привязываясь к контексту запроса: подтверждение обязано состояться даже
// если клиент уже отключился. При переполненной очереди отметка seen
// снимается, чтобы повторное наблюдение транзакции поставило ее заново.
func (s *Service) enqueue(ev store.PurchaseObserved) {
	select {
	case s.observed <- ev:
	default:
		s.mu.Lock()
		delete(s.seen, ev.Record.TransactionID)
		s.mu.Unlock()
		s.log.Warn("finalize queue is full, dropped event",
			slog.String("transaction_id", ev.Record.TransactionID))
	}
}

// consumeObserved — единственный потребитель очереди наблюдаемых покупок:
// подтверждает доставку и публикует квитанцию. Работает до закрытия
// канала в Shutdown.
func (s *Service) consumeObserved() {
	defer close(s.done)

	for ev := range s.observed {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

		if err := s.currentAdapter().Finalize(ctx, ev.Record); err != nil {
			s.log.Error("failed to finalize purchase",
				slog.String("transaction_id", ev.Record.TransactionID), sl.Err(err))
			cancel()
			continue
		}

		receipt := s.receiptFor(ev)
		if err := s.publisher.PublishReceipt(ctx, receipt); err != nil {
			s.log.Error("failed to publish receipt",
				slog.String("transaction_id", ev.Record.TransactionID), sl.Err(err))
		}
		cancel()
	}
}

func (s *Service) receiptFor(ev store.PurchaseObserved) models.ReceiptInfo {
	receipt := models.ReceiptInfo{
		UserUID:       ev.UserUID,
		OfferingID:    ev.Record.OfferingID,
		TransactionID: ev.Record.TransactionID,
		PurchasedAt:   ev.Record.PurchasedAt,
		Simulated:     ev.Record.Platform == models.PlatformDegraded,
	}
	if expiresAt, ok := entitlement.Expiration(ev.Record); ok {
		receipt.ExpiresAt = expiresAt
	}
	return receipt
}
