package create

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/musiclands/festival-companion/internal/http/middlewarectx"
	"github.com/musiclands/festival-companion/internal/models"
	"github.com/musiclands/festival-companion/internal/store"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Purchase(ctx context.Context, userUID string, req store.PurchaseRequest) (models.EntitlementState, *models.PurchaseRecord, error) {
	args := m.Called(ctx, userUID, req)
	var rec *models.PurchaseRecord
	if res := args.Get(1); res != nil {
		rec = res.(*models.PurchaseRecord)
	}
	return args.Get(0).(models.EntitlementState), rec, args.Error(2)
}

func (m *MockService) Entitlement(userUID string) models.EntitlementState {
	args := m.Called(userUID)
	return args.Get(0).(models.EntitlementState)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	purchasedAt := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	expiresAt := purchasedAt.AddDate(0, 0, 1)

	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешная покупка",
			body:    `{"offering_id": "day_pass", "purchase_token": "token-1"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				state := models.EntitlementState{HasActiveEntitlement: true, ExpiresAt: &expiresAt}
				rec := &models.PurchaseRecord{
					OfferingID:    "day_pass",
					TransactionID: "txn-1",
					PurchasedAt:   purchasedAt,
					Platform:      models.PlatformGoogle,
				}
				m.On("Purchase", mock.Anything, "user-123",
					store.PurchaseRequest{OfferingID: "day_pass", PurchaseToken: "token-1"}).
					Return(state, rec, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"has_active_entitlement":true`,
		},
		{
			name:           "некорректное тело запроса",
			body:           `{invalid`,
			userUID:        "user-123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid request body"`,
		},
		{
			name:           "отсутствует токен покупки",
			body:           `{"offering_id": "day_pass"}`,
			userUID:        "user-123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PurchaseToken is a required field`,
		},
		{
			name:           "пользователь не идентифицирован",
			body:           `{"offering_id": "day_pass", "purchase_token": "token-1"}`,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"user identification missing"`,
		},
		{
			name:    "отмена покупки пользователем не считается ошибкой",
			body:    `{"offering_id": "day_pass", "purchase_token": "token-2"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				m.On("Purchase", mock.Anything, "user-123",
					store.PurchaseRequest{OfferingID: "day_pass", PurchaseToken: "token-2"}).
					Return(models.EntitlementState{}, nil, store.ErrUserCancelled)
				m.On("Entitlement", "user-123").Return(models.EntitlementState{})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"has_active_entitlement":false`,
		},
		{
			name:    "отказ платформы доводится общим текстом",
			body:    `{"offering_id": "day_pass", "purchase_token": "token-3"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				m.On("Purchase", mock.Anything, "user-123",
					store.PurchaseRequest{OfferingID: "day_pass", PurchaseToken: "token-3"}).
					Return(models.EntitlementState{}, nil, &store.PurchaseError{Reason: "token rejected"})
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"purchase could not be completed, please try again"`,
		},
		{
			name:    "магазин недоступен",
			body:    `{"offering_id": "day_pass", "purchase_token": "token-4"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				m.On("Purchase", mock.Anything, "user-123",
					store.PurchaseRequest{OfferingID: "day_pass", PurchaseToken: "token-4"}).
					Return(models.EntitlementState{}, nil, store.ErrStoreUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"purchases are unavailable right now"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/purchases", strings.NewReader(tt.body))
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
