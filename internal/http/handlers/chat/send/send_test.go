package send

import (
	"context"
	"errors"
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
	"github.com/musiclands/festival-companion/internal/services/chat"
)

// MockService реализует интерфейс send.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Send(ctx context.Context, userUID, message string) (*models.ChatMessage, error) {
	args := m.Called(ctx, userUID, message)
	if res := args.Get(0); res != nil {
		return res.(*models.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSendHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешный ответ ассистента",
			body:    `{"message": "When does the main stage open?"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				msg := &models.ChatMessage{
					ID:        "e9a1c2d4-0000-0000-0000-000000000001",
					UserUID:   "user-123",
					Message:   "When does the main stage open?",
					Response:  "The main stage opens at noon.",
					CreatedAt: time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC),
				}
				m.On("Send", mock.Anything, "user-123", "When does the main stage open?").
					Return(msg, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"response":"The main stage opens at noon."`,
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
			name:           "пустое сообщение",
			body:           `{"message": ""}`,
			userUID:        "user-123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Message is a required field`,
		},
		{
			name:           "пользователь не идентифицирован",
			body:           `{"message": "hello"}`,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"user identification missing"`,
		},
		{
			name:    "ассистент не сконфигурирован",
			body:    `{"message": "hello"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				m.On("Send", mock.Anything, "user-123", "hello").
					Return(nil, chat.ErrUnavailable)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"chat service is not available"`,
		},
		{
			name:    "ошибка сервиса",
			body:    `{"message": "hello"}`,
			userUID: "user-123",
			setupMock: func(m *MockService) {
				m.On("Send", mock.Anything, "user-123", "hello").
					Return(nil, errors.New("llm error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"could not get assistant response"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
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
