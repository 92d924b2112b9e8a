// Package chat содержит бизнес-логику чата-ассистента: обращение к LLM,
// присвоение идентификаторов сообщениям и хранение истории переписки.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/musiclands/festival-companion/internal/lib/sl"
	"github.com/musiclands/festival-companion/internal/models"
)

// ErrUnavailable возвращается, когда LLM не сконфигурирована.
var ErrUnavailable = errors.New("chat service is unavailable")

const systemPrompt = `You are a knowledgeable music assistant for Musiclands AI.
You help users with music recommendations, song analysis, artist information,
playlist creation, and festival-related questions. Always be helpful, enthusiastic
about music, and provide specific, actionable advice when possible.`

// Completer описывает клиент LLM. Реализуется *openai.Client.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// MessageRepository определяет методы для работы с историей чата в хранилище.
type MessageRepository interface {
	// SaveMessage сохраняет пару "вопрос-ответ".
	SaveMessage(ctx context.Context, msg models.ChatMessage) error
	// ListMessages возвращает последние сообщения пользователя.
	ListMessages(ctx context.Context, userUID string, limit int) ([]*models.ChatMessage, error)
}

// Service реализует чат-ассистента поверх LLM.
type Service struct {
	log    *slog.Logger
	client Completer
	repo   MessageRepository
	model  string
	now    func() time.Time
}

// New создает сервис чата. client может быть nil, если ключ API
// не задан: в этом случае сервис сообщает о недоступности.
func New(log *slog.Logger, client Completer, repo MessageRepository, model string) *Service {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Service{
		log:    log,
		client: client,
		repo:   repo,
		model:  model,
		now:    time.Now,
	}
}

// Available сообщает, сконфигурирована ли LLM.
func (s *Service) Available() bool {
	return s.client != nil
}

// Send отправляет сообщение пользователя ассистенту и сохраняет пару
// "вопрос-ответ" в истории. Сбой хранилища не прерывает ответ.
func (s *Service) Send(ctx context.Context, userUID, message string) (*models.ChatMessage, error) {
	const op = "services.chat.Send"

	if !s.Available() {
		return nil, ErrUnavailable
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%s: message is empty", op)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		MaxTokens:   800,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: completion returned no choices", op)
	}

	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		UserUID:   userUID,
		Message:   message,
		Response:  resp.Choices[0].Message.Content,
		CreatedAt: s.now(),
	}

	if s.repo != nil {
		if err := s.repo.SaveMessage(ctx, msg); err != nil {
			s.log.Warn("failed to save chat message",
				slog.String("message_id", msg.ID), sl.Err(err))
		}
	}
	return &msg, nil
}

// History возвращает последние сообщения пользователя из хранилища.
func (s *Service) History(ctx context.Context, userUID string, limit int) ([]*models.ChatMessage, error) {
	const op = "services.chat.History"

	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := s.repo.ListMessages(ctx, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return messages, nil
}
