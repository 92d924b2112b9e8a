// Package history реализует HTTP-обработчик чтения истории чата пользователя.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/musiclands/festival-companion/internal/http/middlewarectx"
	"github.com/musiclands/festival-companion/internal/http/response"
	"github.com/musiclands/festival-companion/internal/lib/sl"
	"github.com/musiclands/festival-companion/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения истории чата.
type Service interface {
	History(ctx context.Context, userUID string, limit int) ([]*models.ChatMessage, error)
}

// Handler обрабатывает запросы на чтение истории чата.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary      История чата
// @Description  Возвращает последние сообщения пользователя и ответы ассистента
// @Tags         chat
// @Produce      json
// @Param        X-User-Uid  header  string  true   "Идентификатор пользователя"
// @Param        limit       query   int     false  "Максимум сообщений (по умолчанию 50)"
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /chat/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.history"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	messages, err := h.service.History(r.Context(), userUID, limit)
	if err != nil {
		log.Error("failed to list chat history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list chat history"))
		return
	}

	log.Info("chat history listed", "count", len(messages))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"messages_count": len(messages),
		"messages":       messages,
	}))
}
