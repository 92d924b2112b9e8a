// Package send реализует HTTP-обработчик отправки сообщения чат-ассистенту.
//
// Handler валидирует тело запроса, вызывает бизнес-логику чата и возвращает
// ответ ассистента вместе с идентификатором сообщения.
//
// В случае ошибок формирует соответствующие HTTP-ответы с описанием проблемы.
package send

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/musiclands/festival-companion/internal/http/middlewarectx"
	"github.com/musiclands/festival-companion/internal/http/response"
	"github.com/musiclands/festival-companion/internal/lib/sl"
	"github.com/musiclands/festival-companion/internal/models"
	"github.com/musiclands/festival-companion/internal/services/chat"
)

// Request тело запроса на отправку сообщения ассистенту.
type Request struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// Service описывает интерфейс бизнес-логики чата.
type Service interface {
	Send(ctx context.Context, userUID, message string) (*models.ChatMessage, error)
}

// Handler обрабатывает запросы на отправку сообщения ассистенту.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary      Отправить сообщение чат-ассистенту
// @Description  Передает сообщение пользователя ассистенту и возвращает ответ
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        X-User-Uid  header    string   true  "Идентификатор пользователя"
// @Param        request     body      Request  true  "Сообщение пользователя"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      422  {object}  response.Response
// @Failure      503  {object}  response.ErrorResponse
// @Router       /chat [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.send"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("failed to validate request body", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	msg, err := h.service.Send(r.Context(), userUID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrUnavailable) {
			log.Error("chat service is not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("chat service is not available"))
			return
		}
		log.Error("failed to get assistant response", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get assistant response"))
		return
	}

	log.Info("assistant replied", slog.String("message_id", msg.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"response":   msg.Response,
		"message_id": msg.ID,
		"user_id":    msg.UserUID,
	}))
}
