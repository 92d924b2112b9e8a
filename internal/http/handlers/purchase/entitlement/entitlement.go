// Package entitlement реализует HTTP-обработчик чтения состояния доступа.
package entitlement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/musiclands/festival-companion/internal/http/middlewarectx"
	"github.com/musiclands/festival-companion/internal/http/response"
	"github.com/musiclands/festival-companion/internal/models"
)

// Service описывает интерфейс бизнес-логики вычисления доступа.
type Service interface {
	Entitlement(userUID string) models.EntitlementState
}

// Handler обрабатывает запросы на чтение состояния доступа.
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
// @Summary      Состояние доступа
// @Description  Возвращает производное состояние доступа пользователя
// @Tags         purchase
// @Produce      json
// @Param        X-User-Uid  header  string  true  "Идентификатор пользователя"
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.ErrorResponse
// @Router       /entitlement [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.entitlement"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	state := h.service.Entitlement(userUID)

	log.Info("entitlement derived", slog.Bool("active", state.HasActiveEntitlement))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entitlement": state,
	}))
}
