// Package restore реализует HTTP-обработчик восстановления прежних покупок.
//
// Handler принимает набор токенов, восстановленных клиентом у платформы,
// передает его бизнес-логике и возвращает производное состояние доступа.
// Отказ восстановления доводится до клиента отдельным сообщением,
// не совпадающим с текстом отказа покупки.
package restore

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
	"github.com/musiclands/festival-companion/internal/store"
)

// Request тело запроса на восстановление покупок.
type Request struct {
	Tokens []models.PurchaseToken `json:"tokens" validate:"dive"`
}

// Service описывает интерфейс бизнес-логики восстановления покупок.
type Service interface {
	Restore(ctx context.Context, userUID string, tokens []models.PurchaseToken) (models.EntitlementState, []*models.PurchaseRecord, error)
}

// Handler обрабатывает запросы на восстановление покупок.
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
// @Summary      Восстановить покупки
// @Description  Проверяет восстановленные токены и возвращает состояние доступа
// @Tags         purchase
// @Accept       json
// @Produce      json
// @Param        X-User-Uid  header    string   true  "Идентификатор пользователя"
// @Param        request     body      Request  true  "Восстановленные токены"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      502  {object}  response.ErrorResponse
// @Router       /purchases/restore [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.restore"

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

	state, records, err := h.service.Restore(r.Context(), userUID, req.Tokens)
	if err != nil {
		var restoreErr *store.RestoreError
		if errors.As(err, &restoreErr) {
			log.Error("failed to restore purchases", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("could not restore purchases, please try again"))
			return
		}
		if errors.Is(err, store.ErrStoreUnavailable) {
			log.Error("store is unavailable")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("purchases are unavailable right now"))
			return
		}
		log.Error("failed to restore purchases", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not restore purchases"))
		return
	}

	log.Info("purchases restored", "count", len(records))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entitlement":     state,
		"purchases_count": len(records),
		"purchases":       records,
	}))
}
