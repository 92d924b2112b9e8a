// Package create реализует HTTP-обработчик проверки новой покупки.
//
// Handler валидирует тело запроса, передает токен покупки бизнес-логике
// и возвращает производное состояние доступа.
//
// Отмена покупки пользователем не считается ошибкой: обработчик возвращает
// текущее состояние доступа без изменений. Отказ платформы доводится до
// клиента общим текстом с предложением повторить попытку.
package create

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

// Request тело запроса на проверку покупки.
type Request struct {
	OfferingID    string `json:"offering_id" validate:"required"`
	PurchaseToken string `json:"purchase_token" validate:"required"`
}

// Service описывает интерфейс бизнес-логики покупок.
type Service interface {
	Purchase(ctx context.Context, userUID string, req store.PurchaseRequest) (models.EntitlementState, *models.PurchaseRecord, error)
	Entitlement(userUID string) models.EntitlementState
}

// Handler обрабатывает запросы на проверку новой покупки.
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
// @Summary      Проверить покупку
// @Description  Проверяет токен покупки у платформы и возвращает состояние доступа
// @Tags         purchase
// @Accept       json
// @Produce      json
// @Param        X-User-Uid  header    string   true  "Идентификатор пользователя"
// @Param        request     body      Request  true  "Оффер и токен покупки"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      422  {object}  response.Response
// @Failure      502  {object}  response.ErrorResponse
// @Router       /purchases [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.create"

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

	state, rec, err := h.service.Purchase(r.Context(), userUID, store.PurchaseRequest{
		OfferingID:    req.OfferingID,
		PurchaseToken: req.PurchaseToken,
	})
	if err != nil {
		if errors.Is(err, store.ErrUserCancelled) {
			log.Info("purchase cancelled by user")
			render.JSON(w, r, response.OKWithData(map[string]any{
				"entitlement": h.service.Entitlement(userUID),
			}))
			return
		}
		if errors.Is(err, store.ErrStoreUnavailable) {
			log.Error("store is unavailable")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("purchases are unavailable right now"))
			return
		}
		log.Error("failed to verify purchase", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("purchase could not be completed, please try again"))
		return
	}

	log.Info("purchase verified",
		slog.String("offering_id", rec.OfferingID),
		slog.String("transaction_id", rec.TransactionID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entitlement": state,
		"purchase":    rec,
	}))
}
