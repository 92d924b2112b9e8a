// Package offerings реализует HTTP-обработчик чтения каталога офферов.
package offerings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/musiclands/festival-companion/internal/http/response"
	"github.com/musiclands/festival-companion/internal/lib/sl"
	"github.com/musiclands/festival-companion/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения офферов.
type Service interface {
	Offerings(ctx context.Context) ([]models.Offering, error)
}

// Handler обрабатывает запросы на чтение каталога офферов.
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
// @Summary      Каталог офферов
// @Description  Возвращает доступные для покупки пропуска фестиваля
// @Tags         purchase
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      500  {object}  response.ErrorResponse
// @Router       /offerings [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.offerings"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.Offerings(r.Context())
	if err != nil {
		log.Error("failed to list offerings", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list offerings"))
		return
	}

	log.Info("offerings listed", "count", len(res))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"offerings_count": len(res),
		"offerings":       res,
	}))
}
