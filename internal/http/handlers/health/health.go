// Package health реализует HTTP-обработчик проверки состояния сервиса
// и его зависимостей: базы данных, чат-ассистента и магазина покупок.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/musiclands/festival-companion/internal/http/response"
	"github.com/musiclands/festival-companion/internal/lib/sl"
)

// ChatService сообщает, сконфигурирован ли чат-ассистент.
type ChatService interface {
	Available() bool
}

// PurchaseService сообщает, работает ли магазин в деградированном режиме.
type PurchaseService interface {
	IsDegraded() bool
}

// Handler обрабатывает запросы проверки состояния.
type Handler struct {
	log      *slog.Logger
	checkDB  func() error
	chat     ChatService
	purchase PurchaseService
}

// New создает новый Handler. checkDB проверяет готовность базы данных.
func New(log *slog.Logger, checkDB func() error, chat ChatService, purchase PurchaseService) *Handler {
	return &Handler{
		log:      log,
		checkDB:  checkDB,
		chat:     chat,
		purchase: purchase,
	}
}

// ServeHTTP godoc
// @Summary      Проверка состояния
// @Description  Возвращает состояние сервиса и его зависимостей
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	log := h.log.With(slog.String("op", op))

	services := map[string]string{
		"database": "connected",
		"chat":     "available",
		"store":    "available",
	}

	if err := h.checkDB(); err != nil {
		log.Error("database is not ready", sl.Err(err))
		services["database"] = "error"
	}
	if !h.chat.Available() {
		services["chat"] = "not_configured"
	}
	if h.purchase.IsDegraded() {
		services["store"] = "degraded"
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":   "ok",
		"services": services,
	}))
}
