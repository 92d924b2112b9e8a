// Package festivalcompanion собирает HTTP-сервер фестивального приложения:
// маршруты, middleware и жизненный цикл зависимостей.
package festivalcompanion

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/musiclands/festival-companion/internal/http/handlers/chat/history"
	"github.com/musiclands/festival-companion/internal/http/handlers/chat/send"
	"github.com/musiclands/festival-companion/internal/http/handlers/health"
	"github.com/musiclands/festival-companion/internal/http/handlers/purchase/create"
	"github.com/musiclands/festival-companion/internal/http/handlers/purchase/entitlement"
	"github.com/musiclands/festival-companion/internal/http/handlers/purchase/offerings"
	"github.com/musiclands/festival-companion/internal/http/handlers/purchase/restore"
	"github.com/musiclands/festival-companion/internal/http/middlewarectx"
	chatservice "github.com/musiclands/festival-companion/internal/services/chat"
	purchaseservice "github.com/musiclands/festival-companion/internal/services/purchase"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, chatService *chatservice.Service, purchaseService *purchaseservice.Service, checkDB func() error) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/health", health.New(logger, checkDB, chatService, purchaseService).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger))

		// Каталог офферов открыт без идентификации
		r.Get("/offerings", offerings.New(logger, purchaseService).ServeHTTP)

		// Группа с идентификацией пользователя по заголовку
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.UserUIDMiddleware(logger))
			r.Post("/chat", send.New(logger, chatService).ServeHTTP)
			r.Get("/chat/history", history.New(logger, chatService).ServeHTTP)
			r.Post("/purchases", create.New(logger, purchaseService).ServeHTTP)
			r.Post("/purchases/restore", restore.New(logger, purchaseService).ServeHTTP)
			r.Get("/entitlement", entitlement.New(logger, purchaseService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
