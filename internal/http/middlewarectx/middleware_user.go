// Package middlewarectx содержит HTTP middleware для идентификации пользователя
// и ограничения частоты запросов.
//
// UserUIDMiddleware читает идентификатор пользователя из заголовка X-User-Uid
// и кладет его в контекст запроса. Идентификатор выдает мобильный клиент
// (анонимный установочный UID), поэтому проверка подписи не выполняется.
// При отсутствии заголовка возвращается HTTP 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/musiclands/festival-companion/internal/http/response"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserUID — ключ для идентификатора пользователя в контексте.
const UserUID Key = "user_uid"

// HeaderUserUID — заголовок, в котором клиент передает свой идентификатор.
const HeaderUserUID = "X-User-Uid"

// UserUIDMiddleware возвращает HTTP middleware, который переносит идентификатор
// пользователя из заголовка X-User-Uid в контекст запроса.
//
// Если заголовок отсутствует или пуст, возвращает HTTP статус 401 Unauthorized.
func UserUIDMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UserUIDMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userUID := strings.TrimSpace(r.Header.Get(HeaderUserUID))
			if userUID == "" {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, userUID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
