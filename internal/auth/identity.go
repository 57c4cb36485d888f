// Package auth - прослойка Identity Provider'а: внешний слой
// аутентификации кладет id и роль действующего лица в заголовки,
// мы переносим их в контекст запроса. Значениям доверяем
// безусловно - проверка токенов не наша забота.
package auth

import (
	"context"
	"net/http"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/service"
)

type contextKey string

const key = contextKey("actor")

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Middleware извлекает действующее лицо из доверенных заголовков.
// Запросы без заголовков проходят анонимно: чтение разрешено,
// а мутации упадут на проверках в ядре.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := service.Actor{
			ID:   r.Header.Get(HeaderUserID),
			Role: domain.Role(r.Header.Get(HeaderUserRole)),
		}
		if actor.Role != domain.RoleAdmin {
			actor.Role = domain.RoleUser
		}
		ctx := context.WithValue(r.Context(), key, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext возвращает действующее лицо запроса. Пустой ID
// означает анонимный запрос.
func FromContext(ctx context.Context) service.Actor {
	actor, _ := ctx.Value(key).(service.Actor)
	return actor
}

// WithActor кладет действующее лицо в контекст (для тестов и
// не-HTTP вызовов).
func WithActor(ctx context.Context, actor service.Actor) context.Context {
	return context.WithValue(ctx, key, actor)
}
