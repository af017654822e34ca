// Package authctx хранит в context данные аутентифицированного запроса.
package authctx

import (
	"context"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

type ctxKeySessionID struct{}

type ctxKeyAccount struct{}

// WithSessionID сохраняет session_id в контексте
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID{}, sid)
}

// SessionIDFromContext возвращает session_id, если он был установлен
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(ctxKeySessionID{}).(string)
	return sid, ok
}

// WithAccount сохраняет владельца сессии
func WithAccount(ctx context.Context, acc repository.Account) context.Context {
	return context.WithValue(ctx, ctxKeyAccount{}, acc)
}

// AccountFromContext владелец сессии; ok=false для анонимного запроса
func AccountFromContext(ctx context.Context) (repository.Account, bool) {
	acc, ok := ctx.Value(ctxKeyAccount{}).(repository.Account)
	return acc, ok
}
