package appctx

import (
	"context"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity добавляет identity (subject токена) в контекст
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Identity извлекает identity из контекста
func Identity(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok && id != ""
}
