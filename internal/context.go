package internal

import (
	"context"
	"time"

	coreUser "github.com/frahmantamala/expense-claims/internal/core/user"
)

type ctxKey string

const (
	ContextIdentityKey    ctxKey = "identity"
	ContextRequestMetaKey ctxKey = "requestMeta"
)

// IdentityFromContext returns the caller resolved by the auth middleware.
func IdentityFromContext(ctx context.Context) (*coreUser.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(ContextIdentityKey).(*coreUser.Identity)
	return identity, ok && identity != nil
}

func ContextWithIdentity(ctx context.Context, identity *coreUser.Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, identity)
}

// RequestMeta is the client information attached to audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	if meta, ok := ctx.Value(ContextRequestMetaKey).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}

func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, ContextRequestMetaKey, meta)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

// DetachedTimeout keeps ctx values but ignores its cancellation, so a write
// started for a client that has since disconnected still runs to completion.
func DetachedTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return WithTimeout(context.WithoutCancel(ctx), duration)
}
