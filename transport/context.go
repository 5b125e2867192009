package transport

import (
	"context"
)

type (
	contextFlagKey string
)

const (
	ContextSkipAuthKey contextFlagKey = "skipAuth"
	contextRetryKey    contextFlagKey = "isRetry"
)

// WithSkipAuth marks requests built with ctx as unauthenticated: no bearer is
// attached and a 401 never triggers a refresh.
func WithSkipAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextSkipAuthKey, true)
}

// IsSkipAuth reports whether ctx carries the skipAuth flag.
func IsSkipAuth(ctx context.Context) bool {
	return flag(ctx, ContextSkipAuthKey)
}

// IsRetry reports whether ctx belongs to a replay after a token refresh.
func IsRetry(ctx context.Context) bool {
	return flag(ctx, contextRetryKey)
}

func withRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextRetryKey, true)
}

func flag(ctx context.Context, key contextFlagKey) bool {
	if v := ctx.Value(key); v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
