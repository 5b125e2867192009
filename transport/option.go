package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/viant/khub/credential"
	"go.uber.org/zap"
)

type Option func(*RoundTripper)

// WithStore sets credential store
func WithStore(store credential.Store) Option {
	return func(t *RoundTripper) {
		t.store = store
	}
}

// WithTransport sets the raw transport used for both regular and refresh calls
func WithTransport(transport http.RoundTripper) Option {
	return func(t *RoundTripper) {
		t.transport = transport
	}
}

// WithRefresher sets the refresh call implementation
func WithRefresher(refresher Refresher) Option {
	return func(t *RoundTripper) {
		t.refresher = refresher
	}
}

// WithSessionExpired sets a callback invoked once per unrecoverable session
func WithSessionExpired(fn func(ctx context.Context, reason error)) Option {
	return func(t *RoundTripper) {
		t.onExpired = fn
	}
}

// WithCoordinator sets refresh coordinator
func WithCoordinator(coordinator *Coordinator) Option {
	return func(t *RoundTripper) {
		t.coordinator = coordinator
	}
}

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *RoundTripper) {
		t.logger = logger
	}
}

// WithRefreshTimeout bounds the refresh call; zero means no deadline.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(t *RoundTripper) {
		t.refreshTimeout = timeout
	}
}
