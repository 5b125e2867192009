package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/viant/khub/credential"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new token pair. An empty
// RefreshToken in the result keeps the stored one.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

type RoundTripper struct {
	store          credential.Store
	transport      http.RoundTripper
	refresher      Refresher
	coordinator    *Coordinator
	onExpired      func(ctx context.Context, reason error)
	refreshTimeout time.Duration
	logger         *zap.Logger
}

func New(options ...Option) (*RoundTripper, error) {
	ret := &RoundTripper{
		transport:   http.DefaultTransport,
		store:       credential.NewMemoryStore(),
		coordinator: NewCoordinator(),
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.refresher == nil {
		return nil, errors.New("refresher was empty")
	}
	return ret, nil
}

func (r *RoundTripper) Store() credential.Store {
	return r.store
}

func (r *RoundTripper) Coordinator() *Coordinator {
	return r.coordinator
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	skipAuth := IsSkipAuth(ctx)

	// 1) Attach the current access token unless the caller opted out or set its own.
	attempt, err := clone(ctx, req)
	if err != nil {
		return nil, err
	}
	if !skipAuth && attempt.Header.Get("Authorization") == "" {
		if token := r.store.AccessToken(); token != "" {
			attempt.Header.Set("Authorization", bearer(token))
		}
	}
	resp, err := r.transport.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}

	// 2) Anything but a recoverable 401 passes through.
	if resp.StatusCode != http.StatusUnauthorized || skipAuth || IsRetry(ctx) {
		return resp, nil
	}
	unauthorized := newUnauthorizedError(resp)

	token, err := r.renew(ctx, unauthorized)
	if err != nil {
		return nil, err
	}

	// 3) Replay once with the new token; a second 401 is final.
	retry, err := clone(withRetry(ctx), req)
	if err != nil {
		return nil, err
	}
	retry.Header.Set("Authorization", bearer(token))
	return r.RoundTrip(retry)
}

// renew obtains a fresh access token, either by owning the refresh or by
// waiting on the one in flight.
func (r *RoundTripper) renew(ctx context.Context, unauthorized *UnauthorizedError) (string, error) {
	refreshToken := r.store.RefreshToken()
	if refreshToken == "" {
		r.expire(ctx, unauthorized)
		return "", expired(unauthorized)
	}

	owner, waiter := r.coordinator.Begin()
	if !owner {
		r.logger.Debug("waiting for in-flight token refresh")
		token, err := waiter.Await(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", expired(unauthorized)
		}
		return token, nil
	}

	token, err := r.refresh(ctx, refreshToken)
	if err != nil {
		r.coordinator.Reject(err)
		r.expire(ctx, err)
		return "", expired(err)
	}
	r.coordinator.Resolve(token)
	return token, nil
}

func (r *RoundTripper) refresh(ctx context.Context, refreshToken string) (string, error) {
	// the refresh is shared by every queued caller, so one caller's cancellation must not abort it
	ctx = WithSkipAuth(context.WithoutCancel(ctx))
	if r.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.refreshTimeout)
		defer cancel()
	}
	started := time.Now()
	token, err := r.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	if token == nil || token.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	if err = r.store.SetTokens(token.AccessToken, token.RefreshToken); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}
	r.logger.Debug("token refreshed",
		zap.Bool("rotated", token.RefreshToken != ""),
		zap.Duration("elapsed", time.Since(started)))
	return token.AccessToken, nil
}

func (r *RoundTripper) expire(ctx context.Context, reason error) {
	if err := r.store.ClearTokens(); err != nil {
		r.logger.Warn("failed to clear credentials", zap.Error(err))
	}
	r.logger.Info("session expired", zap.Error(reason))
	if r.onExpired != nil {
		r.onExpired(ctx, reason)
	}
}
