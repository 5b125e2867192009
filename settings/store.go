package settings

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrVersionConflict is returned by Update when the server rejected the
// submitted version; the store has been reloaded and the patch discarded.
var ErrVersionConflict = errors.New("settings version conflict")

// Backend represents the settings endpoints
type Backend interface {
	GetMySettings(ctx context.Context) (map[string]any, error)
	UpdateMySettings(ctx context.Context, patch map[string]any) (map[string]any, error)
}

// conflicter is implemented by backend errors able to signal a stale version
type conflicter interface {
	Conflict() bool
}

// IsConflict reports whether err carries a version conflict signal
func IsConflict(err error) bool {
	var c conflicter
	return errors.As(err, &c) && c.Conflict()
}

// Store caches settings loaded from a Backend
type Store struct {
	backend Backend
	logger  *zap.Logger
	loads   singleflight.Group
	mux     sync.RWMutex
	current *Settings
}

type Option func(*Store)

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store
func NewStore(backend Backend, options ...Option) *Store {
	ret := &Store{backend: backend, logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Load fetches settings; callers arriving while a load is in flight share its outcome.
// The shared load outlives any one caller's ctx; a caller whose ctx ends returns early.
// A failed load leaves the cached settings untouched.
func (s *Store) Load(ctx context.Context) (*Settings, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan("load", func() (interface{}, error) {
		payload, err := s.backend.GetMySettings(loadCtx)
		if err != nil {
			return nil, err
		}
		loaded := decode(payload, 1)
		s.mux.Lock()
		s.current = loaded
		s.mux.Unlock()
		s.logger.Debug("settings loaded", zap.Int("version", loaded.Version))
		return loaded, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to load settings: %w", ctx.Err())
	case result := <-ch:
		if result.Err != nil {
			s.logger.Debug("settings load failed", zap.Error(result.Err), zap.Bool("shared", result.Shared))
			return nil, fmt.Errorf("failed to load settings: %w", result.Err)
		}
		return result.Val.(*Settings).Clone(), nil
	}
}

// Update sends patch stamped with the last observed version. On a version
// conflict the store reloads and returns the reloaded settings with
// ErrVersionConflict. Concurrent updates are not serialized locally.
func (s *Store) Update(ctx context.Context, patch map[string]any) (*Settings, error) {
	if !s.Loaded() {
		if _, err := s.Load(ctx); err != nil {
			return nil, err
		}
	}
	prev := s.Current()
	payload := maps.Clone(patch)
	if payload == nil {
		payload = map[string]any{}
	}
	payload[VersionKey] = prev.Version

	out, err := s.backend.UpdateMySettings(ctx, payload)
	if err != nil {
		if !IsConflict(err) {
			return nil, fmt.Errorf("failed to update settings: %w", err)
		}
		s.logger.Debug("settings version conflict", zap.Int("version", prev.Version))
		reloaded, loadErr := s.Load(ctx)
		if loadErr != nil {
			return nil, errors.Join(ErrVersionConflict, loadErr)
		}
		return reloaded, ErrVersionConflict
	}

	var updated *Settings
	if len(out) == 0 {
		updated = prev.Clone()
		maps.Copy(updated.Fields, patch)
		updated.Version = prev.Version + 1
	} else {
		updated = decode(out, prev.Version+1)
	}
	s.mux.Lock()
	s.current = updated
	s.mux.Unlock()
	return updated.Clone(), nil
}

// Current returns a copy of the cached settings; zero value with version 1 when nothing was loaded
func (s *Store) Current() *Settings {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if s.current == nil {
		return &Settings{Fields: map[string]any{}, Version: 1}
	}
	return s.current.Clone()
}

// Loaded returns true once a load succeeded
func (s *Store) Loaded() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.current != nil
}

// Reset drops the local copy
func (s *Store) Reset() {
	s.mux.Lock()
	s.current = nil
	s.mux.Unlock()
}

func (s *Store) snapshot() *Settings {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.current
}

// Streaming returns the streaming flag; enabled unless the server disabled it
func (s *Store) Streaming() bool {
	return s.snapshot().Bool(StreamingKey, true)
}

// WebSearch returns the web search flag; disabled by default
func (s *Store) WebSearch() bool {
	return s.snapshot().Bool(WebSearchKey, false)
}

// DefaultKBID returns the default knowledge base
func (s *Store) DefaultKBID() (int, bool) {
	return s.snapshot().Int(DefaultKBIDKey)
}

// Model returns the preferred model or empty
func (s *Store) Model() string {
	return s.snapshot().String(ModelKey)
}

func (s *Store) Temperature() (float64, bool) {
	return s.snapshot().Float(TemperatureKey)
}

func (s *Store) TopP() (float64, bool) {
	return s.snapshot().Float(TopPKey)
}

func (s *Store) MaxTokens() (int, bool) {
	return s.snapshot().Int(MaxTokensKey)
}
