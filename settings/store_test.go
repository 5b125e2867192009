package settings

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = time.Second
	tick    = 10 * time.Millisecond
)

type conflictError struct{}

func (conflictError) Error() string  { return "version conflict" }
func (conflictError) Conflict() bool { return true }

// fakeBackend emulates the server-side optimistic lock
type fakeBackend struct {
	mux       sync.Mutex
	fields    map[string]any
	version   int
	gets      atomic.Int32
	updates   atomic.Int32
	getErr    error
	updateErr error
	gate      chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		fields:  map[string]any{"streaming": true, "web_search": false, "model": "qwen", "temperature": 0.3},
		version: 1,
	}
}

func (f *fakeBackend) snapshot() map[string]any {
	ret := maps.Clone(f.fields)
	ret["version"] = float64(f.version)
	ret["updated_at"] = "2026-01-02T03:04:05Z"
	return ret
}

func (f *fakeBackend) GetMySettings(ctx context.Context) (map[string]any, error) {
	f.gets.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.snapshot(), nil
}

func (f *fakeBackend) UpdateMySettings(ctx context.Context, patch map[string]any) (map[string]any, error) {
	f.updates.Add(1)
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if patch["version"] != f.version {
		return nil, conflictError{}
	}
	for k, v := range patch {
		if k != "version" {
			f.fields[k] = v
		}
	}
	f.version++
	return f.snapshot(), nil
}

// bump simulates another client writing first
func (f *fakeBackend) bump(key string, value any) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.fields[key] = value
	f.version++
}

func TestStore_Load(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend)
	assert.False(t, store.Loaded())
	assert.Equal(t, 1, store.Current().Version)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, store.Loaded())
	assert.Equal(t, 1, loaded.Version)
	require.NotNil(t, loaded.UpdatedAt)
	assert.Equal(t, 2026, loaded.UpdatedAt.Year())
	assert.NotContains(t, loaded.Fields, "version")
	assert.Equal(t, "qwen", store.Model())
}

func TestStore_LoadFailureKeepsCache(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	backend.getErr = errors.New("unavailable")
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, backend.getErr)
	assert.True(t, store.Loaded())
	assert.Equal(t, "qwen", store.Model())
}

func TestStore_LoadJoinsInFlight(t *testing.T) {
	backend := newFakeBackend()
	backend.gate = make(chan struct{})
	store := NewStore(backend)

	const n = 5
	var wg sync.WaitGroup
	results := make([]*Settings, n)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = store.Load(context.Background())
	}()
	assert.Eventually(t, func() bool { return backend.gets.Load() == 1 }, timeout, tick)
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = store.Load(context.Background())
		}(i)
	}
	// give joiners a chance to reach the group before releasing the load
	assert.Never(t, func() bool { return backend.gets.Load() > 1 }, 10*tick, tick)
	close(backend.gate)
	wg.Wait()

	assert.EqualValues(t, 1, backend.gets.Load())
	for _, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, 1, result.Version)
	}
}

func TestStore_LoadOutlivesCanceledCaller(t *testing.T) {
	backend := newFakeBackend()
	backend.gate = make(chan struct{})
	store := NewStore(backend)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx)
		first <- err
	}()
	assert.Eventually(t, func() bool { return backend.gets.Load() == 1 }, timeout, tick)

	second := make(chan *Settings, 1)
	go func() {
		loaded, err := store.Load(context.Background())
		assert.NoError(t, err)
		second <- loaded
	}()
	assert.Never(t, func() bool { return backend.gets.Load() > 1 }, 5*tick, tick)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(timeout):
		t.Fatal("canceled caller did not return")
	}

	close(backend.gate)
	select {
	case loaded := <-second:
		require.NotNil(t, loaded)
		assert.Equal(t, "qwen", loaded.String(ModelKey))
	case <-time.After(timeout):
		t.Fatal("joined caller did not return")
	}
	assert.EqualValues(t, 1, backend.gets.Load())
	assert.True(t, store.Loaded())
}

func TestStore_UpdateLoadsFirst(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend)

	updated, err := store.Update(context.Background(), map[string]any{"web_search": true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, backend.gets.Load())
	assert.Equal(t, 2, updated.Version)
	assert.True(t, store.WebSearch())
}

func TestStore_UpdateLoadFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.getErr = errors.New("unavailable")
	store := NewStore(backend)

	_, err := store.Update(context.Background(), map[string]any{"web_search": true})
	assert.ErrorIs(t, err, backend.getErr)
	assert.EqualValues(t, 0, backend.updates.Load())
}

func TestStore_RoundTrip(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend)
	ctx := context.Background()

	before, err := store.Load(ctx)
	require.NoError(t, err)
	_, err = store.Update(ctx, map[string]any{"streaming": false, "max_tokens": float64(512)})
	require.NoError(t, err)
	after, err := store.Load(ctx)
	require.NoError(t, err)

	expect := maps.Clone(before.Fields)
	expect["streaming"] = false
	expect["max_tokens"] = float64(512)
	assert.Equal(t, expect, after.Fields)
	assert.Greater(t, after.Version, before.Version)
	assert.False(t, store.Streaming())
	maxTokens, ok := store.MaxTokens()
	assert.True(t, ok)
	assert.Equal(t, 512, maxTokens)
}

func TestStore_UpdateConflict(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend)
	ctx := context.Background()
	_, err := store.Load(ctx)
	require.NoError(t, err)

	backend.bump("model", "other")
	gets := backend.gets.Load()

	result, err := store.Update(ctx, map[string]any{"streaming": false})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, gets+1, backend.gets.Load())
	require.NotNil(t, result)
	assert.Equal(t, true, result.Fields["streaming"])
	assert.Equal(t, 2, result.Version)
	assert.True(t, store.Streaming())
	assert.Equal(t, "other", store.Model())
	assert.EqualValues(t, 1, backend.updates.Load())
}

func TestStore_UpdateFailureKeepsCache(t *testing.T) {
	backend := newFakeBackend()
	store := NewStore(backend)
	ctx := context.Background()
	_, err := store.Load(ctx)
	require.NoError(t, err)

	backend.updateErr = errors.New("bad request")
	_, err = store.Update(ctx, map[string]any{"streaming": false})
	assert.ErrorIs(t, err, backend.updateErr)
	assert.NotErrorIs(t, err, ErrVersionConflict)
	assert.True(t, store.Streaming())
	assert.Equal(t, 1, store.Current().Version)
}

type emptyBackend struct{}

func (e *emptyBackend) GetMySettings(ctx context.Context) (map[string]any, error) {
	return map[string]any{"model": "m"}, nil
}

func (e *emptyBackend) UpdateMySettings(ctx context.Context, patch map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestStore_UpdateWithoutVersion(t *testing.T) {
	store := NewStore(&emptyBackend{})
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Version)

	updated, err := store.Update(context.Background(), map[string]any{"web_search": true})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, map[string]any{"model": "m", "web_search": true}, updated.Fields)
}

func TestStore_Defaults(t *testing.T) {
	store := NewStore(&emptyBackend{})
	assert.True(t, store.Streaming())
	assert.False(t, store.WebSearch())
	_, ok := store.DefaultKBID()
	assert.False(t, ok)
	_, ok = store.Temperature()
	assert.False(t, ok)
	assert.Empty(t, store.Model())

	_, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m", store.Model())
	store.Reset()
	assert.False(t, store.Loaded())
	assert.Empty(t, store.Model())
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(conflictError{}))
	assert.True(t, IsConflict(errors.Join(errors.New("x"), conflictError{})))
	assert.False(t, IsConflict(errors.New("version conflict")))
	assert.False(t, IsConflict(nil))
}

func TestSettings_Int(t *testing.T) {
	var testCases = []struct {
		description string
		value       any
		expect      int
		ok          bool
	}{
		{description: "integral float", value: float64(512), expect: 512, ok: true},
		{description: "int", value: 7, expect: 7, ok: true},
		{description: "fractional", value: 1.5},
		{description: "string", value: "512"},
		{description: "missing"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			settings := &Settings{Fields: map[string]any{}}
			if testCase.value != nil {
				settings.Fields[MaxTokensKey] = testCase.value
			}
			actual, ok := settings.Int(MaxTokensKey)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.expect, actual)
		})
	}
}
