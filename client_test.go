package khub

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/khub/credential"
	"github.com/viant/khub/mock"
	"github.com/viant/khub/transport"
)

func TestLoadOptions(t *testing.T) {
	ctx := context.Background()
	URL := filepath.Join(t.TempDir(), "config.yaml")
	document := "baseURL: http://localhost:8080\ntokenStoreURL: /tmp/khub.json\ntimeoutSeconds: 5\n"
	require.NoError(t, afs.New().Upload(ctx, URL, 0o644, strings.NewReader(document)))

	options, err := LoadOptions(ctx, URL)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", options.BaseURL)
	assert.Equal(t, "/tmp/khub.json", options.TokenStoreURL)
	assert.Equal(t, 5, options.TimeoutSeconds)

	_, err = LoadOptions(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestClientOptions_Init(t *testing.T) {
	options := &ClientOptions{}
	options.Init()
	assert.Equal(t, defaultTimeoutSeconds, options.TimeoutSeconds)
	assert.NotNil(t, options.Transport)
	assert.NotNil(t, options.Logger)
	assert.Error(t, options.Validate())
	_, err := NewClient(context.Background(), &ClientOptions{})
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	server, err := mock.NewHTTPTestServer(mock.WithAccount("alice", "alice@example.com", "secret"))
	require.NoError(t, err)
	defer server.Close()
	ctx := context.Background()
	storeURL := filepath.Join(t.TempDir(), "credentials.json")

	var expired atomic.Int32
	client, err := NewClient(ctx, &ClientOptions{
		BaseURL:       server.URL,
		TokenStoreURL: storeURL,
		OnSessionExpired: func(ctx context.Context, reason error) {
			expired.Add(1)
		},
	})
	require.NoError(t, err)
	_, err = client.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	// tokens survive a new store instance
	reopened, err := credential.NewFileStore(ctx, storeURL)
	require.NoError(t, err)
	assert.Equal(t, client.Store().Tokens(), reopened.Tokens())
	assert.Equal(t, "alice", reopened.Identifier())

	_, err = client.Settings.Load(ctx)
	require.NoError(t, err)
	server.ExpireAccessTokens()
	_, err = client.Settings.Update(ctx, map[string]any{"streaming": false})
	require.NoError(t, err)
	assert.False(t, client.Settings.Streaming())
	assert.Equal(t, 1, server.RefreshCalls())

	server.ExpireAccessTokens()
	server.FailRefresh(true)
	_, err = client.Settings.Load(ctx)
	assert.True(t, errors.Is(err, transport.ErrSessionExpired))
	assert.EqualValues(t, 1, expired.Load())
	assert.False(t, client.Store().Tokens().Authenticated())
	assert.Equal(t, "alice", client.Store().Identifier())
}
