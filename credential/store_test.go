package credential

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
)

// failingFS rejects uploads once broken is set
type failingFS struct {
	afs.Service
	broken bool
}

var errUpload = errors.New("read-only file system")

func (f *failingFS) Upload(ctx context.Context, URL string, mode os.FileMode, reader io.Reader, options ...storage.Option) error {
	if f.broken {
		return errUpload
	}
	return f.Service.Upload(ctx, URL, mode, reader, options...)
}

func TestStores(t *testing.T) {
	newFileStore := func(t *testing.T) Store {
		ret, err := NewFileStore(context.Background(), filepath.Join(t.TempDir(), "session.json"))
		require.NoError(t, err)
		return ret
	}
	var testCases = []struct {
		name string
		new  func(t *testing.T) Store
	}{
		{name: "memory", new: func(t *testing.T) Store { return NewMemoryStore() }},
		{name: "file", new: newFileStore},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			store := testCase.new(t)
			assert.False(t, store.Tokens().Authenticated())

			require.NoError(t, store.SetTokens("a1", "r1"))
			assert.Equal(t, TokenPair{Access: "a1", Refresh: "r1"}, store.Tokens())

			// omitted refresh keeps the stored one
			require.NoError(t, store.SetTokens("a2", ""))
			assert.Equal(t, "a2", store.AccessToken())
			assert.Equal(t, "r1", store.RefreshToken())

			require.NoError(t, store.SetTokens("", "r2"))
			assert.Equal(t, TokenPair{Access: "a2", Refresh: "r2"}, store.Tokens())

			require.NoError(t, store.SetIdentifier("alice"))
			require.NoError(t, store.SetIdentifier(""))
			assert.Equal(t, "alice", store.Identifier())

			require.NoError(t, store.ClearTokens())
			assert.Equal(t, TokenPair{}, store.Tokens())
			assert.Equal(t, "alice", store.Identifier())

			require.NoError(t, store.ClearIdentifier())
			assert.Equal(t, "", store.Identifier())
		})
	}
}

func TestFileStore_Reload(t *testing.T) {
	ctx := context.Background()
	URL := filepath.Join(t.TempDir(), "nested", "session.json")

	store, err := NewFileStore(ctx, URL)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("access", "refresh"))
	require.NoError(t, store.SetIdentifier("bob@example.com"))

	reopened, err := NewFileStore(ctx, URL)
	require.NoError(t, err)
	assert.Equal(t, TokenPair{Access: "access", Refresh: "refresh"}, reopened.Tokens())
	assert.Equal(t, "bob@example.com", reopened.Identifier())

	require.NoError(t, reopened.ClearTokens())
	again, err := NewFileStore(ctx, URL)
	require.NoError(t, err)
	assert.False(t, again.Tokens().Authenticated())
	assert.Equal(t, "bob@example.com", again.Identifier())
}

func TestFileStore_FailedWriteKeepsState(t *testing.T) {
	ctx := context.Background()
	URL := filepath.Join(t.TempDir(), "session.json")
	fs := &failingFS{Service: afs.New()}
	store, err := NewFileStore(ctx, URL, WithFileSystem(fs))
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("a1", "r1"))
	require.NoError(t, store.SetIdentifier("alice"))

	fs.broken = true
	assert.ErrorIs(t, store.SetTokens("a2", "r2"), errUpload)
	assert.ErrorIs(t, store.ClearTokens(), errUpload)
	assert.ErrorIs(t, store.SetIdentifier("bob"), errUpload)
	assert.ErrorIs(t, store.ClearIdentifier(), errUpload)
	assert.Equal(t, TokenPair{Access: "a1", Refresh: "r1"}, store.Tokens())
	assert.Equal(t, "alice", store.Identifier())

	reopened, err := NewFileStore(ctx, URL)
	require.NoError(t, err)
	assert.Equal(t, store.Tokens(), reopened.Tokens())
	assert.Equal(t, store.Identifier(), reopened.Identifier())
}

func TestMemoryStore_Options(t *testing.T) {
	store := NewMemoryStore(WithTokens("a", "r"), WithIdentifier("id"))
	assert.True(t, store.Tokens().Refreshable())
	assert.Equal(t, "id", store.Identifier())
}
