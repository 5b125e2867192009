package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"golang.org/x/oauth2"
)

// FileStore persists credentials to a JSON document at an afs URL, while
// serving reads from memory. It is a lightweight way to survive process
// restarts in CLI or single-host services.
type FileStore struct {
	mu         sync.RWMutex
	ctx        context.Context
	fs         afs.Service
	URL        string
	token      *oauth2.Token
	identifier string
}

type fileSnapshot struct {
	Token      *oauth2.Token `json:"token,omitempty"`
	Identifier string        `json:"identifier,omitempty"`
}

type FileStoreOption func(*FileStore)

// WithFileSystem sets the afs service used to read and write the snapshot
func WithFileSystem(fs afs.Service) FileStoreOption {
	return func(f *FileStore) {
		f.fs = fs
	}
}

// NewFileStore creates a Store persisted at URL; a missing document yields an empty store.
func NewFileStore(ctx context.Context, URL string, options ...FileStoreOption) (*FileStore, error) {
	ret := &FileStore{URL: URL, ctx: context.WithoutCancel(ctx)}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	if err := ret.load(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}

func (f *FileStore) Tokens() TokenPair {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.token == nil {
		return TokenPair{}
	}
	return TokenPair{Access: f.token.AccessToken, Refresh: f.token.RefreshToken}
}

func (f *FileStore) AccessToken() string {
	return f.Tokens().Access
}

func (f *FileStore) RefreshToken() string {
	return f.Tokens().Refresh
}

func (f *FileStore) SetTokens(access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair := TokenPair{}
	if f.token != nil {
		pair = TokenPair{Access: f.token.AccessToken, Refresh: f.token.RefreshToken}
	}
	pair = merge(pair, access, refresh)
	return f.save(fileSnapshot{
		Token:      &oauth2.Token{AccessToken: pair.Access, RefreshToken: pair.Refresh, TokenType: "Bearer"},
		Identifier: f.identifier,
	})
}

func (f *FileStore) ClearTokens() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(fileSnapshot{Identifier: f.identifier})
}

func (f *FileStore) Identifier() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.identifier
}

func (f *FileStore) SetIdentifier(identifier string) error {
	if identifier == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(fileSnapshot{Token: f.token, Identifier: identifier})
}

func (f *FileStore) ClearIdentifier() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(fileSnapshot{Token: f.token})
}

// ---- persistence ----

// save writes snap and adopts it only once the write succeeded; it must be
// called with the write lock held.
func (f *FileStore) save(snap fileSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err = f.fs.Upload(f.ctx, f.URL, 0o600, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	f.token = snap.Token
	f.identifier = snap.Identifier
	return nil
}

func (f *FileStore) load(ctx context.Context) error {
	ok, err := f.fs.Exists(ctx, f.URL)
	if err != nil {
		return fmt.Errorf("failed to check credentials %v: %w", f.URL, err)
	}
	if !ok {
		return nil
	}
	data, err := f.fs.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return fmt.Errorf("failed to read credentials %v: %w", f.URL, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var snap fileSnapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode credentials %v: %w", f.URL, err)
	}
	f.token = snap.Token
	f.identifier = snap.Identifier
	return nil
}
