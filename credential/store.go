package credential

import "sync"

// TokenPair is the access/refresh pair; an empty string means absent.
type TokenPair struct {
	Access  string
	Refresh string
}

// Authenticated reports whether an access token is present.
func (p TokenPair) Authenticated() bool { return p.Access != "" }

// Refreshable reports whether a refresh token is present.
func (p TokenPair) Refreshable() bool { return p.Refresh != "" }

// Store is a pluggable persistence layer for session credentials.
// The in‑memory default is fine for tests; swap with the file store for CLI sessions.
type Store interface {
	Tokens() TokenPair
	AccessToken() string
	RefreshToken() string
	// SetTokens stores access; an empty refresh keeps the stored refresh token.
	SetTokens(access, refresh string) error
	ClearTokens() error
	Identifier() string
	SetIdentifier(identifier string) error
	ClearIdentifier() error
}

type memoryStore struct {
	mu         sync.RWMutex
	tokens     TokenPair
	identifier string
}

func (m *memoryStore) Tokens() TokenPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

func (m *memoryStore) AccessToken() string {
	return m.Tokens().Access
}

func (m *memoryStore) RefreshToken() string {
	return m.Tokens().Refresh
}

func (m *memoryStore) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = merge(m.tokens, access, refresh)
	return nil
}

func (m *memoryStore) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = TokenPair{}
	return nil
}

func (m *memoryStore) Identifier() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identifier
}

func (m *memoryStore) SetIdentifier(identifier string) error {
	if identifier == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identifier = identifier
	return nil
}

func (m *memoryStore) ClearIdentifier() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identifier = ""
	return nil
}

func merge(current TokenPair, access, refresh string) TokenPair {
	if access != "" {
		current.Access = access
	}
	if refresh != "" {
		current.Refresh = refresh
	}
	return current
}

// NewMemoryStore creates an in-memory store, optionally seeded with tokens.
func NewMemoryStore(options ...MemoryStoreOption) Store {
	ret := &memoryStore{}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

type MemoryStoreOption func(*memoryStore)

// WithTokens seeds the store with a token pair
func WithTokens(access, refresh string) MemoryStoreOption {
	return func(m *memoryStore) {
		m.tokens = TokenPair{Access: access, Refresh: refresh}
	}
}

// WithIdentifier seeds the store with an identifier
func WithIdentifier(identifier string) MemoryStoreOption {
	return func(m *memoryStore) {
		m.identifier = identifier
	}
}
