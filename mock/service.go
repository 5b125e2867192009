package mock

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/khub/internal/collection"
)

// ChatService simulates the chat backend
type ChatService struct {
	PrivateKey *rsa.PrivateKey
	Issuer     string
	// AccessTTL and RefreshTTL control issued token lifetimes
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// VerificationCode is the code accepted by verify-code
	VerificationCode string
	// Reply is streamed back, one fragment per frame
	Reply []string
	// OnRefresh, when set, runs before every refresh request is handled
	OnRefresh func(r *http.Request)

	accounts      *collection.SyncMap[string, *Account]
	codes         *collection.SyncMap[string, string]
	sessions      *collection.SyncMap[string, string]
	revoked       *collection.SyncMap[string, bool]
	settings      *collection.SyncMap[string, *userSettings]
	conversations *collection.SyncMap[int, *conversation]

	generation   atomic.Int64
	sequence     atomic.Int64
	refreshCalls atomic.Int32
	unauthorized atomic.Int32
	failRefresh  atomic.Bool
	mux          sync.Mutex
}

// Account represents a registered user
type Account struct {
	UUID     string
	Username string
	Email    string
	Password string
	Role     string
}

type Option func(s *ChatService)

// WithAccount registers an account
func WithAccount(username, email, password string) Option {
	return func(s *ChatService) {
		s.addAccount(username, email, password)
	}
}

// WithAccessTTL sets access token lifetime
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *ChatService) {
		s.AccessTTL = ttl
	}
}

// WithRefreshHook sets a function run before every refresh request is handled
func WithRefreshHook(hook func(r *http.Request)) Option {
	return func(s *ChatService) {
		s.OnRefresh = hook
	}
}

// WithReply sets streamed reply fragments
func WithReply(fragments ...string) Option {
	return func(s *ChatService) {
		s.Reply = fragments
	}
}

// NewChatService creates a mock chat backend
func NewChatService(opts ...Option) (*ChatService, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %v", err)
	}
	service := &ChatService{
		PrivateKey:       privateKey,
		AccessTTL:        time.Hour,
		RefreshTTL:       24 * time.Hour,
		VerificationCode: "000000",
		Reply:            []string{"Hel", "lo"},
		accounts:         collection.NewSyncMap[string, *Account](),
		codes:            collection.NewSyncMap[string, string](),
		sessions:         collection.NewSyncMap[string, string](),
		revoked:          collection.NewSyncMap[string, bool](),
		settings:         collection.NewSyncMap[string, *userSettings](),
		conversations:    collection.NewSyncMap[int, *conversation](),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Handler returns an http.Handler for all mock endpoints
func (s *ChatService) Handler() http.Handler {
	return &Handler{Server: s}
}

// ExpireAccessTokens invalidates every access token issued so far; refresh tokens stay valid
func (s *ChatService) ExpireAccessTokens() {
	s.generation.Add(1)
}

// FailRefresh makes the refresh endpoint reject every call
func (s *ChatService) FailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

// RefreshCalls returns the number of refresh requests received
func (s *ChatService) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Unauthorized returns the number of 401 responses sent by protected endpoints
func (s *ChatService) Unauthorized() int {
	return int(s.unauthorized.Load())
}

// BumpSettings simulates another client writing settings for username
func (s *ChatService) BumpSettings(username string, patch map[string]any) {
	s.userSettings(username).apply(patch)
}

func (s *ChatService) nextID() int {
	return int(s.sequence.Add(1))
}
