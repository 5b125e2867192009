package khub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/viant/afs"
	"github.com/viant/khub/api"
	"github.com/viant/khub/credential"
	"github.com/viant/khub/settings"
	"github.com/viant/khub/transport"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultTimeoutSeconds = 120

// ClientOptions
//
// defines options for configuring a chat backend client.
type ClientOptions struct {
	BaseURL               string `yaml:"baseURL" json:"baseURL,omitempty"  short:"u" long:"url" env:"KHUB_URL" description:"backend base URL"`
	TokenStoreURL         string `yaml:"tokenStoreURL,omitempty" json:"tokenStoreURL,omitempty"  short:"s" long:"store" description:"token store URL, e.g. /home/me/.khub/credentials.json; in memory when empty"`
	TimeoutSeconds        int    `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty"  long:"timeout" description:"HTTP request timeout in seconds"`
	RefreshTimeoutSeconds int    `yaml:"refreshTimeoutSeconds,omitempty" json:"refreshTimeoutSeconds,omitempty"  long:"refresh-timeout" description:"token refresh timeout in seconds"`

	// Store, if set, replaces the store built from TokenStoreURL.
	Store credential.Store `yaml:"-" json:"-"`
	// Transport is the raw round tripper under the authenticated pipeline.
	Transport http.RoundTripper `yaml:"-" json:"-"`
	// OnSessionExpired is called once credentials were cleared after an unrecoverable 401.
	OnSessionExpired func(ctx context.Context, reason error) `yaml:"-" json:"-"`
	Logger           *zap.Logger                             `yaml:"-" json:"-"`
}

func (c *ClientOptions) Init() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Validate checks required options
func (c *ClientOptions) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("baseURL was empty")
	}
	return nil
}

// Client groups the REST client with the settings store
type Client struct {
	*api.Client
	Settings  *settings.Store
	Transport *transport.RoundTripper
}

// NewClient creates a client with the authenticated pipeline configured via ClientOptions.
func NewClient(ctx context.Context, options *ClientOptions) (*Client, error) {
	options.Init()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	store, err := options.store(ctx)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(options.TimeoutSeconds) * time.Second
	raw := &http.Client{Transport: options.Transport, Timeout: timeout}

	transportOpts := []transport.Option{
		transport.WithStore(store),
		transport.WithTransport(options.Transport),
		transport.WithRefresher(api.NewRefresher(options.BaseURL, raw)),
		transport.WithLogger(options.Logger.Named("transport")),
	}
	if options.OnSessionExpired != nil {
		transportOpts = append(transportOpts, transport.WithSessionExpired(options.OnSessionExpired))
	}
	if options.RefreshTimeoutSeconds > 0 {
		transportOpts = append(transportOpts, transport.WithRefreshTimeout(time.Duration(options.RefreshTimeoutSeconds)*time.Second))
	}
	rt, err := transport.New(transportOpts...)
	if err != nil {
		return nil, err
	}
	apiClient := api.New(options.BaseURL,
		api.WithHTTPClient(&http.Client{Transport: rt, Timeout: timeout}),
		api.WithRawHTTPClient(raw),
		api.WithStore(store),
		api.WithLogger(options.Logger.Named("api")),
	)
	return &Client{
		Client:    apiClient,
		Settings:  settings.NewStore(apiClient, settings.WithLogger(options.Logger.Named("settings"))),
		Transport: rt,
	}, nil
}

func (c *ClientOptions) store(ctx context.Context) (credential.Store, error) {
	if c.Store != nil {
		return c.Store, nil
	}
	if c.TokenStoreURL == "" {
		return credential.NewMemoryStore(), nil
	}
	ret, err := credential.NewFileStore(ctx, c.TokenStoreURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store %v: %w", c.TokenStoreURL, err)
	}
	return ret, nil
}

// LoadOptions reads YAML client options from URL
func LoadOptions(ctx context.Context, URL string) (*ClientOptions, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load options %v: %w", URL, err)
	}
	ret := &ClientOptions{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode options %v: %w", URL, err)
	}
	return ret, nil
}
