package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/viant/khub/transport"
	"golang.org/x/oauth2"
)

const refreshPath = "api/v1/auth/refresh"

// Refresher exchanges a refresh token over the raw transport
type Refresher struct {
	baseURL string
	client  *http.Client
}

// Refresh posts the refresh token and returns the issued pair; an absent
// refresh token in the response leaves the field empty.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tokens := &Tokens{}
	err := call(transport.WithSkipAuth(ctx), r.client, http.MethodPost, endpoint(r.baseURL, refreshPath, nil),
		map[string]string{"refresh_token": refreshToken}, tokens)
	if err != nil {
		return nil, err
	}
	return tokens.OAuth2(), nil
}

// NewRefresher creates a refresher; client must not route through the authenticated pipeline
func NewRefresher(baseURL string, client *http.Client) *Refresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Refresher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

var _ transport.Refresher = (*Refresher)(nil)
