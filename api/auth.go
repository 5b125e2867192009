package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/viant/khub/transport"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Tokens represents issued credentials
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// OAuth2 converts tokens to an oauth2 token
func (t *Tokens) OAuth2() *oauth2.Token {
	return &oauth2.Token{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, TokenType: t.TokenType}
}

// User represents a registered account
type User struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Login authenticates identifier (username or email) and persists the issued tokens
func (c *Client) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	tokens := &Tokens{}
	err := call(transport.WithSkipAuth(ctx), c.http, http.MethodPost, c.url("api/v1/auth/login", nil),
		map[string]string{"identifier": identifier, "password": password}, tokens)
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, transport.ErrNoAccessToken
	}
	if err = c.store.SetTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		return nil, err
	}
	if err = c.store.SetIdentifier(identifier); err != nil {
		return nil, err
	}
	c.logger.Debug("logged in", zap.String("identifier", identifier))
	return tokens, nil
}

// RequestCode asks for an email verification code
func (c *Client) RequestCode(ctx context.Context, email string) error {
	return call(transport.WithSkipAuth(ctx), c.raw, http.MethodPost, c.url("api/v1/auth/request-code", nil),
		map[string]string{"email": email}, nil)
}

// VerifyCode exchanges an email code for a registration session
func (c *Client) VerifyCode(ctx context.Context, email, code string) (string, error) {
	out := struct {
		Session string `json:"session"`
	}{}
	err := call(transport.WithSkipAuth(ctx), c.raw, http.MethodPost, c.url("api/v1/auth/verify-code", nil),
		map[string]string{"email": email, "code": code}, &out)
	return out.Session, err
}

// RegisterUser finalizes a registration session
func (c *Client) RegisterUser(ctx context.Context, session, username, password string) (*User, error) {
	user := &User{}
	err := call(transport.WithSkipAuth(ctx), c.raw, http.MethodPost, c.url("api/v1/auth/register", nil),
		map[string]string{"session": session, "username": username, "password": password}, user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RefreshToken exchanges token without touching the credential store
func (c *Client) RefreshToken(ctx context.Context, token string) (*Tokens, error) {
	issued, err := NewRefresher(c.baseURL, c.raw).Refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: issued.AccessToken, RefreshToken: issued.RefreshToken, TokenType: issued.TokenType}, nil
}

// Logout revokes refreshToken (the stored one when empty) and clears local credentials.
// Local state is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		refreshToken = c.store.RefreshToken()
	}
	var err error
	if refreshToken != "" {
		err = call(transport.WithSkipAuth(ctx), c.raw, http.MethodPost, c.url("api/v1/auth/logout", nil),
			map[string]string{"refresh_token": refreshToken}, nil)
	}
	return errors.Join(err, c.store.ClearTokens(), c.store.ClearIdentifier())
}
