package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired signals that the session cannot be recovered: the server
// rejected the credentials and no refresh was possible or the refresh failed.
var ErrSessionExpired = errors.New("session expired")

// ErrNoAccessToken is returned by a refresh that did not yield an access token.
var ErrNoAccessToken = errors.New("no access token in refresh response")

// UnauthorizedError captures a 401 response that could not be recovered.
type UnauthorizedError struct {
	StatusCode int
	Body       []byte
}

func (e *UnauthorizedError) Error() string {
	text := strings.TrimSpace(string(e.Body))
	if text == "" {
		return fmt.Sprintf("unauthorized: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("unauthorized: HTTP %d: %s", e.StatusCode, text)
}

func expired(cause error) error {
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

func newUnauthorizedError(resp *http.Response) *UnauthorizedError {
	return &UnauthorizedError{StatusCode: resp.StatusCode, Body: drain(resp)}
}
