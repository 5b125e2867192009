package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ReasonVersionConflict is the data.error value of a stale settings update
const ReasonVersionConflict = "version_conflict"

// Error represents a non-2xx backend response
type Error struct {
	StatusCode int
	Code       int
	Message    string
	Reason     string
	Body       string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Conflict returns true when the server rejected a stale version
func (e *Error) Conflict() bool {
	return e.StatusCode == http.StatusConflict || e.Code == http.StatusConflict || e.Reason == ReasonVersionConflict
}

// Unauthorized returns true for a 401 response
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func newError(statusCode int, body []byte) *Error {
	ret := &Error{StatusCode: statusCode, Body: string(body)}
	var envelope struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Data    *struct {
			Error string `json:"error"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		ret.Message = strings.TrimSpace(string(body))
		return ret
	}
	ret.Code = envelope.Code
	ret.Message = envelope.Message
	if ret.Message == "" {
		ret.Message = envelope.Detail
	}
	if envelope.Data != nil {
		ret.Reason = envelope.Data.Error
	}
	return ret
}
