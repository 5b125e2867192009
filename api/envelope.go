package api

import (
	"bytes"
	"encoding/json"
)

// Envelope represents the unified response shape
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrap returns the envelope data, or the raw body when data is absent or null
func unwrap(body []byte) []byte {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return body
	}
	return data
}
