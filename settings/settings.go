package settings

import (
	"encoding/json"
	"maps"
	"math"
	"time"
)

const (
	VersionKey   = "version"
	UpdatedAtKey = "updated_at"

	StreamingKey   = "streaming"
	WebSearchKey   = "web_search"
	DefaultKBIDKey = "default_kb_id"
	ModelKey       = "model"
	TemperatureKey = "temperature"
	TopPKey        = "top_p"
	MaxTokensKey   = "max_tokens"
)

// Settings represents a snapshot of user settings
type Settings struct {
	Fields    map[string]any `json:"fields"`
	Version   int            `json:"version"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// Clone returns a deep enough copy for callers to mutate Fields
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	ret := *s
	ret.Fields = maps.Clone(s.Fields)
	if s.UpdatedAt != nil {
		at := *s.UpdatedAt
		ret.UpdatedAt = &at
	}
	return &ret
}

// Bool returns a boolean field or fallback when absent
func (s *Settings) Bool(key string, fallback bool) bool {
	if s == nil {
		return fallback
	}
	if v, ok := s.Fields[key].(bool); ok {
		return v
	}
	return fallback
}

// String returns a string field
func (s *Settings) String(key string) string {
	if s == nil {
		return ""
	}
	v, _ := s.Fields[key].(string)
	return v
}

// Float returns a numeric field
func (s *Settings) Float(key string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	return asFloat(s.Fields[key])
}

// Int returns an integral field; a fractional number is not an int
func (s *Settings) Int(key string) (int, bool) {
	f, ok := s.Float(key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// decode lifts version and update time out of a server payload; a payload
// without a version gets fallbackVersion.
func decode(payload map[string]any, fallbackVersion int) *Settings {
	ret := &Settings{Fields: make(map[string]any, len(payload)), Version: fallbackVersion}
	for k, v := range payload {
		switch k {
		case VersionKey:
			if version, ok := asFloat(v); ok && version > 0 {
				ret.Version = int(version)
			}
		case UpdatedAtKey:
			ret.UpdatedAt = asTime(v)
		default:
			ret.Fields[k] = v
		}
	}
	return ret
}

func asFloat(v any) (float64, bool) {
	switch actual := v.(type) {
	case float64:
		return actual, true
	case float32:
		return float64(actual), true
	case int:
		return float64(actual), true
	case int64:
		return float64(actual), true
	case json.Number:
		f, err := actual.Float64()
		return f, err == nil
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"}

func asTime(v any) *time.Time {
	text, ok := v.(string)
	if !ok || text == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if at, err := time.Parse(layout, text); err == nil {
			return &at
		}
	}
	return nil
}
