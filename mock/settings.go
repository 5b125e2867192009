package mock

import (
	"maps"
	"net/http"
	"sync"
	"time"
)

var settingFields = map[string]bool{
	"streaming": true, "web_search": true, "default_kb_id": true, "model": true,
	"temperature": true, "top_p": true, "max_tokens": true, "tools": true, "extra": true,
}

type userSettings struct {
	mux       sync.Mutex
	fields    map[string]any
	version   int
	updatedAt time.Time
}

func defaultSettings() *userSettings {
	return &userSettings{
		fields: map[string]any{
			"streaming":     true,
			"web_search":    false,
			"default_kb_id": nil,
			"model":         "mock-model",
			"temperature":   0.3,
			"top_p":         1.0,
			"max_tokens":    1024,
			"tools":         map[string]any{"mcp": false},
			"extra":         map[string]any{},
		},
		version:   1,
		updatedAt: time.Now().UTC(),
	}
}

func (s *ChatService) userSettings(username string) *userSettings {
	ret, _ := s.settings.PutIfAbsent(username, defaultSettings())
	return ret
}

// apply merges patch unconditionally and bumps the version
func (u *userSettings) apply(patch map[string]any) {
	u.mux.Lock()
	defer u.mux.Unlock()
	u.merge(patch)
}

func (u *userSettings) merge(patch map[string]any) {
	for k, v := range patch {
		if settingFields[k] && v != nil {
			u.fields[k] = v
		}
	}
	u.version++
	u.updatedAt = time.Now().UTC()
}

func (u *userSettings) snapshot() map[string]any {
	ret := maps.Clone(u.fields)
	ret["version"] = u.version
	ret["updated_at"] = u.updatedAt.Format(time.RFC3339Nano)
	return ret
}

func (s *ChatService) getSettingsHandler(w http.ResponseWriter, r *http.Request, subject string) {
	settings := s.userSettings(subject)
	settings.mux.Lock()
	defer settings.mux.Unlock()
	success(w, settings.snapshot())
}

// updateSettingsHandler applies a patch when its version matches the stored one
func (s *ChatService) updateSettingsHandler(w http.ResponseWriter, r *http.Request, subject string) {
	patch := map[string]any{}
	if err := decodeBody(r, &patch); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	version, ok := patch["version"].(float64)
	if !ok {
		failure(w, http.StatusBadRequest, "version is required")
		return
	}
	settings := s.userSettings(subject)
	settings.mux.Lock()
	defer settings.mux.Unlock()
	if int(version) != settings.version {
		respond(w, http.StatusConflict, "version conflict", map[string]any{
			"error":   "version_conflict",
			"version": settings.version,
		})
		return
	}
	settings.merge(patch)
	success(w, settings.snapshot())
}
