package mock

import (
	"net/http"
	"strconv"
	"strings"
)

const conversationsPath = "/api/v1/chat/conversations"

// Handler routes HTTP requests to the mock chat backend endpoints.
type Handler struct {
	Server *ChatService
}

// ServeHTTP dispatches incoming HTTP requests based on method and URL path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.Server
	route := r.Method + " " + r.URL.Path
	switch route {
	case "POST /api/v1/auth/login":
		s.loginHandler(w, r)
	case "POST /api/v1/auth/request-code":
		s.requestCodeHandler(w, r)
	case "POST /api/v1/auth/verify-code":
		s.verifyCodeHandler(w, r)
	case "POST /api/v1/auth/register":
		s.registerHandler(w, r)
	case "POST /api/v1/auth/refresh":
		s.refreshCalls.Add(1)
		if s.OnRefresh != nil {
			s.OnRefresh(r)
		}
		s.refreshHandler(w, r)
	case "POST /api/v1/auth/logout":
		s.logoutHandler(w, r)
	case "GET /api/v1/settings/me":
		s.authenticated(w, r, s.getSettingsHandler)
	case "PATCH /api/v1/settings/me":
		s.authenticated(w, r, s.updateSettingsHandler)
	case "POST " + conversationsPath:
		s.authenticated(w, r, s.createConversationHandler)
	case "GET " + conversationsPath:
		s.authenticated(w, r, s.listConversationsHandler)
	default:
		h.conversation(w, r)
	}
}

// conversation routes /api/v1/chat/conversations/{id}/messages[/stream]
func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) {
	s := h.Server
	rest, ok := strings.CutPrefix(r.URL.Path, conversationsPath+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[1] != "messages" {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		s.authenticated(w, r, func(w http.ResponseWriter, r *http.Request, subject string) {
			s.listMessagesHandler(w, r, subject, id)
		})
	case len(parts) == 2 && r.Method == http.MethodPost:
		s.authenticated(w, r, func(w http.ResponseWriter, r *http.Request, subject string) {
			s.sendMessageHandler(w, r, subject, id)
		})
	case len(parts) == 3 && parts[2] == "stream" && r.Method == http.MethodPost:
		s.authenticated(w, r, func(w http.ResponseWriter, r *http.Request, subject string) {
			s.streamMessageHandler(w, r, subject, id)
		})
	default:
		http.NotFound(w, r)
	}
}

// authenticated validates the bearer access token before calling next with the token subject
func (s *ChatService) authenticated(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request, subject string)) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		s.unauthorized.Add(1)
		failure(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	claims, err := s.verifyJWT(raw, accessTokenType)
	if err != nil {
		s.unauthorized.Add(1)
		failure(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	subject, _ := claims["sub"].(string)
	next(w, r, subject)
}
