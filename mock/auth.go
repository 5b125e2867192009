package mock

import (
	"net/http"

	"github.com/google/uuid"
)

func (s *ChatService) addAccount(username, email, password string) *Account {
	account := &Account{UUID: uuid.New().String(), Username: username, Email: email, Password: password, Role: "user"}
	s.accounts.Put(username, account)
	return account
}

// lookup finds an account by username or email
func (s *ChatService) lookup(identifier string) (*Account, bool) {
	if account, ok := s.accounts.Get(identifier); ok {
		return account, true
	}
	var ret *Account
	s.accounts.Range(func(_ string, account *Account) bool {
		if account.Email == identifier {
			ret = account
			return false
		}
		return true
	})
	return ret, ret != nil
}

func (s *ChatService) loginHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	account, ok := s.lookup(body.Identifier)
	if !ok || account.Password != body.Password {
		failure(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	tokens, err := s.issueTokens(account.Username)
	if err != nil {
		failure(w, http.StatusInternalServerError, "Server error")
		return
	}
	success(w, tokens)
}

func (s *ChatService) requestCodeHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Email string `json:"email"`
	}{}
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := s.lookup(body.Email); ok {
		failure(w, http.StatusBadRequest, "Email already registered")
		return
	}
	s.codes.Put(body.Email, s.VerificationCode)
	respond(w, http.StatusOK, "Verification code sent", nil)
}

func (s *ChatService) verifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	code, ok := s.codes.Get(body.Email)
	if !ok || code != body.Code {
		failure(w, http.StatusBadRequest, "Invalid or expired code")
		return
	}
	s.codes.Delete(body.Email)
	session := uuid.New().String()
	s.sessions.Put(session, body.Email)
	success(w, map[string]string{"session": session})
}

func (s *ChatService) registerHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Session  string `json:"session"`
		Username string `json:"username"`
		Password string `json:"password"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	email, ok := s.sessions.Get(body.Session)
	if _, taken := s.accounts.Get(body.Username); !ok || taken || body.Username == "" {
		failure(w, http.StatusBadRequest, "Invalid session, username taken, or other error")
		return
	}
	s.sessions.Delete(body.Session)
	account := s.addAccount(body.Username, email, body.Password)
	respond(w, http.StatusCreated, "Created", map[string]any{
		"uuid":      account.UUID,
		"username":  account.Username,
		"email":     account.Email,
		"role":      account.Role,
		"is_active": true,
	})
}

func (s *ChatService) refreshHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if s.failRefresh.Load() {
		failure(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	claims, err := s.verifyJWT(body.RefreshToken, refreshTokenType)
	if err != nil {
		failure(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if revoked, _ := s.revoked.Get(body.RefreshToken); revoked {
		failure(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	subject, _ := claims["sub"].(string)
	tokens, err := s.issueTokens(subject)
	if err != nil {
		failure(w, http.StatusInternalServerError, "Server error")
		return
	}
	success(w, tokens)
}

func (s *ChatService) logoutHandler(w http.ResponseWriter, r *http.Request) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := s.verifyJWT(body.RefreshToken, refreshTokenType); err != nil {
		failure(w, http.StatusBadRequest, "Invalid refresh token")
		return
	}
	s.revoked.Put(body.RefreshToken, true)
	respond(w, http.StatusOK, "Logged out successfully", nil)
}
