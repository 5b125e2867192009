package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type (
	conversation struct {
		mux           sync.Mutex
		ID            int
		UID           string
		Owner         string
		Title         string
		KBIDs         []int
		Model         string
		LastMessageAt *time.Time
		messages      []*message
		replies       map[string]map[string]any
	}

	message struct {
		ID        int       `json:"id"`
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		Model     string    `json:"model,omitempty"`
		CreatedAt time.Time `json:"-"`
	}

	messageInput struct {
		Content        string `json:"content"`
		Model          string `json:"model"`
		IdempotencyKey string `json:"idempotency_key"`
	}
)

func (m *message) view() map[string]any {
	return map[string]any{
		"id":         m.ID,
		"role":       m.Role,
		"content":    m.Content,
		"model":      m.Model,
		"created_at": m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (c *conversation) view() map[string]any {
	ret := map[string]any{
		"id":     c.ID,
		"uid":    c.UID,
		"title":  c.Title,
		"kb_ids": c.KBIDs,
		"model":  c.Model,
	}
	if c.LastMessageAt != nil {
		ret["last_message_at"] = c.LastMessageAt.Format(time.RFC3339Nano)
	}
	return ret
}

// Messages returns conversation message contents in order
func (s *ChatService) Messages(conversationID int) []string {
	conv, ok := s.conversations.Get(conversationID)
	if !ok {
		return nil
	}
	conv.mux.Lock()
	defer conv.mux.Unlock()
	var ret []string
	for _, msg := range conv.messages {
		ret = append(ret, msg.Content)
	}
	return ret
}

func (s *ChatService) ownConversation(subject string, id int) (*conversation, bool) {
	conv, ok := s.conversations.Get(id)
	if !ok || conv.Owner != subject {
		return nil, false
	}
	return conv, true
}

func (s *ChatService) createConversationHandler(w http.ResponseWriter, r *http.Request, subject string) {
	body := struct {
		Title string `json:"title"`
		KBIDs []int  `json:"kb_ids"`
		Model string `json:"model"`
	}{}
	if err := decodeBody(r, &body); err != nil {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.KBIDs == nil {
		body.KBIDs = []int{}
	}
	conv := &conversation{
		ID:      s.nextID(),
		UID:     uuid.New().String(),
		Owner:   subject,
		Title:   body.Title,
		KBIDs:   body.KBIDs,
		Model:   body.Model,
		replies: map[string]map[string]any{},
	}
	s.conversations.Put(conv.ID, conv)
	respond(w, http.StatusOK, "Conversation created", conv.view())
}

func (s *ChatService) listConversationsHandler(w http.ResponseWriter, r *http.Request, subject string) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	var owned []*conversation
	s.conversations.Range(func(_ int, conv *conversation) bool {
		if conv.Owner == subject {
			owned = append(owned, conv)
		}
		return true
	})
	slices.SortFunc(owned, func(a, b *conversation) int { return b.ID - a.ID })
	out := make([]map[string]any, 0, len(owned))
	for i := offset; i < len(owned) && len(out) < limit; i++ {
		owned[i].mux.Lock()
		out = append(out, owned[i].view())
		owned[i].mux.Unlock()
	}
	success(w, out)
}

func (s *ChatService) listMessagesHandler(w http.ResponseWriter, r *http.Request, subject string, id int) {
	conv, ok := s.ownConversation(subject, id)
	if !ok {
		failure(w, http.StatusNotFound, "Conversation not found")
		return
	}
	limit := queryInt(r, "limit", 50)
	before := queryInt(r, "before", 0)
	conv.mux.Lock()
	defer conv.mux.Unlock()
	var selected []*message
	for _, msg := range conv.messages {
		if before > 0 && msg.ID >= before {
			continue
		}
		selected = append(selected, msg)
	}
	if len(selected) > limit {
		selected = selected[len(selected)-limit:]
	}
	out := make([]map[string]any, 0, len(selected))
	for _, msg := range selected {
		out = append(out, msg.view())
	}
	success(w, out)
}

// record appends the user message and assistant reply
func (s *ChatService) record(conv *conversation, input *messageInput) (*message, *message) {
	now := time.Now().UTC()
	model := input.Model
	if model == "" {
		model = conv.Model
	}
	user := &message{ID: s.nextID(), Role: "user", Content: input.Content, CreatedAt: now}
	assistant := &message{ID: s.nextID(), Role: "assistant", Content: strings.Join(s.Reply, ""), Model: model, CreatedAt: now}
	conv.messages = append(conv.messages, user, assistant)
	conv.LastMessageAt = &now
	return user, assistant
}

func (s *ChatService) sendMessageHandler(w http.ResponseWriter, r *http.Request, subject string, id int) {
	conv, ok := s.ownConversation(subject, id)
	if !ok {
		failure(w, http.StatusNotFound, "Conversation not found")
		return
	}
	input := &messageInput{}
	if err := decodeBody(r, input); err != nil || input.Content == "" {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conv.mux.Lock()
	defer conv.mux.Unlock()
	if reply, ok := conv.replies[input.IdempotencyKey]; ok && input.IdempotencyKey != "" {
		success(w, reply)
		return
	}
	user, assistant := s.record(conv, input)
	reply := map[string]any{
		"conversation_id":   conv.ID,
		"user_message":      user.view(),
		"assistant_message": assistant.view(),
		"messages":          []map[string]any{user.view(), assistant.view()},
	}
	if input.IdempotencyKey != "" {
		conv.replies[input.IdempotencyKey] = reply
	}
	success(w, reply)
}

func (s *ChatService) streamMessageHandler(w http.ResponseWriter, r *http.Request, subject string, id int) {
	conv, ok := s.ownConversation(subject, id)
	if !ok {
		failure(w, http.StatusNotFound, "Conversation not found")
		return
	}
	input := &messageInput{}
	if err := decodeBody(r, input); err != nil || input.Content == "" {
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	conv.mux.Lock()
	s.record(conv, input)
	conv.mux.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	write := func(frame string) {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", frame)
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = fmt.Fprint(w, ": keepalive\n\n")
	for _, fragment := range s.Reply {
		chunk := map[string]any{"choices": []any{map[string]any{"delta": map[string]any{"content": fragment}}}}
		data, _ := json.Marshal(chunk)
		write(string(data))
	}
	write("[DONE]")
}

func queryInt(r *http.Request, name string, fallback int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}
	ret, err := strconv.Atoi(value)
	if err != nil || ret < 0 {
		return fallback
	}
	return ret
}
