package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/khub/stream"
	"go.uber.org/zap"
)

type (
	// ConversationInput represents a new conversation
	ConversationInput struct {
		Title string `json:"title,omitempty"`
		KBIDs []int  `json:"kb_ids,omitempty"`
		Model string `json:"model,omitempty"`
	}

	Conversation struct {
		ID            int    `json:"id"`
		UID           string `json:"uid"`
		Title         string `json:"title,omitempty"`
		KBIDs         []int  `json:"kb_ids"`
		Model         string `json:"model,omitempty"`
		LastMessageAt string `json:"last_message_at,omitempty"`
	}

	// MessageInput represents a user message with optional generation parameters
	MessageInput struct {
		Content        string   `json:"content"`
		Temperature    *float64 `json:"temperature,omitempty"`
		TopP           *float64 `json:"top_p,omitempty"`
		MaxTokens      *int     `json:"max_tokens,omitempty"`
		Model          string   `json:"model,omitempty"`
		IdempotencyKey string   `json:"idempotency_key,omitempty"`
	}

	Message struct {
		ID               int    `json:"id"`
		Role             string `json:"role"`
		Content          string `json:"content"`
		Model            string `json:"model,omitempty"`
		TokensPrompt     *int   `json:"tokens_prompt,omitempty"`
		TokensCompletion *int   `json:"tokens_completion,omitempty"`
		LatencyMs        *int   `json:"latency_ms,omitempty"`
		CreatedAt        string `json:"created_at,omitempty"`
	}

	// Reply represents a completed exchange
	Reply struct {
		ConversationID   int        `json:"conversation_id"`
		UserMessage      *Message   `json:"user_message"`
		AssistantMessage *Message   `json:"assistant_message"`
		Messages         []*Message `json:"messages,omitempty"`
	}
)

func conversationPath(conversationID int, suffix ...string) string {
	return strings.Join(append([]string{"api/v1/chat/conversations", strconv.Itoa(conversationID)}, suffix...), "/")
}

// withIdempotencyKey returns a copy of input carrying a key
func withIdempotencyKey(input *MessageInput) *MessageInput {
	ret := MessageInput{}
	if input != nil {
		ret = *input
	}
	if ret.IdempotencyKey == "" {
		ret.IdempotencyKey = uuid.New().String()
	}
	return &ret
}

func (c *Client) CreateConversation(ctx context.Context, input *ConversationInput) (*Conversation, error) {
	if input == nil {
		input = &ConversationInput{}
	}
	ret := &Conversation{}
	if err := call(ctx, c.http, http.MethodPost, c.url("api/v1/chat/conversations", nil), input, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// ListConversations returns conversations, most recent first; zero limit uses the server default
func (c *Client) ListConversations(ctx context.Context, limit, offset int) ([]*Conversation, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	var ret []*Conversation
	if err := call(ctx, c.http, http.MethodGet, c.url("api/v1/chat/conversations", query), nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// ListMessages returns messages in ascending order; before, when positive, pages by message id
func (c *Client) ListMessages(ctx context.Context, conversationID, limit, before int) ([]*Message, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if before > 0 {
		query.Set("before", strconv.Itoa(before))
	}
	var ret []*Message
	if err := call(ctx, c.http, http.MethodGet, c.url(conversationPath(conversationID, "messages"), query), nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID int, input *MessageInput) (*Reply, error) {
	ret := &Reply{}
	err := call(ctx, c.http, http.MethodPost, c.url(conversationPath(conversationID, "messages"), nil), withIdempotencyKey(input), ret)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// SendMessageStream posts to the streaming endpoint and invokes onChunk for
// every text delta followed by exactly one Done delta once the request was accepted.
// The call carries the stored access token but never triggers a refresh.
func (c *Client) SendMessageStream(ctx context.Context, conversationID int, input *MessageInput, onChunk func(stream.Delta)) error {
	data, err := json.Marshal(withIdempotencyKey(input))
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(conversationPath(conversationID, "messages", "stream"), nil), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if token := c.store.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.raw.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Body: string(body)}
	}
	decoder := stream.NewDecoder(resp.Body, stream.WithLogger(c.logger))
	for delta := range decoder.All() {
		onChunk(delta)
	}
	if err = decoder.Err(); err != nil {
		c.logger.Debug("stream ended with error", zap.Int("conversation", conversationID), zap.Error(err))
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}
