package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pairchat/pairchat/internal/proto"
)

// ErrUnauthorized is returned when the server rejects the session credential.
// Callers should clear local credentials and return to login.
var ErrUnauthorized = errors.New("unauthorized")

// Profile is the canonical user profile returned by the auth endpoints.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ConversationSummary is one persisted chat-list entry as served by the REST
// API, keyed by the counterparty id.
type ConversationSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LastMsg         string `json:"last_msg"`
	LastMessageTime int64  `json:"last_message_time"`
	Online          bool   `json:"online"`
}

// Upload describes a stored media attachment.
type Upload struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// APIClient talks to the PairChat REST surface with a bearer credential.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient creates a REST client rooted at baseURL (e.g.
// "http://localhost:8080").
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Verify fetches the canonical profile for the active session identity.
func (c *APIClient) Verify(ctx context.Context, userID string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/api/auth/verify/"+userID, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Conversations fetches the persisted conversation list for a user.
func (c *APIClient) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	var summaries []ConversationSummary
	if err := c.get(ctx, "/api/conversations/"+userID, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// History fetches the full ordered message history between two users.
func (c *APIClient) History(ctx context.Context, userA, userB string) ([]proto.MessagePayload, error) {
	var messages []proto.MessagePayload
	if err := c.get(ctx, "/api/conversation-history/"+userA+"/"+userB, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// FindUser looks up a counterparty by phone number to start a conversation.
func (c *APIClient) FindUser(ctx context.Context, phone string) (*Profile, error) {
	body, err := json.Marshal(map[string]string{"phone": phone})
	if err != nil {
		return nil, err
	}
	var profile Profile
	if err := c.do(ctx, http.MethodPost, "/api/auth/find-user", "application/json", bytes.NewReader(body), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UploadMedia stores an attachment and returns its public URL and mime type.
func (c *APIClient) UploadMedia(ctx context.Context, filename string, r io.Reader) (*Upload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var upload Upload
	if err := c.do(ctx, http.MethodPost, "/api/media/upload", mw.FormDataContentType(), &buf, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *APIClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
