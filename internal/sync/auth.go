package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Credentials is the result of a successful register or login: the bearer
// token plus the profile the token identifies.
type Credentials struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// Register creates an account and returns ready-to-use credentials.
func Register(ctx context.Context, baseURL, name, email, phone, password string) (*Credentials, error) {
	return postAuth(ctx, baseURL+"/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"phone":    phone,
		"password": password,
	})
}

// Login exchanges email and password for credentials.
func Login(ctx context.Context, baseURL, email, password string) (*Credentials, error) {
	return postAuth(ctx, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func postAuth(ctx context.Context, url string, payload map[string]string) (*Credentials, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("auth request failed: status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &creds, nil
}
