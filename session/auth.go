package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type LoginResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Authenticate logs in to the gateway and returns the session token.
func Authenticate(ctx context.Context, client *http.Client, authURL, user, password string) (string, error) {
	payload := map[string]string{
		"user":     user,
		"password": password,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if !loginResp.Status {
		return "", fmt.Errorf("authentication failed: %s", loginResp.Message)
	}
	if loginResp.Data.Token == "" {
		return "", fmt.Errorf("authentication failed: empty token")
	}

	return loginResp.Data.Token, nil
}
