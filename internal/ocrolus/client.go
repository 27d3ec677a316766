// Package ocrolus is the client for the Document Platform API: OAuth token
// exchange, multipart book upload, and the one-shot book status report.
package ocrolus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SuccessStatus is the status code the platform embeds in response bodies on
// success, distinct from the transport-level HTTP status.
const SuccessStatus = 200

// Credentials are the OAuth client credentials for the platform.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// AuthError reports a failed token exchange. Unlike the source provider,
// the platform's token endpoint is judged only by whether a non-empty
// access_token came back.
type AuthError struct {
	Body string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ocrolus authentication failed: no access token in response: %s", e.Body)
}

// Client talks to the platform API. The bearer token obtained by
// Authenticate lives on the client for the remainder of the run.
type Client struct {
	hc       *http.Client
	baseURL  string
	tokenURL string
	creds    Credentials
	token    string
}

// NewClient returns an unauthenticated client.
func NewClient(baseURL, tokenURL string, creds Credentials) *Client {
	return &Client{
		hc:       &http.Client{},
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokenURL: tokenURL,
		creds:    creds,
	}
}

// Authenticate exchanges the client credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"client_id":     c.creds.ClientID,
		"client_secret": c.creds.ClientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading token response: %w", err)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.AccessToken == "" {
		return &AuthError{Body: string(body)}
	}

	c.token = parsed.AccessToken
	return nil
}

// statusField pulls the platform's body-level status code out of a decoded
// response.
func statusField(doc map[string]interface{}) (int, bool) {
	switch v := doc["status"].(type) {
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func messageField(doc map[string]interface{}) string {
	if s, ok := doc["message"].(string); ok {
		return s
	}
	return ""
}
