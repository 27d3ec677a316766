// Package finicity is the client for the Source Aggregator API: partner
// authentication, customer/account/institution fetches, and the per-account
// transaction pagination loop.
package finicity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Credentials are the long-lived partner credentials exchanged for a
// short-lived app token.
type Credentials struct {
	PartnerID     string
	PartnerSecret string
	AppKey        string
	CustomerID    string
}

// AuthError reports a failed or empty token exchange.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("finicity authentication failed: status %d: %s", e.StatusCode, e.Body)
	}
	return "finicity authentication failed: empty token in response"
}

// FetchError reports a non-JSON or error response from the source API.
type FetchError struct {
	Resource   string // e.g. "customer", "accounts", "transactions", "institution"
	ID         string // offending identifier where applicable
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching %s", e.Resource)
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the source API. The app token obtained by Authenticate is
// held on the client, not in process-wide state, so independent sessions can
// coexist.
type Client struct {
	hc      *http.Client
	baseURL string
	creds   Credentials
	token   string
}

// NewClient returns an unauthenticated client for the given base URL.
func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		hc:      &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
	}
}

// Authenticate exchanges the partner credentials for an app token. Success
// requires HTTP 200 and a non-empty token field; anything else is an
// *AuthError.
func (c *Client) Authenticate(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"partnerId":     c.creds.PartnerID,
		"partnerSecret": c.creds.PartnerSecret,
	})
	if err != nil {
		return fmt.Errorf("encoding authentication request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/aggregation/v2/partners/authentication", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building authentication request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Finicity-App-Key", c.creds.AppKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("authentication request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading authentication response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Token == "" {
		return &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.token = parsed.Token
	return nil
}

// get performs one authenticated GET and decodes the JSON object response.
func (c *Client) get(ctx context.Context, resource, id, path string, query url.Values) (map[string]interface{}, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, ID: id, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Finicity-App-Key", c.creds.AppKey)
	req.Header.Set("Finicity-App-Token", c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &FetchError{Resource: resource, ID: id, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Resource: resource, ID: id, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Resource: resource, ID: id, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &FetchError{Resource: resource, ID: id, StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	return doc, nil
}
