package ocrolus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DocState is the observed ingestion state of one uploaded document.
// A document moves pending → {verified, rejected}; this client only
// observes the state, it never transitions it.
type DocState string

const (
	StatePending  DocState = "pending"
	StateVerified DocState = "verified"
	StateRejected DocState = "rejected"
	StateOther    DocState = "other"
)

// StatusFetchError reports a non-JSON response or an explicit error status
// from the status endpoint.
type StatusFetchError struct {
	BookPK         string
	HTTPStatus     int
	PlatformStatus int
	Body           string
}

func (e *StatusFetchError) Error() string {
	return fmt.Sprintf("fetching status for book %s: http %d, platform status %d: %s",
		e.BookPK, e.HTTPStatus, e.PlatformStatus, e.Body)
}

// DocStatus is the status of one document within a book.
type DocStatus struct {
	ID          string
	Name        string
	State       DocState
	Reason      string // set when rejected
	Description string // optional rejection detail
}

// Report is a point-in-time snapshot of a book's ingestion status. A report
// with zero documents is valid. Rejected > 0 is advisory; callers decide
// whether to treat it as fatal.
type Report struct {
	BookPK   string
	Total    int
	Verified int
	Rejected int
	Docs     []DocStatus
}

// BookStatus fetches the current ingestion status of a book. Single
// snapshot; no polling or retries.
func (c *Client) BookStatus(ctx context.Context, bookPK string) (*Report, error) {
	q := url.Values{}
	q.Set("pk", bookPK)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/book/status?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request for book %s: %w", bookPK, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StatusFetchError{BookPK: bookPK, HTTPStatus: resp.StatusCode}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &StatusFetchError{BookPK: bookPK, HTTPStatus: resp.StatusCode, Body: string(body)}
	}

	status, ok := statusField(doc)
	if !ok || status != SuccessStatus {
		return nil, &StatusFetchError{BookPK: bookPK, HTTPStatus: resp.StatusCode, PlatformStatus: status, Body: string(body)}
	}

	report := &Report{BookPK: bookPK}
	payload, _ := doc["response"].(map[string]interface{})
	docs, _ := payload["docs"].([]interface{})
	for _, item := range docs {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ds := DocStatus{
			ID:    stringField(entry, "pk"),
			Name:  stringField(entry, "name"),
			State: normalizeState(stringField(entry, "status")),
		}
		if ds.State == StateRejected {
			ds.Reason = stringField(entry, "reject_reason")
			ds.Description = stringField(entry, "reject_description")
		}
		report.Docs = append(report.Docs, ds)
		report.Total++
		switch ds.State {
		case StateVerified:
			report.Verified++
		case StateRejected:
			report.Rejected++
		}
	}
	return report, nil
}

func normalizeState(s string) DocState {
	switch strings.ToUpper(s) {
	case "PENDING", "VERIFYING", "UPLOADING":
		return StatePending
	case "VERIFIED", "COMPLETE", "COMPLETED":
		return StateVerified
	case "REJECTED", "FAILED":
		return StateRejected
	default:
		return StateOther
	}
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
