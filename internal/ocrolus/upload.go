package ocrolus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/store"
)

// Bundle names the transformed record files submitted in one upload.
type Bundle struct {
	BookPK           string
	CustomersPath    string
	AccountsPath     string
	TransactionPaths []string
	InstitutionPaths []string
}

// UploadError reports a rejected or malformed upload.
type UploadError struct {
	Detail         string
	HTTPStatus     int
	PlatformStatus int
	Message        string
	Body           string
}

func (e *UploadError) Error() string {
	msg := "upload failed"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.PlatformStatus != 0 {
		msg += fmt.Sprintf(": platform status %d", e.PlatformStatus)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Body != "" && e.Message == "" {
		msg += ": " + e.Body
	}
	return msg
}

// UploadBundle submits the four record groups as one multipart POST. The
// preconditions are checked before any network I/O: both singular files must
// exist and parse, and there must be at least one transaction page and one
// institution file. On success the decoded response body (carrying the
// platform-assigned document ids) is returned.
//
// Re-uploading into the same book appends documents on the platform side;
// callers must treat upload as at-most-once per desired document.
func (c *Client) UploadBundle(ctx context.Context, bundle Bundle) (map[string]interface{}, error) {
	if err := checkBundle(bundle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("pk", bundle.BookPK); err != nil {
		return nil, fmt.Errorf("writing pk field: %w", err)
	}
	if err := addFilePart(w, "customers", bundle.CustomersPath); err != nil {
		return nil, err
	}
	if err := addFilePart(w, "accounts", bundle.AccountsPath); err != nil {
		return nil, err
	}
	for _, path := range bundle.TransactionPaths {
		if err := addFilePart(w, "transactions", path); err != nil {
			return nil, err
		}
	}
	for _, path := range bundle.InstitutionPaths {
		if err := addFilePart(w, "institutions", path); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	url := c.baseURL + "/v1/book/upload?aggregator=finicity"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	// The bearer token must never reach the logs in the clear.
	log := logger.FromContext(ctx)
	log.Debug().
		Str("url", url).
		Str("authorization", "Bearer [REDACTED]").
		Int("transaction_parts", len(bundle.TransactionPaths)).
		Int("institution_parts", len(bundle.InstitutionPaths)).
		Msg("Uploading bundle")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &UploadError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UploadError{Detail: "reading response", HTTPStatus: resp.StatusCode}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &UploadError{Detail: "non-JSON response", HTTPStatus: resp.StatusCode, Body: string(body)}
	}

	status, ok := statusField(doc)
	if !ok || status != SuccessStatus {
		return nil, &UploadError{
			HTTPStatus:     resp.StatusCode,
			PlatformStatus: status,
			Message:        messageField(doc),
			Body:           string(body),
		}
	}
	return doc, nil
}

func checkBundle(bundle Bundle) error {
	if bundle.BookPK == "" {
		return &UploadError{Detail: "no destination book pk"}
	}
	for _, singular := range []string{bundle.CustomersPath, bundle.AccountsPath} {
		if _, err := store.ReadJSON(singular); err != nil {
			return &UploadError{Detail: err.Error()}
		}
	}
	if len(bundle.TransactionPaths) == 0 {
		return &UploadError{Detail: "no transaction page files to upload"}
	}
	if len(bundle.InstitutionPaths) == 0 {
		return &UploadError{Detail: "no institution files to upload"}
	}
	return nil
}

func addFilePart(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s part %s: %w", field, path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("creating %s part: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying %s part %s: %w", field, path, err)
	}
	return nil
}
