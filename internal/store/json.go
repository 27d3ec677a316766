package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ValidationError reports a persisted record that is not well-formed JSON.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid JSON in %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// WriteJSON marshals v with indentation and writes it to path, creating
// parent directories as needed. Re-running a write for the same record is
// deterministic: the prior file is overwritten in place.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads path and parses it as a JSON object. A file that exists but
// does not parse is a *ValidationError.
func ReadJSON(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}
	return doc, nil
}

// Remove deletes path if it exists. Used to clean up a partially written
// record when a lenient fetch skips an item.
func Remove(path string) {
	_ = os.Remove(path)
}
