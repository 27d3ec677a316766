package runlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jehoshua02/ocrolus-finicity-json-poc/internal/logger"
)

func TestLogRecordingProblem_UsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	logRecordingProblem(ctx, "run-42", errors.New("quota exceeded"), "Running run ledger update failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["run_id"] != "run-42" {
		t.Errorf("run_id = %v, want run-42", entry["run_id"])
	}
	if entry["error"] != "quota exceeded" {
		t.Errorf("error = %v, want quota exceeded", entry["error"])
	}
	if entry["message"] != "Running run ledger update failed" {
		t.Errorf("message = %v, want the recording failure message", entry["message"])
	}
}
