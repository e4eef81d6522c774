package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithContextAddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-7")
	log.WithContext(ctx).Info("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["request_id"] != "req-1" || record["user_id"] != "user-7" {
		t.Fatalf("context values missing from record: %v", record)
	}
}

func TestStatusTransitionFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.StatusTransition("lead-1", "new", "contacted", "contact_attempted", false)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if record["msg"] != "lead_status_transition" || record["to"] != "contacted" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestDatabaseErrorIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.DatabaseError("noop", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for nil error, got %q", buf.String())
	}
}
