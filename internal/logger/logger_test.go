package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := New("warn", "json", &buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	log.Info().Msg("dropped")
	log.Warn().Str("email", "a@b.co").Msg("kept")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "kept" {
		t.Fatalf("expected warn entry, got %v", entry)
	}
	if entry["service"] != "event-scheduler" {
		t.Fatalf("expected service field, got %v", entry)
	}
}

func TestNewRejectsUnknown(t *testing.T) {
	t.Parallel()

	if _, err := New("loud", "json", nil); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
