package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewWritesServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "study-worker", "info")
	logger.Info("document_processed", "document_id", "doc-1", "chunks", 4)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["service"] != "study-worker" || record["msg"] != "document_processed" {
		t.Fatalf("unexpected record %v", record)
	}
	if record["chunks"] != float64(4) {
		t.Fatalf("expected chunks attribute, got %v", record["chunks"])
	}
}

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "study-api", "WARN")
	logger.Info("http_request")
	if buf.Len() != 0 {
		t.Fatalf("expected info record to be dropped, got %s", buf.String())
	}
	logger.Debug("context_selected")
	logger.Warn("retry_attempt")
	if buf.Len() == 0 {
		t.Fatalf("expected warn record to be written")
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		" Warning": slog.LevelWarn,
		"ERROR":    slog.LevelError,
		"info+2":   slog.LevelInfo + 2,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
