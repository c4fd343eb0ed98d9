package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx, log := WithRunLogger(context.Background(), base)
	id := RunIDFromContext(ctx)
	if id == "" {
		t.Fatalf("expected a run id on the context")
	}
	log.Info(ctx, "target down", String("target", "srbm"), Err(errors.New("crashed")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["run_id"] != id || rec["target"] != "srbm" || rec["error"] != "crashed" {
		t.Fatalf("unexpected record %v", rec)
	}
	if FromContext(ctx) != log {
		t.Fatalf("context should carry the run logger")
	}
}

func TestEnsureRunIDKeepsExisting(t *testing.T) {
	ctx := ContextWithRunID(context.Background(), "fixed")
	ctx, id := EnsureRunID(ctx)
	if id != "fixed" || RunIDFromContext(ctx) != "fixed" {
		t.Fatalf("run id = %q, want fixed", id)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "quiet")
	log.Warn(context.Background(), "loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("level filter not applied:\n%s", buf.String())
	}
}

func TestFromContextFallsBackToNoop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext must never return nil")
	}
	if Err(nil).Value != "" {
		t.Fatalf("Err(nil) should carry an empty message")
	}
}
