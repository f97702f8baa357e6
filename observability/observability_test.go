package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestZerologFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(LogConfig{Level: "debug", Output: &buf}).With(String("request_id", "r1"))
	log.Debug("page done",
		Int("page", 2),
		Float64("ratio", 0.5),
		Bool("font", true),
		Duration("took", time.Second),
		Error("error", errors.New("boom")),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["message"] != "page done" || entry["request_id"] != "r1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry["page"] != float64(2) || entry["font"] != true || entry["error"] != "boom" {
		t.Fatalf("unexpected fields: %+v", entry)
	}
}

func TestZerologLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(LogConfig{Level: "warn", Output: &buf})
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("warn should be written")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != zerolog.DebugLevel {
		t.Fatal("expected debug")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("expected info fallback")
	}
}
