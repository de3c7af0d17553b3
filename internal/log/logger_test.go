package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONRecordsCarryStaticAndComponentAttrs(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Writer: &buf})
	t.Cleanup(func() { Init(Options{}) })

	l := WithOperation(WithComponent("nav"), "scroll")
	l.Info("settled", slog.Int("page", 7))

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output captured")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", line, err)
	}
	if m["app"] != "folio" {
		t.Fatalf("app attr mismatch: %v", m["app"])
	}
	if m["component"] != "nav" || m["op"] != "scroll" {
		t.Fatalf("context attrs mismatch: %v", m)
	}
	if page, ok := m["page"].(float64); !ok || page != 7 {
		t.Fatalf("page attr mismatch: %v", m["page"])
	}
}

func TestConsoleFormatWritesOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "console", Writer: &buf})
	t.Cleanup(func() { Init(Options{}) })

	l := WithComponent("tracker")
	l.Debug("hidden")
	l.Warn("load failed", slog.String("url", "p1.png"), slog.Bool("retry", false))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
	if got := strings.Count(out, "\n"); got != 1 {
		t.Fatalf("expected one line, got %d: %q", got, out)
	}
	for _, want := range []string{"WRN", "load failed", "component=tracker", "url=p1.png", "retry=false"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestNoSinkDiscardsEverything(t *testing.T) {
	Init(Options{Level: "debug"})
	if L().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("logger without a sink should be disabled")
	}
}

func TestFileSinkEnablesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.log")
	Init(Options{Level: "info", File: path})
	t.Cleanup(func() { Init(Options{}) })
	if !L().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("file sink should enable info records")
	}
}
