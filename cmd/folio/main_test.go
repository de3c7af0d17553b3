package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/csheth/folio/internal/config"
)

func TestBuildSource(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "deed.yaml")
	if err := os.WriteFile(manifest, []byte("pages: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		opts options
		want string
	}{
		{name: "dir flag", opts: options{dir: dir}, want: "dir:" + dir},
		{name: "manifest flag", opts: options{manifest: manifest}, want: "manifest:" + manifest},
		{name: "url flag", opts: options{url: "http://example.test/pages"}, want: "http:http://example.test/pages"},
		{name: "positional dir", opts: options{args: []string{dir}}, want: "dir:" + dir},
		{name: "positional manifest", opts: options{args: []string{manifest}}, want: "manifest:" + manifest},
		{name: "positional url", opts: options{args: []string{"https://example.test/x"}}, want: "http:https://example.test/x"},
		{name: "flag wins over args", opts: options{dir: dir, args: []string{manifest}}, want: "dir:" + dir},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := buildSource(tc.opts, nil)
			if err != nil {
				t.Fatalf("buildSource: %v", err)
			}
			if src.Name() != tc.want {
				t.Fatalf("source = %q, want %q", src.Name(), tc.want)
			}
		})
	}
}

func TestBuildSourceErrors(t *testing.T) {
	if _, err := buildSource(options{}, nil); !errors.Is(err, errNoSource) {
		t.Fatalf("err = %v, want errNoSource", err)
	}
	if _, err := buildSource(options{args: []string{filepath.Join(t.TempDir(), "missing")}}, nil); err == nil {
		t.Fatal("missing path should fail")
	}
}

func TestPrintConfigMarksEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvSmoothScroll, "false")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var buf bytes.Buffer
	if err := printConfig(&buf, cfg); err != nil {
		t.Fatalf("printConfig: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "viewer.smooth_scroll = false  (from FOLIO_SMOOTH_SCROLL)\n") {
		t.Fatalf("override not marked:\n%s", out)
	}
	if !strings.Contains(out, "viewer.sidebar_width = 34\n") {
		t.Fatalf("default missing or marked:\n%s", out)
	}
}

func TestWriteConfigSavesLoadableFile(t *testing.T) {
	t.Setenv(config.EnvCacheDir, t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "folio.yaml")
	if err := run(options{configPath: path, writeConfig: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if cfg.Viewer.SidebarWidth != 34 || !cfg.Viewer.SmoothScroll {
		t.Fatalf("viewer = %+v", cfg.Viewer)
	}
}
