package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/csheth/folio/internal/tuitest"
)

func TestFolioNavigatesAndSurvivesResize(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("builds and drives the binary in a PTY")
	}

	cmdDir := moduleDir(t)
	pagesDir := writePageFixtures(t, 3)
	binary := buildBinary(t, cmdDir)
	home := t.TempDir()

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "-no-alt-screen", "-dir", pagesDir},
		Dir:     cmdDir,
		Env: []string{
			"FOLIO_CONFIG=" + filepath.Join(home, "config.yaml"),
			"FOLIO_CACHE_DIR=" + filepath.Join(home, "cache"),
		},
		Width:  100,
		Height: 32,
		Steps: []tuitest.Step{
			{Delay: time.Second},
			{Input: []byte("n")},
			{Delay: time.Second},
			{Resize: &tuitest.Size{Cols: 80, Rows: 28}},
			{Delay: 500 * time.Millisecond},
			{Input: []byte("q")},
		},
		Timeout:        10 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	text := rec.PlainText()
	for _, want := range []string{"page [ 1 ] / 3", "page [ 2 ] / 3", "scan-audit-entry"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output never showed %q:\n%s", want, text)
		}
	}
}

func writePageFixtures(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 1; i <= n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 20, 28))
		shade := uint8(60 * i)
		for y := 0; y < 28; y++ {
			for x := 0; x < 20; x++ {
				img.Set(x, y, color.RGBA{R: shade, G: 255 - shade, B: 128, A: 255})
			}
		}
		f, err := os.Create(filepath.Join(dir, "page"+string(rune('0'+i))+".png"))
		if err != nil {
			t.Fatalf("create fixture: %v", err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("encode fixture: %v", err)
		}
		_ = f.Close()
	}
	if err := os.WriteFile(filepath.Join(dir, "audit.log"), []byte("scan-audit-entry\n"), 0o644); err != nil {
		t.Fatalf("write audit log: %v", err)
	}
	return dir
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	tmp := t.TempDir()
	name := "folio-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(tmp, name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
