package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/streak-tools-mcp/internal/batch"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func createStreakFrame(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(10 + (2*x+3*y)%5)})
		}
	}
	for y := 20; y < 22; y++ {
		for x := 10; x < 70; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "streak-tools-mcp "+Version) {
		t.Errorf("output: got %q", out)
	}
}

func TestConfigCmd(t *testing.T) {
	out, err := execute(t, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	for _, want := range []string{"[detection]", "min_points = 10", "[tracing]", "map_clip_iterations = 10", "[output]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	path := filepath.Join(t.TempDir(), "streaks.toml")
	if err := os.WriteFile(path, []byte("[detection]\nmin_points = 25\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	out, err = execute(t, "config", "--config", path)
	if err != nil {
		t.Fatalf("config --config failed: %v", err)
	}
	if !strings.Contains(out, "min_points = 25") {
		t.Errorf("override not applied:\n%s", out)
	}

	if err := os.WriteFile(path, []byte("[detection]\nmin_pointz = 25\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := execute(t, "config", "--config", path); err == nil {
		t.Error("expected an error for an unknown option")
	}
}

func TestDetectCmd(t *testing.T) {
	dir := t.TempDir()
	frame := createStreakFrame(t, dir, "frame.png")

	out, err := execute(t, "detect", "--no-figures", frame)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "1 streaks in 1 groups") {
		t.Errorf("output: got %q", out)
	}

	resultDir := batch.DefaultDir(frame)
	if _, err := os.Stat(filepath.Join(resultDir, batch.ReportFile)); err != nil {
		t.Errorf("missing report: %v", err)
	}
	if _, err := os.Stat(filepath.Join(resultDir, "all.png")); !os.IsNotExist(err) {
		t.Error("figures written despite --no-figures")
	}
}

func TestDetectCmd_SeveralFrames(t *testing.T) {
	dir := t.TempDir()
	a := createStreakFrame(t, dir, "a.png")
	b := createStreakFrame(t, dir, "b.png")
	outDir := filepath.Join(t.TempDir(), "results")

	out, err := execute(t, "detect", "--out", outDir, a, b)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if lines := strings.Split(strings.TrimRight(out, "\n"), "\n"); len(lines) != 2 {
		t.Errorf("output lines: got %d, want 2:\n%s", len(lines), out)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(outDir, name, "all.png")); err != nil {
			t.Errorf("missing figures for %s: %v", name, err)
		}
	}
}

func TestDetectCmd_Errors(t *testing.T) {
	if _, err := execute(t, "detect"); err == nil {
		t.Error("expected an error without frames")
	}

	frame := createStreakFrame(t, t.TempDir(), "frame.png")
	out, err := execute(t, "detect", "--no-figures", "/nonexistent/frame.png", frame)
	if err == nil {
		t.Error("expected an error when a frame fails")
	}
	if !strings.Contains(out, frame) {
		t.Errorf("remaining frames were not processed: %q", out)
	}
}
