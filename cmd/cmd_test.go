package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/store"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/spf13/cobra"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := confirm(bufio.NewReader(strings.NewReader(tt.input)), &out, "Drop?")
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Drop? [y/N]") {
			t.Errorf("prompt not printed, got %q", out.String())
		}
	}
}

func TestApplyFlagsOnlyOverridesChangedFlags(t *testing.T) {
	var opts Options
	c := &cobra.Command{Use: "test"}
	addPipelineFlags(c, &opts)

	if err := c.ParseFlags([]string{"--image-width", "64", "--image-height=128", "--policy", "largest"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg := config.Default()
	cfg.Gate.Threshold = 0.75 // from a config file
	applyFlags(c, &cfg, opts)

	if cfg.Image.Width != 64 || cfg.Image.Height != 128 {
		t.Errorf("Expected 64x128, got %dx%d", cfg.Image.Width, cfg.Image.Height)
	}
	if cfg.Gate.Policy != "largest" {
		t.Errorf("Expected policy largest, got %q", cfg.Gate.Policy)
	}
	// --threshold has a default of 0.9 but was not given, so the file value stays
	if cfg.Gate.Threshold != 0.75 {
		t.Errorf("Expected threshold 0.75 to survive, got %v", cfg.Gate.Threshold)
	}
	if cfg.Image.Channels != 3 {
		t.Errorf("Expected default channels 3, got %d", cfg.Image.Channels)
	}
}

func TestWriteMatches(t *testing.T) {
	results := []imageResult{
		{Path: "/tmp/alice.jpg", Matches: []types.Match{{
			Box:        types.BoundingBox{X: 10, Y: 20, Width: 40, Height: 100},
			Prediction: types.Prediction{Label: 0, Confidence: 0.97},
		}}},
		{Path: "/tmp/empty.jpg"},
		{Path: "/tmp/broken.jpg", Err: errors.New("unexpected EOF")},
		{Path: "/tmp/stranger.png", Matches: []types.Match{{
			Box:        types.BoundingBox{Width: 50, Height: 100},
			Prediction: types.Prediction{Label: 4, Confidence: 0.5},
		}}},
	}

	var out bytes.Buffer
	writeMatches(&out, results, map[int]string{0: "Alice"}, 0.9)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d:\n%s", len(lines), out.String())
	}
	checks := []struct {
		line  int
		parts []string
	}{
		{2, []string{"alice.jpg", "Alice", "0.9700", "40x100+10+20", "yes"}},
		{3, []string{"empty.jpg", "no face"}},
		{4, []string{"broken.jpg", "error: unexpected EOF"}},
		{5, []string{"stranger.png", "label 4", "0.5000", "no"}},
	}
	for _, c := range checks {
		for _, p := range c.parts {
			if !strings.Contains(lines[c.line], p) {
				t.Errorf("line %d %q missing %q", c.line, lines[c.line], p)
			}
		}
	}
}

func TestWriteEvents(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []types.AccessEvent{
		{ID: "b", At: at, Decision: types.DecisionRelocked, Label: -1},
		{ID: "a", At: at, Decision: types.DecisionGranted, Label: 2, Confidence: 0.93, Faces: 1},
	}

	var out bytes.Buffer
	writeEvents(&out, events, map[int]string{2: "Bob"})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[2], "relocked") || strings.Contains(lines[2], "Bob") {
		t.Errorf("unexpected relock row: %q", lines[2])
	}
	if !strings.Contains(lines[3], "granted") || !strings.Contains(lines[3], "Bob") || !strings.Contains(lines[3], "0.9300") {
		t.Errorf("unexpected grant row: %q", lines[3])
	}
}

func TestReportErrorPrintsOnce(t *testing.T) {
	boom := errors.New("camera unplugged")

	var out bytes.Buffer
	reportError(&out, boom)
	if got := out.String(); got != "camera unplugged\n" {
		t.Errorf("Expected plain error line, got %q", got)
	}

	// A command that already showed the banner must not be echoed again
	out.Reset()
	err := fail("Failed to open camera", boom)
	if !errors.Is(err, boom) {
		t.Errorf("Expected the reported error to wrap the cause")
	}
	reportError(&out, fmt.Errorf("run: %w", err))
	if out.Len() != 0 {
		t.Errorf("Expected no second print, got %q", out.String())
	}
}

func TestEventsLimitValidation(t *testing.T) {
	for _, limit := range []int{0, -5} {
		if err := store.ValidateLimit(limit); err == nil {
			t.Errorf("Expected --limit %d to be rejected", limit)
		}
	}
	if err := store.ValidateLimit(1); err != nil {
		t.Errorf("Expected --limit 1 to be accepted, got %v", err)
	}
}
