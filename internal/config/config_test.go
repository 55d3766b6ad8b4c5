package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/faceguard/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faceguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.05, cfg.Detector.ScaleFactor)
	assert.Equal(t, 10, cfg.Detector.MinNeighbors)
	assert.Equal(t, 32, cfg.Detector.MinWidth)
	assert.Equal(t, 96, cfg.Detector.MinHeight)
	assert.Equal(t, 0.9, cfg.Gate.Threshold)
	assert.Equal(t, time.Second, cfg.Gate.AlertDuration)
	assert.Equal(t, "GPIO17", cfg.Hardware.Servo)
	assert.Equal(t, "GPIO27", cfg.Hardware.Button)
	assert.Equal(t, "GPIO22", cfg.Hardware.Buzzer)
	assert.Equal(t, "first", cfg.Gate.Policy)
	assert.Equal(t, 4, cfg.Camera.Drain)

	// Image geometry has no default
	assert.Error(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
image:
  width: 64
  height: 128
  crop_policy: reject
detector:
  backend: pigo
  cascade: facefinder
gate:
  threshold: 0.8
  policy: largest
  alert_duration: 250ms
hardware:
  backend: serial
  bounce: 5ms
  serial:
    baud_rate: 9600
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Image.Width)
	assert.Equal(t, 128, cfg.Image.Height)
	assert.Equal(t, "reject", cfg.Image.CropPolicy)
	assert.Equal(t, 3, cfg.Image.Channels, "unset keys keep defaults")
	assert.Equal(t, "pigo", cfg.Detector.Backend)
	assert.Equal(t, 10, cfg.Detector.MinNeighbors)
	assert.Equal(t, 250*time.Millisecond, cfg.Gate.AlertDuration)
	assert.Equal(t, 9600, cfg.Hardware.Serial.BaudRate)
	require.NoError(t, cfg.Validate())

	g := cfg.GateSettings()
	assert.Equal(t, gate.PolicyLargest, g.Policy)
	assert.Equal(t, 0.8, g.Threshold)
	assert.Equal(t, 5*time.Millisecond, g.Bounce)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "image:\n  width: 64\n  height: 64\ngate:\n  threshold: 0.8\n")
	t.Setenv("FACEGUARD_IMAGE_WIDTH", "96")
	t.Setenv("FACEGUARD_THRESHOLD", "0.95")
	t.Setenv("FACEGUARD_HARDWARE", "sim")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.Image.Width)
	assert.Equal(t, 64, cfg.Image.Height)
	assert.Equal(t, 0.95, cfg.Gate.Threshold)
	assert.Equal(t, "sim", cfg.Hardware.Backend)
}

func TestBadEnv(t *testing.T) {
	t.Setenv("FACEGUARD_IMAGE_HEIGHT", "tall")
	_, err := Load("")
	assert.ErrorContains(t, err, "FACEGUARD_IMAGE_HEIGHT")
}

func TestExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "image: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Image.Width, base.Image.Height = 64, 64
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"channels", func(c *Config) { c.Image.Channels = 2 }},
		{"detector", func(c *Config) { c.Detector.Backend = "yolo" }},
		{"scale", func(c *Config) { c.Detector.ScaleFactor = 1 }},
		{"camera", func(c *Config) { c.Camera.Backend = "webcam" }},
		{"drain", func(c *Config) { c.Camera.Drain = -1 }},
		{"hardware", func(c *Config) { c.Hardware.Backend = "usb" }},
		{"threshold", func(c *Config) { c.Gate.Threshold = -0.1 }},
		{"policy", func(c *Config) { c.Gate.Policy = "random" }},
		{"model", func(c *Config) { c.Model.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
