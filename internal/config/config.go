// Package config loads faceguard settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, FACEGUARD_* environment variables
// (a .env file in the working directory is loaded into the environment first), then command flags,
// which the cmd package applies on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/faceguard/internal/detector"
	"github.com/andresmejia3/faceguard/internal/gate"
	"github.com/andresmejia3/faceguard/internal/hardware"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when --config is not given and the file exists
const DefaultFile = "faceguard.yaml"

type Config struct {
	Database string         `yaml:"database"`
	Image    ImageConfig    `yaml:"image"`
	Detector DetectorConfig `yaml:"detector"`
	Model    ModelConfig    `yaml:"model"`
	Camera   CameraConfig   `yaml:"camera"`
	Hardware HardwareConfig `yaml:"hardware"`
	Gate     GateConfig     `yaml:"gate"`
}

// ImageConfig is the classifier input geometry
type ImageConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Channels   int    `yaml:"channels"`
	Order      string `yaml:"order"`       // bgr or rgb
	CropPolicy string `yaml:"crop_policy"` // clamp or reject
}

type DetectorConfig struct {
	Backend      string  `yaml:"backend"` // haar or pigo
	Cascade      string  `yaml:"cascade"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinWidth     int     `yaml:"min_width"`
	MinHeight    int     `yaml:"min_height"`
}

type ModelConfig struct {
	Path    string `yaml:"path"`
	Layout  string `yaml:"layout"` // nhwc or nchw, dnn backend only
	Threads int    `yaml:"threads"`
	Script  string `yaml:"script"` // python worker entry point
}

type CameraConfig struct {
	Backend     string `yaml:"backend"` // opencv, ffmpeg or dir
	Device      string `yaml:"device"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	InputFormat string `yaml:"input_format"` // ffmpeg -f before -i, e.g. v4l2
	Loop        bool   `yaml:"loop"`         // dir backend restarts at the end
	Drain       int    `yaml:"drain"`        // opencv backend skips this many buffered frames per read
}

type HardwareConfig struct {
	Backend string               `yaml:"backend"` // gpio, serial or sim
	Servo   string               `yaml:"servo"`
	Button  string               `yaml:"button"`
	Buzzer  string               `yaml:"buzzer"`
	Port    string               `yaml:"port"`
	Serial  hardware.PortOptions `yaml:"serial"`
	Bounce  time.Duration        `yaml:"bounce"`
}

type GateConfig struct {
	Threshold     float64       `yaml:"threshold"`
	Policy        string        `yaml:"policy"`
	AlertDuration time.Duration `yaml:"alert_duration"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// Default mirrors the settings of the reference door rig
func Default() Config {
	det := detector.DefaultConfig()
	pins := hardware.DefaultGPIOPins()
	g := gate.DefaultConfig()
	return Config{
		Database: "faceguard.db",
		Image:    ImageConfig{Channels: 3, Order: "bgr", CropPolicy: "clamp"},
		Detector: DetectorConfig{
			Backend:      "haar",
			Cascade:      "haar_cascade_face.xml",
			ScaleFactor:  det.ScaleFactor,
			MinNeighbors: det.MinNeighbors,
			MinWidth:     det.MinWidth,
			MinHeight:    det.MinHeight,
		},
		Model:  ModelConfig{Path: "model.onnx", Layout: "nhwc"},
		Camera: CameraConfig{Backend: "opencv", Device: "0", Drain: 4},
		Hardware: HardwareConfig{
			Backend: "gpio",
			Servo:   pins.Servo,
			Button:  pins.Button,
			Buzzer:  pins.Buzzer,
			Port:    "/dev/ttyACM0",
			Bounce:  g.Bounce,
		},
		Gate: GateConfig{
			Threshold:     g.Threshold,
			Policy:        string(g.Policy),
			AlertDuration: g.AlertDuration,
			PollInterval:  g.PollInterval,
		},
	}
}

// Load builds the configuration. An empty path reads DefaultFile if it exists; a named file must exist.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv("FACEGUARD_" + key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		if v, ok := os.LookupEnv("FACEGUARD_" + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("FACEGUARD_%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	str("DB", &cfg.Database)
	str("MODEL", &cfg.Model.Path)
	str("DETECTOR", &cfg.Detector.Backend)
	str("CASCADE", &cfg.Detector.Cascade)
	str("CAMERA", &cfg.Camera.Backend)
	str("CAMERA_DEVICE", &cfg.Camera.Device)
	str("HARDWARE", &cfg.Hardware.Backend)
	str("SERIAL_PORT", &cfg.Hardware.Port)
	str("POLICY", &cfg.Gate.Policy)
	str("CROP_POLICY", &cfg.Image.CropPolicy)

	if err := errors.Join(
		integer("IMAGE_WIDTH", &cfg.Image.Width),
		integer("IMAGE_HEIGHT", &cfg.Image.Height),
	); err != nil {
		return err
	}

	if v := os.Getenv("FACEGUARD_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FACEGUARD_THRESHOLD: %w", err)
		}
		cfg.Gate.Threshold = f
	}
	return nil
}

// DetectorSettings converts to the detector package settings
func (c Config) DetectorSettings() detector.Config {
	return detector.Config{
		ScaleFactor:  c.Detector.ScaleFactor,
		MinNeighbors: c.Detector.MinNeighbors,
		MinWidth:     c.Detector.MinWidth,
		MinHeight:    c.Detector.MinHeight,
	}
}

// GateSettings converts to the gate package settings
func (c Config) GateSettings() gate.Config {
	return gate.Config{
		Threshold:     c.Gate.Threshold,
		AlertDuration: c.Gate.AlertDuration,
		PollInterval:  c.Gate.PollInterval,
		Bounce:        c.Hardware.Bounce,
		Policy:        gate.Policy(c.Gate.Policy),
	}
}

// ValidatePipeline checks what recognition needs: image geometry, detector and model
func (c Config) ValidatePipeline() error {
	var errs []error
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		errs = append(errs, fmt.Errorf("image width and height are required (got %dx%d)", c.Image.Width, c.Image.Height))
	}
	if c.Image.Channels != 1 && c.Image.Channels != 3 {
		errs = append(errs, fmt.Errorf("image channels must be 1 or 3, got %d", c.Image.Channels))
	}
	switch c.Detector.Backend {
	case "haar", "pigo":
	default:
		errs = append(errs, fmt.Errorf("unknown detector backend %q", c.Detector.Backend))
	}
	if c.Detector.Cascade == "" {
		errs = append(errs, errors.New("detector cascade file is required"))
	}
	if err := c.DetectorSettings().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model path is required"))
	}
	return errors.Join(errs...)
}

// Validate checks everything the run command needs
func (c Config) Validate() error {
	errs := []error{c.ValidatePipeline()}
	switch c.Camera.Backend {
	case "opencv", "ffmpeg", "dir":
	default:
		errs = append(errs, fmt.Errorf("unknown camera backend %q", c.Camera.Backend))
	}
	if c.Camera.Drain < 0 {
		errs = append(errs, fmt.Errorf("camera drain must not be negative, got %d", c.Camera.Drain))
	}
	switch c.Hardware.Backend {
	case "gpio", "serial", "sim":
	default:
		errs = append(errs, fmt.Errorf("unknown hardware backend %q", c.Hardware.Backend))
	}
	errs = append(errs, c.GateSettings().Validate())
	return errors.Join(errs...)
}
