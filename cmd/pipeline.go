package cmd

import (
	"fmt"

	"github.com/andresmejia3/faceguard/internal/classifier"
	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/detector"
	"github.com/andresmejia3/faceguard/internal/detector/haar"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/model"
	"github.com/andresmejia3/faceguard/internal/model/dnn"
	"github.com/andresmejia3/faceguard/internal/pipeline"
	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

// addPipelineFlags registers the recognition overrides on cmd
func addPipelineFlags(cmd *cobra.Command, opts *Options) {
	f := cmd.Flags()
	f.IntVar(&opts.ImageWidth, "image-width", 0, "Classifier input width in pixels (required unless set in config)")
	f.IntVar(&opts.ImageHeight, "image-height", 0, "Classifier input height in pixels (required unless set in config)")
	f.IntVar(&opts.Channels, "channels", 3, "Classifier input channels: 3 (colour) or 1 (luma)")
	f.StringVarP(&opts.ModelPath, "model", "m", "", "Model artifact (.onnx, .pb, .tflite, .h5, .keras)")
	f.StringVar(&opts.Cascade, "cascade", "", "Detector cascade file")
	f.StringVar(&opts.Detector, "detector", "", "Detector backend: haar or pigo")
	f.StringVar(&opts.CropPolicy, "crop-policy", "", "Out-of-frame crops: clamp or reject")
	f.Float64VarP(&opts.Threshold, "threshold", "t", 0.9, "Minimum confidence to unlock")
	f.StringVar(&opts.Policy, "policy", "", "Face selection when several are found: first, confidence or largest")
}

// applyFlags copies explicitly set flags over the configuration
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts Options) {
	f := cmd.Flags()
	set := func(name string) bool {
		fl := f.Lookup(name)
		return fl != nil && fl.Changed
	}

	if set("image-width") {
		cfg.Image.Width = opts.ImageWidth
	}
	if set("image-height") {
		cfg.Image.Height = opts.ImageHeight
	}
	if set("channels") {
		cfg.Image.Channels = opts.Channels
	}
	if set("model") {
		cfg.Model.Path = opts.ModelPath
	}
	if set("cascade") {
		cfg.Detector.Cascade = opts.Cascade
	}
	if set("detector") {
		cfg.Detector.Backend = opts.Detector
	}
	if set("crop-policy") {
		cfg.Image.CropPolicy = opts.CropPolicy
	}
	if set("threshold") {
		cfg.Gate.Threshold = opts.Threshold
	}
	if set("policy") {
		cfg.Gate.Policy = opts.Policy
	}
	if set("camera") {
		cfg.Camera.Backend = opts.Camera
	}
	if set("device") {
		cfg.Camera.Device = opts.Device
	}
	if set("hardware") {
		cfg.Hardware.Backend = opts.Hardware
	}
	if set("serial-port") {
		cfg.Hardware.Port = opts.SerialPort
	}
}

func openDetector(cfg config.Config) (detector.Detector, error) {
	settings := cfg.DetectorSettings()
	if cfg.Detector.Backend == "pigo" {
		return detector.LoadPigo(cfg.Detector.Cascade, settings)
	}
	return haar.Load(cfg.Detector.Cascade, settings)
}

// buildPipeline loads the detector and the model once. The returned fingerprint identifies the model artifact.
func buildPipeline(cfg config.Config) (*pipeline.Pipeline, string, error) {
	pre, err := preprocess.New(preprocess.Config{
		Width:    cfg.Image.Width,
		Height:   cfg.Image.Height,
		Channels: cfg.Image.Channels,
		Order:    preprocess.ChannelOrder(cfg.Image.Order),
		Policy:   preprocess.CropPolicy(cfg.Image.CropPolicy),
	})
	if err != nil {
		return nil, "", err
	}

	modelID, err := utils.ModelFingerprint(cfg.Model.Path)
	if err != nil {
		return nil, "", fmt.Errorf("model artifact: %w", err)
	}

	det, err := openDetector(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load detector: %w", err)
	}

	m, err := model.Open(model.Options{
		Path:    cfg.Model.Path,
		Shape:   pre.Shape(),
		Layout:  dnn.Layout(cfg.Model.Layout),
		Threads: cfg.Model.Threads,
		Script:  cfg.Model.Script,
	})
	if err != nil {
		closeDetector(det)
		return nil, "", fmt.Errorf("failed to load model: %w", err)
	}

	p, err := pipeline.New(det, pre, classifier.New(m), *logger.Named("pipeline"))
	if err != nil {
		m.Close()
		closeDetector(det)
		return nil, "", err
	}
	return p, modelID, nil
}

func closeDetector(d detector.Detector) {
	if c, ok := d.(interface{ Close() error }); ok {
		c.Close()
	}
}
