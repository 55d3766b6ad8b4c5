// Package gate runs the access control loop.
//
// The gate is LOCKED at startup and after shutdown. While LOCKED, a trigger press captures one frame
// and the gate unlocks only if the selected face is recognized with enough confidence; anything else
// sounds the alert. While UNLOCKED, a press relocks without looking at the camera.
package gate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/andresmejia3/faceguard/internal/camera"
	"github.com/andresmejia3/faceguard/internal/hardware"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State of the lock
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "UNLOCKED"
	}
	return "LOCKED"
}

// Recognizer turns a frame into matches in detector order
type Recognizer interface {
	Recognize(frame image.Image) ([]types.Match, error)
}

// Recorder journals decisions
type Recorder interface {
	RecordEvent(ctx context.Context, e types.AccessEvent) error
}

// Config holds the decision and timing constants
type Config struct {
	Threshold     float64       // minimum confidence to unlock
	AlertDuration time.Duration // how long the rejection alert sounds
	PollInterval  time.Duration // button sampling period
	Bounce        time.Duration // debounce window of the trigger
	Policy        Policy
	ModelID       string // recorded with every event
}

func DefaultConfig() Config {
	return Config{
		Threshold:     0.9,
		AlertDuration: time.Second,
		PollInterval:  10 * time.Millisecond,
		Bounce:        hardware.DefaultBounce,
		Policy:        PolicyFirst,
	}
}

func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v outside [0,1]", c.Threshold)
	}
	if c.AlertDuration < 0 || c.Bounce < 0 {
		return errors.New("durations must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	_, err := ParsePolicy(string(c.Policy))
	return err
}

// Gate owns the camera, the recognizer and the lock state
type Gate struct {
	cfg        Config
	camera     camera.Source
	recognizer Recognizer
	trigger    *hardware.DebouncedTrigger
	actuator   hardware.Actuator
	alert      hardware.Alert
	recorder   Recorder
	log        zerolog.Logger

	state State
	now   func() time.Time
	wait  func(ctx context.Context, d time.Duration)
}

// Option customizes a Gate
type Option func(*Gate)

func WithRecorder(r Recorder) Option { return func(g *Gate) { g.recorder = r } }

func WithLogger(l zerolog.Logger) Option { return func(g *Gate) { g.log = l } }

// WithClock replaces time.Now and the alert wait, for tests
func WithClock(now func() time.Time, wait func(ctx context.Context, d time.Duration)) Option {
	return func(g *Gate) {
		g.now = now
		g.wait = wait
	}
}

// New builds a gate. It does not touch the hardware until Start.
func New(cfg Config, cam camera.Source, rec Recognizer, dev *hardware.Devices, opts ...Option) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyFirst
	}
	if cam == nil || rec == nil || dev == nil || dev.Button == nil || dev.Actuator == nil || dev.Alert == nil {
		return nil, errors.New("gate needs a camera, a recognizer and all three peripherals")
	}

	g := &Gate{
		cfg:        cfg,
		camera:     cam,
		recognizer: rec,
		actuator:   dev.Actuator,
		alert:      dev.Alert,
		log:        zerolog.Nop(),
		state:      Locked,
		now:        time.Now,
		wait:       sleepCtx,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.trigger = hardware.NewDebouncedTrigger(dev.Button, cfg.Bounce)
	return g, nil
}

// State reports the current lock state
func (g *Gate) State() State { return g.state }

// Start drives the actuator to the locked position
func (g *Gate) Start() error {
	g.state = Locked
	if err := g.actuator.Min(); err != nil {
		return fmt.Errorf("failed to lock actuator: %w", err)
	}
	g.log.Info().Stringer("state", g.state).Float64("threshold", g.cfg.Threshold).
		Str("policy", string(g.cfg.Policy)).Msg("gate ready")
	return nil
}

// Run polls the trigger until ctx is cancelled or a press fails fatally.
// Cancellation returns nil; the caller still owes a Shutdown.
func (g *Gate) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if !g.trigger.Poll(g.now()) {
			continue
		}
		if _, err := g.HandlePress(ctx); err != nil {
			return err
		}
	}
}

// HandlePress performs one press worth of work and returns the decision it reached.
// An error means the gate cannot keep operating.
func (g *Gate) HandlePress(ctx context.Context) (types.Decision, error) {
	if g.state == Unlocked {
		if err := g.actuator.Min(); err != nil {
			return "", fmt.Errorf("failed to relock actuator: %w", err)
		}
		g.state = Locked
		g.record(ctx, types.DecisionRelocked, nil, types.Match{}, false)
		return types.DecisionRelocked, nil
	}

	frame, ok := g.camera.ReadFrame()
	if !ok {
		g.log.Warn().Msg("frame read failed, press ignored")
		g.record(ctx, types.DecisionSkipped, nil, types.Match{}, false)
		return types.DecisionSkipped, nil
	}

	matches, err := g.recognizer.Recognize(frame)
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	selected, found := Select(matches, g.cfg.Policy)
	switch {
	case !found:
		g.record(ctx, types.DecisionNoFace, matches, selected, false)
		return types.DecisionNoFace, g.reject(ctx)

	case selected.Prediction.Confidence >= g.cfg.Threshold:
		if err := g.actuator.Max(); err != nil {
			return "", fmt.Errorf("failed to unlock actuator: %w", err)
		}
		g.state = Unlocked
		g.record(ctx, types.DecisionGranted, matches, selected, true)
		return types.DecisionGranted, nil

	default:
		g.record(ctx, types.DecisionDenied, matches, selected, true)
		return types.DecisionDenied, g.reject(ctx)
	}
}

// reject sounds the alert for the configured duration. The alert is switched off even if ctx ends early.
func (g *Gate) reject(ctx context.Context) error {
	if err := g.alert.On(); err != nil {
		return fmt.Errorf("failed to sound alert: %w", err)
	}
	g.wait(ctx, g.cfg.AlertDuration)
	if err := g.alert.Off(); err != nil {
		return fmt.Errorf("failed to silence alert: %w", err)
	}
	return nil
}

func (g *Gate) record(ctx context.Context, d types.Decision, matches []types.Match, selected types.Match, hasSelection bool) {
	e := types.AccessEvent{
		ID:       uuid.NewString(),
		At:       g.now().UTC(),
		Decision: d,
		Label:    -1,
		Faces:    len(matches),
		ModelID:  g.cfg.ModelID,
	}
	if hasSelection {
		e.Label = selected.Prediction.Label
		e.Confidence = selected.Prediction.Confidence
	}

	ev := g.log.Info()
	if d != types.DecisionGranted && d != types.DecisionRelocked {
		ev = g.log.Warn()
	}
	ev.Str("decision", string(d)).Int("faces", e.Faces).Int("label", e.Label).
		Float64("confidence", e.Confidence).Stringer("state", g.state).Msg("press handled")

	if g.recorder == nil {
		return
	}
	// Journal trouble never changes what the gate does
	if err := g.recorder.RecordEvent(context.WithoutCancel(ctx), e); err != nil {
		g.log.Error().Err(err).Str("event", e.ID).Msg("failed to journal event")
	}
}

// Shutdown forces the actuator locked, silences the alert and releases the camera and recognizer
func (g *Gate) Shutdown() error {
	g.state = Locked
	errs := []error{g.actuator.Min(), g.alert.Off(), g.camera.Close()}
	if c, ok := g.recognizer.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	err := errors.Join(errs...)
	if err != nil {
		g.log.Error().Err(err).Msg("shutdown incomplete")
	} else {
		g.log.Info().Msg("gate locked, devices released")
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
