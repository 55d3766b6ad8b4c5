package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/faceguard/internal/camera"
	"github.com/andresmejia3/faceguard/internal/camera/cvcapture"
	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/gate"
	"github.com/andresmejia3/faceguard/internal/hardware"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/spf13/cobra"
)

var runOpts Options

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the access gate: press to recognize and unlock, press again to lock",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg := Cfg
		applyFlags(cmd, &cfg, runOpts)
		return runGate(cmd.Context(), cfg)
	},
}

func init() {
	addPipelineFlags(runCmd, &runOpts)
	runCmd.Flags().StringVarP(&runOpts.Camera, "camera", "c", "", "Camera backend: opencv, ffmpeg or dir")
	runCmd.Flags().StringVarP(&runOpts.Device, "device", "d", "", "Camera device index, path, URL or image directory")
	runCmd.Flags().StringVar(&runOpts.Hardware, "hardware", "", "Peripheral backend: gpio, serial or sim")
	runCmd.Flags().StringVar(&runOpts.SerialPort, "serial-port", "", "Serial bridge port (serial backend)")
	rootCmd.AddCommand(runCmd)
}

func runGate(ctx context.Context, cfg config.Config) error {
	log := logger.Named("gate")

	if err := cfg.Validate(); err != nil {
		return fail("Invalid configuration", err)
	}

	fmt.Fprintln(os.Stderr, "🚀 Loading detector and model...")
	p, modelID, err := buildPipeline(cfg)
	if err != nil {
		return fail("Failed to build recognition pipeline", err)
	}

	cam, err := openCamera(ctx, cfg)
	if err != nil {
		p.Close()
		return fail("Failed to open camera", err)
	}

	devs, err := openHardware(cfg)
	if err != nil {
		p.Close()
		cam.Close()
		return fail("Failed to open peripherals", err)
	}
	defer devs.Close()

	settings := cfg.GateSettings()
	settings.ModelID = modelID
	g, err := gate.New(settings, cam, p, devs, gate.WithRecorder(DB), gate.WithLogger(*log))
	if err != nil {
		p.Close()
		cam.Close()
		return fail("Failed to create gate", err)
	}
	// The gate owns camera and model from here; Shutdown releases both
	defer g.Shutdown()

	if err := g.Start(); err != nil {
		return fail("Failed to lock actuator", err)
	}

	// The console simulator can ask to stop as well as a signal
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-devs.Stop:
			log.Info().Msg("stop requested from console")
			cancel()
		case <-runCtx.Done():
		}
	}()

	fmt.Fprintf(os.Stderr, "🔒 Gate armed (model %s). Waiting for the trigger...\n", modelID[:12])
	if err := g.Run(runCtx); err != nil {
		return fail("Gate halted", err)
	}
	fmt.Fprintln(os.Stderr, "\n🛑 Stopping: locking gate and releasing camera.")
	return nil
}

func openCamera(ctx context.Context, cfg config.Config) (camera.Source, error) {
	log := *logger.Named("camera")
	c := cfg.Camera

	switch c.Backend {
	case "dir":
		d, err := camera.OpenDir(c.Device, log)
		if err != nil {
			return nil, err
		}
		d.Loop = c.Loop
		return d, nil

	case "ffmpeg":
		var inputArgs []string
		if c.InputFormat != "" {
			inputArgs = []string{"-f", c.InputFormat}
		}
		if c.Width > 0 && c.Height > 0 {
			inputArgs = append(inputArgs, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
		}
		s, err := camera.OpenFFmpeg(c.Device, inputArgs, log)
		if err != nil {
			return nil, err
		}
		if err := s.WaitReady(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	default:
		vc, err := cvcapture.Open(c.Device, c.Width, c.Height, log)
		if err != nil {
			return nil, err
		}
		vc.Drain = c.Drain
		return vc, nil
	}
}

func openHardware(cfg config.Config) (*hardware.Devices, error) {
	h := cfg.Hardware
	switch strings.ToLower(h.Backend) {
	case "sim":
		fmt.Fprintln(os.Stderr, "🖥️  Simulated rig: press Enter to trigger, type q to quit.")
		return hardware.NewConsole(os.Stdin, os.Stdout).Devices(), nil
	case "serial":
		return hardware.OpenSerial(h.Port, h.Serial, *logger.Named("serial"))
	default:
		return hardware.OpenGPIO(hardware.GPIOPins{Servo: h.Servo, Button: h.Button, Buzzer: h.Buzzer})
	}
}
