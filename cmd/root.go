package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/store"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

// Options holds the flag overrides shared by the run and recognize commands
type Options struct {
	ImageWidth  int
	ImageHeight int
	Channels    int
	ModelPath   string
	Cascade     string
	Detector    string
	CropPolicy  string
	Threshold   float64
	Policy      string
	Camera      string
	Device      string
	Hardware    string
	SerialPort  string
}

var (
	// DB is the global journal shared by subcommands
	DB store.Journal
	// Cfg is the loaded configuration, before per-command flag overrides
	Cfg config.Config

	dbURL      string
	configPath string
	logLevel   string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "faceguard",
	Short:         "Face recognition access gate controller",
	Version:       Version, // This enables the --version flag
	SilenceErrors: true,    // Execute prints errors itself
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := logger.FromEnv()
		if logLevel != "" {
			opts.Level = logLevel
		}
		logger.Init(opts)

		var err error
		Cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbURL == "" {
			dbURL = Cfg.Database
		}

		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.Open(cmd.Context(), dbURL)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to close the journal cleanly.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		if DB != nil {
			DB.Close(context.Background())
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Journal: postgres:// URL or SQLite file path (default: faceguard.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (default: ./faceguard.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default: $FACEGUARD_LOG_LEVEL or info)")
}

// reportedError marks an error whose banner a command has already shown
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// fail shows the error banner and returns err marked as reported.
// RunE commands use it instead of utils.Die when deferred cleanup must still run.
func fail(context string, err error) error {
	utils.ShowError(context, err, nil)
	return reportedError{err}
}

// reportError prints err unless a command already showed its banner
func reportError(w io.Writer, err error) {
	var reported reportedError
	if errors.As(err, &reported) {
		return
	}
	fmt.Fprintln(w, err)
}
