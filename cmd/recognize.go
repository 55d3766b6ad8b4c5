package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/andresmejia3/faceguard/internal/camera"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/store"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var recognizeOpts Options

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>...",
	Short: "Run detection and classification over still images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg := Cfg
		applyFlags(cmd, &cfg, recognizeOpts)

		if err := cfg.ValidatePipeline(); err != nil {
			return fail("Invalid configuration", err)
		}

		fmt.Fprintln(os.Stderr, "🚀 Loading detector and model...")
		p, _, err := buildPipeline(cfg)
		if err != nil {
			return fail("Failed to build recognition pipeline", err)
		}
		defer p.Close()

		names, err := store.LabelNames(cmd.Context(), DB)
		if err != nil {
			logger.Named("recognize").Warn().Err(err).Msg("label names unavailable")
		}

		var bar *progressbar.ProgressBar
		if len(args) > 1 {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("🔍 Recognizing"),
				progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
				progressbar.OptionShowCount(),
			)
		}

		results := make([]imageResult, 0, len(args))
		for _, path := range args {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			res := imageResult{Path: path}
			img, err := camera.LoadImage(path)
			if err == nil {
				res.Matches, err = p.Recognize(img)
			}
			res.Err = err
			results = append(results, res)
			if bar != nil {
				bar.Add(1)
			}
		}
		if bar != nil {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}

		writeMatches(os.Stdout, results, names, cfg.Gate.Threshold)
		return nil
	},
}

func init() {
	addPipelineFlags(recognizeCmd, &recognizeOpts)
	rootCmd.AddCommand(recognizeCmd)
}

type imageResult struct {
	Path    string
	Matches []types.Match
	Err     error
}

func labelName(label int, names map[int]string) string {
	if name, ok := names[label]; ok {
		return name
	}
	return fmt.Sprintf("label %d", label)
}

// writeMatches prints one row per face, marking those that would unlock the gate
func writeMatches(out io.Writer, results []imageResult, names map[int]string, threshold float64) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tFACE\tIDENTITY\tCONFIDENCE\tBOX\tUNLOCKS")
	fmt.Fprintln(w, "-----\t----\t--------\t----------\t---\t-------")

	for _, r := range results {
		file := filepath.Base(r.Path)
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s\t-\terror: %v\t\t\t\n", file, r.Err)
		case len(r.Matches) == 0:
			fmt.Fprintf(w, "%s\t-\tno face\t\t\t\n", file)
		}
		for i, m := range r.Matches {
			b := m.Box
			unlocks := "no"
			if m.Prediction.Confidence >= threshold {
				unlocks = "yes"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%.4f\t%dx%d+%d+%d\t%s\n", file, i, labelName(m.Prediction.Label, names),
				m.Prediction.Confidence, b.Width, b.Height, b.X, b.Y, unlocks)
		}
	}
	w.Flush()
}
