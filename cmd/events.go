package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/store"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent access decisions, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		if err := store.ValidateLimit(eventsLimit); err != nil {
			utils.Die("Invalid --limit", err, nil)
		}
		events, err := DB.ListEvents(cmd.Context(), eventsLimit)
		if err != nil {
			utils.Die("Failed to list events", err, nil)
		}
		if len(events) == 0 {
			fmt.Println("No access events recorded.")
			return
		}

		names, err := store.LabelNames(cmd.Context(), DB)
		if err != nil {
			logger.Named("events").Warn().Err(err).Msg("label names unavailable")
		}
		writeEvents(os.Stdout, events, names)
	},
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "Number of events to show")
	rootCmd.AddCommand(eventsCmd)
}

func writeEvents(out io.Writer, events []types.AccessEvent, names map[int]string) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tDECISION\tIDENTITY\tCONFIDENCE\tFACES")
	fmt.Fprintln(w, "----\t--------\t--------\t----------\t-----")

	for _, e := range events {
		identity, confidence := "-", "-"
		if e.Label >= 0 {
			identity = labelName(e.Label, names)
			confidence = fmt.Sprintf("%.4f", e.Confidence)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", e.At.Local().Format("2006-01-02 15:04:05"), e.Decision, identity, confidence, e.Faces)
	}
	w.Flush()
}
