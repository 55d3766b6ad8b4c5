package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the named classifier labels",
	Run: func(cmd *cobra.Command, args []string) {
		labels, err := DB.ListLabels(cmd.Context())
		if err != nil {
			utils.Die("Failed to list labels", err, nil)
		}

		if len(labels) == 0 {
			fmt.Println("No labels named yet. Use 'faceguard label <index> <name>'.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "LABEL\tNAME\tCREATED")
		fmt.Fprintln(w, "-----\t----\t-------")

		for _, l := range labels {
			fmt.Fprintf(w, "%d\t%s\t%s\n", l.Label, l.Name, l.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
