package cmd

import (
	"fmt"
	"strconv"

	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label <label_index> <name>",
	Short: "Assign a display name to a classifier label index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		label, err := strconv.Atoi(args[0])
		if err != nil {
			utils.Die("Invalid label index", err, nil)
		}
		name := args[1]

		// Database is initialized in Root PersistentPreRun
		if err := DB.SetLabel(cmd.Context(), label, name); err != nil {
			utils.Die("Failed to label identity", err, nil)
		}

		fmt.Printf("✅ Label %d named '%s'\n", label, name)
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}
