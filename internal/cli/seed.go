package cli

import (
	"github.com/spf13/cobra"

	"github.com/theeagle2407/Vigil/internal/app"
)

var (
	seedFile   string
	seedReason string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bulk-load scam addresses from a file into the threat archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SeedOptions{
			File:   seedFile,
			Reason: seedReason,
		}

		return getApp().Seed(cmd.Context(), opts)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "Path to a file of addresses, one per line (address or address,reason)")
	seedCmd.Flags().StringVar(&seedReason, "reason", "", "Default reason for addresses without one")
}
