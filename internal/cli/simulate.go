package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/theeagle2407/Vigil/internal/app"
)

var (
	simulateFrom     string
	simulateTo       string
	simulateValue    string
	simulateData     string
	simulateContract string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate a synthetic transaction through the analysis pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTo == "" {
			return errors.New("--to is required")
		}

		opts := app.SimulateOptions{
			From:            simulateFrom,
			To:              simulateTo,
			Value:           simulateValue,
			Data:            simulateData,
			ContractAddress: simulateContract,
		}

		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateFrom, "from", "", "Sender address")
	simulateCmd.Flags().StringVar(&simulateTo, "to", "", "Recipient address")
	simulateCmd.Flags().StringVar(&simulateValue, "value", "0", "Transfer value in USD")
	simulateCmd.Flags().StringVar(&simulateData, "data", "", "Calldata hex")
	simulateCmd.Flags().StringVar(&simulateContract, "contract", "", "Contract address, if interacting with one")
}
