package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pricetrail/reconcile-cli/internal/normalize"
)

var normalizeLineID string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <receipt-id>",
	Short: "Generate ranked product candidates for a receipt's lines",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if normalizeLineID != "" {
			res, err := env.Normalizer.NormalizeLine(ctx, normalizeLineID)
			if err != nil {
				return err
			}
			printLineResults([]normalize.LineResult{res})
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("receipt id or --line is required")
		}

		results, err := env.Normalizer.NormalizeReceipt(ctx, args[0])
		if err != nil {
			return err
		}
		printLineResults(results)
		return nil
	},
}

func printLineResults(results []normalize.LineResult) {
	fmt.Printf("%-36s  %-20s  %-10s  %s\n", "LINE", "STATUS", "CANDIDATES", "SELECTED")
	for _, r := range results {
		selected := r.SelectedProductID
		if r.Error != "" {
			selected = r.Error
		}
		fmt.Printf("%-36s  %-20s  %-10d  %s\n", r.LineID, r.Status, r.CandidateCount, selected)
	}
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeLineID, "line", "", "normalize a single line instead of a whole receipt")
	rootCmd.AddCommand(normalizeCmd)
}
