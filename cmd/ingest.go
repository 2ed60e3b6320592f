package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pricetrail/reconcile-cli/internal/model"
)

var ingestNormalize bool

// receiptFile is the YAML shape accepted by the ingest command.
type receiptFile struct {
	Merchant string `yaml:"merchant"`
	Lines    []struct {
		RawName          string `yaml:"raw_name"`
		ItemCode         string `yaml:"item_code"`
		IsDiscountLine   bool   `yaml:"is_discount_line"`
		IsAdjustmentLine bool   `yaml:"is_adjustment_line"`
	} `yaml:"lines"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <receipt.yaml>",
	Short: "Create a receipt with its lines from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		var rf receiptFile
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}
		if rf.Merchant == "" {
			return eris.New("merchant is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		receipt := &model.Receipt{Merchant: rf.Merchant}
		lines := make([]model.ReceiptLine, len(rf.Lines))
		for i, l := range rf.Lines {
			lines[i] = model.ReceiptLine{
				RawName:          l.RawName,
				ItemCode:         l.ItemCode,
				IsDiscountLine:   l.IsDiscountLine,
				IsAdjustmentLine: l.IsAdjustmentLine,
			}
		}

		if err := env.Receipts.CreateReceipt(ctx, receipt, lines); err != nil {
			return err
		}

		zap.L().Info("receipt created",
			zap.String("receipt_id", receipt.ID),
			zap.String("merchant", receipt.Merchant),
			zap.Int("lines", len(lines)),
		)
		fmt.Printf("receipt %s created with %d lines\n", receipt.ID, len(lines))

		if ingestNormalize {
			results, err := env.Normalizer.NormalizeReceipt(ctx, receipt.ID)
			if err != nil {
				return err
			}
			printLineResults(results)
		}

		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNormalize, "normalize", false, "normalize the receipt immediately after ingesting")
	rootCmd.AddCommand(ingestCmd)
}
