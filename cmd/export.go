package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/export"
	"github.com/lehigh-university-libraries/cardscanner/internal/sink"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var workbookPath string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert the local workbook ledger to parquet or YAML",
		Example: `  # Export saved cards for analysis
  cardscanner export --output cards.parquet

  # Export a specific workbook as YAML
  cardscanner export --workbook archive.xlsx --output cards.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workbookPath == "" {
				workbookPath = config.Load().Sink.WorkbookPath
			}

			rows, err := sink.NewWorkbookAppender(workbookPath).ReadRows()
			if err != nil {
				return err
			}
			if err := export.Write(output, rows); err != nil {
				return err
			}

			slog.Info("Exported rows", "workbook", workbookPath, "output", output, "rows", len(rows))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(rows), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&workbookPath, "workbook", "", "Workbook to read (defaults to CARDSCAN_WORKBOOK_PATH)")
	cmd.Flags().StringVarP(&output, "output", "o", "cards.parquet", "Output file (.parquet or .yaml)")

	return cmd
}
