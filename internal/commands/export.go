package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/core"
	"spendwise/internal/fallback"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

type exportOptions struct {
	userID string
	year   int
	month  int
	output string
}

func newExportCommand() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one month of expenses as CSV",
		Long: "Writes the expenses of a user for one month in the CSV layout of the API\n" +
			"download. Without --user the sample dataset is exported.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := cli.Bootstrap(log.ComponentExpense, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := cli.InitBackend(cmd.Context(), logger, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Cleanup() }()

			ds, err := fallback.LoadOrDefault(cfg.FallbackDatasetPath)
			if err != nil {
				return err
			}
			clock := core.SystemClock{}
			svc := services.NewExpenseService(store.Store, nil, ds, clock)

			now := clock.Now()
			if opts.year == 0 {
				opts.year = now.Year()
			}
			if opts.month == 0 {
				opts.month = int(now.Month())
			}
			view, err := svc.ListMonth(cmd.Context(), opts.userID, opts.year, opts.month)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if opts.output != "" {
				f, err := os.Create(opts.output)
				if err != nil {
					return fmt.Errorf("create %s: %w", opts.output, err)
				}
				defer f.Close()
				out = f
			}
			if err := svc.ExportCSV(out, view.Expenses); err != nil {
				return err
			}
			logger.Info("Expenses exported",
				log.FieldOperation, log.OpExport,
				log.FieldSource, string(view.Source),
				"count", len(view.Expenses))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.userID, "user", "", "user id whose expenses to export")
	cmd.Flags().IntVar(&opts.year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&opts.month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")

	return cmd
}
