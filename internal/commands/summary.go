package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spendwise/internal/cli"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/recurring"
	gsheet "spendwise/internal/sheets/google"
)

type summaryOptions struct {
	file      string
	kind      string
	asOf      string
	fromSheet bool
	asJSON    bool
	due       int
}

func newSummaryCommand() *cobra.Command {
	var opts summaryOptions

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize recurring expenses from a JSON file or the mirror sheet",
		Long: "Reads recurring expenses, then prints each one with its countdown, urgency\n" +
			"and monthly equivalent, followed by the monthly total.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "JSON array of recurring expenses (\"-\" for stdin)")
	cmd.Flags().StringVar(&opts.kind, "kind", string(recurring.SourceRemote), "record shape: remote (snake_case) or local (camelCase)")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.fromSheet, "sheet", false, "read the recurring tab of the configured Google spreadsheet")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().IntVar(&opts.due, "due", -1, "only list payments due within this many days")
	cmd.MarkFlagsMutuallyExclusive("file", "sheet")
	cmd.MarkFlagsOneRequired("file", "sheet")

	return cmd
}

func runSummary(ctx context.Context, out io.Writer, opts summaryOptions) error {
	var clock core.Clock = core.SystemClock{}
	if opts.asOf != "" {
		d, err := core.ParseDate(opts.asOf)
		if err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
		clock = core.FixedClock(d.Time)
	}

	records, err := loadRecords(ctx, opts)
	if err != nil {
		return err
	}

	summary := recurring.NewAggregator(clock).Summarize(records)
	if opts.due >= 0 {
		summary.Rows = summary.Due(opts.due)
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printSummary(out, summary)
}

func loadRecords(ctx context.Context, opts summaryOptions) ([]core.RecurringExpense, error) {
	if opts.fromSheet {
		cfg, logger, err := cli.Bootstrap(log.ComponentSheets, os.Stderr)
		if err != nil {
			return nil, err
		}
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		rows, err := client.ReadRecurring(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("Read recurring rows from sheet", "sheet", client.RecurringSheet(), "rows", len(rows))
		return recurring.NormalizeLocal(rows)
	}

	kind, err := recurring.ParseSourceKind(opts.kind)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if opts.file == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(opts.file)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.file, err)
	}
	return recurring.Normalize(kind, raw)
}

func printSummary(out io.Writer, s recurring.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DESCRIPTION\tCATEGORY\tFREQUENCY\tAMOUNT\tMONTHLY\tNEXT PAYMENT\tDAYS\tURGENCY\tACTIVE")
	for _, r := range s.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
			r.Description,
			r.Category,
			r.Frequency,
			r.Amount.StringFixed(2),
			r.MonthlyEquivalent.StringFixed(2),
			r.NextPayment.String(),
			r.DaysUntil,
			r.Urgency,
			r.Active)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nAs of %s: %d active, %s per month\n",
		s.AsOf.Format(time.DateOnly), s.ActiveCount, s.MonthlyTotal.StringFixed(2))
	return err
}
