package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"pledgetally/internal/display"
	"pledgetally/internal/exitcode"
	"pledgetally/internal/store"
)

var (
	reportsLimit int
	reportFormat string
)

var errStoreDisabled = errors.New("report history needs store.enabled")

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List saved reports, newest first",
	RunE:  runReports,
}

var reportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Print a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "Maximum number of reports to list")
	reportCmd.Flags().StringVar(&reportFormat, "format", display.FormatText, "Output format: text, json or csv")
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReports(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return invoke(func(st *store.SQLiteStore) error {
		if st == nil {
			return fail(exitcode.UsageError, "list reports failed", errStoreDisabled)
		}
		defer closeStore(st)

		list, err := st.ListReports(ctx, reportsLimit)
		if err != nil {
			return fail(exitcode.StoreError, "list reports failed", err)
		}
		if err := display.WriteSummaries(os.Stdout, list); err != nil {
			return fail(exitcode.RenderError, "write reports failed", err)
		}
		return nil
	})
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := display.CheckFormat(reportFormat); err != nil {
		log.Error().Err(err).Msg("invalid flag")
		os.Exit(exitcode.UsageError)
	}
	ctx := cmd.Context()
	return invoke(func(st *store.SQLiteStore) error {
		if st == nil {
			return fail(exitcode.UsageError, "load report failed", errStoreDisabled)
		}
		defer closeStore(st)

		r, err := st.LoadReport(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fail(exitcode.ValidationError, "load report failed", err)
		}
		if err != nil {
			return fail(exitcode.StoreError, "load report failed", err)
		}
		if err := display.WriteReport(os.Stdout, r, reportFormat); err != nil {
			return fail(exitcode.RenderError, "write report failed", err)
		}
		return nil
	})
}
