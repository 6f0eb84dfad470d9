package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"pledgetally/internal/display"
	"pledgetally/internal/exitcode"
	"pledgetally/internal/factory"
	"pledgetally/internal/scan"
	"pledgetally/internal/store"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search sent reports to a recipient and print totals",
	Example: "  pledgetally scan --recipient dan@example.com --range 30d\n" +
		"  pledgetally scan --source mbox --mbox sent.mbox --operator me@example.com --range 1y --format csv",
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.String("recipient", "", "Recipient the reports were sent to (defaults to the last one used)")
	f.String("range", "", "Relative range such as 30d, 6m or 1y (default from config)")
	f.Bool("lenient-range", false, "Treat an unknown range unit as a cutoff of now instead of an error")
	f.StringVar(&scanFormat, "format", display.FormatText, "Output format: text, json or csv")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	validateConfig()
	if err := display.CheckFormat(scanFormat); err != nil {
		log.Error().Err(err).Msg("invalid flag")
		os.Exit(exitcode.UsageError)
	}
	ctx := cmd.Context()

	return invoke(func(f *factory.SourceFactory, st *store.SQLiteStore) error {
		defer closeStore(st)

		req := scan.Request{
			Recipient: cfg.GetString("scan.recipient"),
			Range:     cfg.GetString("scan.range"),
		}
		if req.Recipient == "" && st != nil {
			if last, err := st.GetSetting(ctx, scan.SettingLastRecipient); err == nil && last != "" {
				log.Info().Str("recipient", last).Msg("using last recipient")
				req.Recipient = last
			}
		}

		src, err := f.Create(ctx)
		if err != nil {
			return fail(exitcode.SourceError, "connect source failed", err)
		}

		report, err := f.NewScanService(src).Run(ctx, req)
		if err != nil {
			var se *scan.Error
			if errors.As(err, &se) && se.Phase == scan.PhaseValidate {
				return fail(exitcode.ValidationError, "invalid scan request", se.Err)
			}
			return fail(exitcode.SourceError, "scan failed", err)
		}

		if err := display.WriteReport(os.Stdout, report, scanFormat); err != nil {
			return fail(exitcode.RenderError, "write report failed", err)
		}
		return nil
	})
}
