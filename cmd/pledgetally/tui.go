package main

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pledgetally/internal/exitcode"
	"pledgetally/internal/factory"
	"pledgetally/internal/logging"
	"pledgetally/internal/scan"
	"pledgetally/internal/store"
	"pledgetally/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run scans interactively and browse per-message results",
	RunE:  runTUI,
}

func init() {
	f := tuiCmd.Flags()
	f.String("recipient", "", "Prefill the recipient field")
	f.String("range", "", "Prefill the range field")
	f.Bool("lenient-range", false, "Treat an unknown range unit as a cutoff of now instead of an error")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	validateConfig()

	// The terminal belongs to the UI; logs go to a file.
	logPath := cfg.GetString("logging.file")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		log.Error().Err(err).Msg("create log directory failed")
		os.Exit(exitcode.UsageError)
	}
	lf, err := logging.OpenFile(logPath)
	if err != nil {
		log.Error().Err(err).Msg("open log file failed")
		os.Exit(exitcode.UsageError)
	}
	defer lf.Close()
	log = logging.New(lf, "json", cfg.GetString("logging.level"))

	return invoke(func(f *factory.SourceFactory, st *store.SQLiteStore) error {
		defer closeStore(st)

		var ts tui.Store
		if st != nil {
			ts = st
		}
		defaults := scan.Request{
			Recipient: cfg.GetString("scan.recipient"),
			Range:     cfg.GetString("scan.range"),
		}
		app := tui.NewAppModel(f, ts, defaults, log)
		p := tea.NewProgram(&app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		app.SetProgram(p)
		final, err := p.Run()
		if err != nil {
			return fail(exitcode.RenderError, "ui failed", err)
		}
		if m, ok := final.(*tui.AppModel); ok && m.Err != nil {
			os.Stderr.WriteString("Error: " + m.Err.Error() + "\n")
			return fail(exitcode.SourceError, "connect source failed", m.Err)
		}
		return nil
	})
}
