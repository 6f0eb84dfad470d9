package main

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"pledgetally/internal/config"
	"pledgetally/internal/di"
	"pledgetally/internal/exitcode"
	"pledgetally/internal/logging"
	"pledgetally/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	log     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pledgetally",
	Short: "Tally phone-bank metrics from emailed shift reports",
	Long: "Searches sent mail for shift reports addressed to one recipient, extracts the " +
		"session, call and pledge figures from each body and reports totals and ratios.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// flagKeys maps config keys to the flags that override them. Flags are
// looked up on the running command, so command-local ones bind too.
var flagKeys = map[string]string{
	"source.type":        "source",
	"operator.address":   "operator",
	"mbox.path":          "mbox",
	"logging.format":     "log-format",
	"logging.level":      "log-level",
	"scan.recipient":     "recipient",
	"scan.range":         "range",
	"scan.lenient_range": "lenient-range",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.config/pledgetally/config.yaml)")
	pf.String("source", "", "Message source: gmail, imap or mbox")
	pf.String("operator", "", "Your own address, when the source cannot report it")
	pf.String("mbox", "", "Path to an mbox export (mbox source)")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.New(cfgFile)
	if err != nil {
		return err
	}
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := c.BindFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg = c
	log = logging.Setup(cfg.GetString("logging.format"), cfg.GetString("logging.level"))
	if f := cfg.FileUsed(); f != "" {
		log.Debug().Str("file", f).Msg("loaded config")
	}
	return nil
}

// exitError carries the process exit code out of a container invocation.
type exitError struct {
	code int
	msg  string
	err  error
}

func (e *exitError) Error() string { return e.msg + ": " + e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func fail(code int, msg string, err error) error {
	return &exitError{code: code, msg: msg, err: err}
}

// invoke runs fn with dependencies from a fresh container and exits with
// the matching code on failure.
func invoke(fn interface{}) error {
	container, err := di.BuildContainer(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("build container failed")
		os.Exit(exitcode.UsageError)
	}
	if err := container.Invoke(fn); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			log.Error().Err(ee.err).Msg(ee.msg)
			os.Exit(ee.code)
		}
		// Only the store provider can fail during construction.
		log.Error().Err(dig.RootCause(err)).Msg("open store failed")
		os.Exit(exitcode.StoreError)
	}
	return nil
}

func closeStore(st *store.SQLiteStore) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		log.Warn().Err(err).Msg("close store failed")
	}
}

// validateConfig exits with a usage error when the source is misconfigured.
func validateConfig() {
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
}
