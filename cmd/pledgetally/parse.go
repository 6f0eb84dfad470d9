package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"pledgetally/internal/display"
	"pledgetally/internal/exitcode"
	"pledgetally/internal/extract"
	"pledgetally/internal/mailparse"
)

var parseRaw bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Show which metrics a report body yields",
	Long: "Runs the metrics parser on a report body read from a file or stdin and prints " +
		"each field with its value, or (absent) when no label matched.",
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseRaw, "raw", false, "Input is a full RFC 5322 message (.eml) rather than a body")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			log.Error().Err(err).Msg("open input failed")
			os.Exit(exitcode.UsageError)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		log.Error().Err(err).Msg("read input failed")
		os.Exit(exitcode.UsageError)
	}

	body := string(data)
	if parseRaw {
		msg, err := mailparse.Parse(data)
		if err != nil {
			log.Error().Err(err).Msg("parse message failed")
			os.Exit(exitcode.ValidationError)
		}
		body = msg.Body
	}

	if err := display.WriteRecord(os.Stdout, extract.Parse(body)); err != nil {
		log.Error().Err(err).Msg("write output failed")
		os.Exit(exitcode.RenderError)
	}
	return nil
}
