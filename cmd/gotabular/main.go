// gotabular fetches HTML and JSON documents or database tables, extracts
// tables from them, repairs and types their rows, and exports the result.
//
// Usage:
//
//	gotabular run --config jobs.yaml [--format csv] [--out DIR]
//	gotabular extract URL (--css SEL | --path KEYPATH) [--type col=integer]...
//	gotabular query (--db FILE | --url URL) --table T [--where col=val]...
//	gotabular fetch URL
//	gotabular version
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/gotabular/internal/app"
)

var rootFlags struct {
	verbose  bool
	envFiles []string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gotabular",
		Short: "Turn web tables, JSON APIs and database tables into clean typed tables",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			zerolog.TimeFieldFormat = time.RFC3339
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339})
			if err := app.LoadEnvFiles(rootFlags.envFiles...); err != nil {
				return err
			}
			if rootFlags.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Verbose logging")
	pf.StringSliceVar(&rootFlags.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading GOTABULAR_* variables")

	root.AddCommand(newRunCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newVersionCmd())
	root.Version = app.BuildVersion
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
