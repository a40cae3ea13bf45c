package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/gotabular/internal/app"
	"github.com/hyperifyio/gotabular/internal/export"
)

// commonFlags are the settings shared by every command that produces tables.
type commonFlags struct {
	format       string
	out          string
	na           string
	concurrency  int
	userAgent    string
	timeout      time.Duration
	proxy        string
	ignoreRobots bool
	dbFile       string
}

func (c *commonFlags) register(f *pflag.FlagSet) {
	f.StringVarP(&c.format, "format", "f", "", "Output format: "+strings.Join(export.Formats, ", "))
	f.StringVarP(&c.out, "out", "o", "", "Output directory, one file per job (default: stdout)")
	f.StringVar(&c.na, "na", "", "Marker written for missing cells (default NA)")
	f.IntVar(&c.concurrency, "concurrency", 0, "Maximum parallel jobs and requests")
	f.StringVar(&c.userAgent, "user-agent", "", "User-Agent sent with every request")
	f.DurationVar(&c.timeout, "timeout", 0, "Per-request timeout, e.g. 30s")
	f.StringVar(&c.proxy, "proxy", "", "HTTP proxy URL")
	f.BoolVar(&c.ignoreRobots, "ignore-robots", false, "Do not consult robots.txt")
	f.StringVar(&c.dbFile, "output-db", "", "SQLite file for --format sqlite")
}

// apply copies the flags the user actually set onto cfg.
func (c *commonFlags) apply(cmd *cobra.Command, cfg *app.Config) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.OutputFormat = c.format
	}
	if f.Changed("out") {
		cfg.OutputDir = c.out
	}
	if f.Changed("na") {
		cfg.MissingMarker = c.na
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = c.concurrency
	}
	if f.Changed("user-agent") {
		cfg.UserAgent = c.userAgent
	}
	if f.Changed("timeout") {
		cfg.Timeout = c.timeout
	}
	if f.Changed("proxy") {
		cfg.Proxy = c.proxy
	}
	if f.Changed("ignore-robots") {
		cfg.IgnoreRobots = c.ignoreRobots
	}
	if f.Changed("output-db") {
		cfg.OutputDatabase.File = c.dbFile
	}
	if rootFlags.verbose {
		cfg.Verbose = true
	}
}

// runConfig validates cfg, runs every job and logs a per-job summary.
func runConfig(cmd *cobra.Command, cfg app.Config) error {
	if err := app.ValidateConfig(cfg); err != nil {
		return err
	}
	applyLogLevel(cfg)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close(ctx)

	reports, err := a.Run(ctx)
	for _, r := range reports {
		if r.Err != nil {
			continue
		}
		log.Debug().Str("run", a.RunID()).Str("job", r.Job).Int("rows", r.Rows).Interface("missing", r.Missing).Interface("repairs", r.Repairs).Msg("summary")
	}
	return err
}

// applyLogLevel raises logging to debug when any config layer asked for it.
func applyLogLevel(cfg app.Config) {
	if cfg.Verbose {
		zerolog.SetGlobalLevel(cfg.LogLevel())
	}
}

// parseTypes reads col=type pairs.
func parseTypes(pairs map[string]string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for k, v := range pairs {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
