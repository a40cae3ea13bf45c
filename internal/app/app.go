// Package app wires configuration, fetching, the table pipeline and
// exporters into runs of a job file.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/gotabular/internal/export"
	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/normalize"
	"github.com/hyperifyio/gotabular/internal/pipeline"
	"github.com/hyperifyio/gotabular/internal/query"
	"github.com/hyperifyio/gotabular/internal/robots"
)

// ErrJobsFailed is returned by Run when at least one job failed. The other
// jobs still ran and were exported.
var ErrJobsFailed = errors.New("one or more jobs failed")

type App struct {
	cfg      Config
	runID    string
	fetcher  *fetch.Client
	exporter export.Exporter
	closers  []func(context.Context) error
}

// Report is the outcome of one job.
type Report struct {
	Job      string
	Rows     int
	Missing  map[string]int
	Repairs  map[string]int
	Duration time.Duration
	Err      error
}

// New builds an App for cfg. stdout receives stream formats when no output
// directory is configured.
func New(ctx context.Context, cfg Config, stdout io.Writer) (*App, error) {
	cfg = cfg.WithDefaults()
	a := &App{cfg: cfg, runID: uuid.NewString()}

	fetcher, err := NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	a.fetcher = fetcher

	dst := export.Destination{
		Dir:    cfg.OutputDir,
		Stdout: stdout,
		NA:     cfg.MissingMarker,
		RunID:  a.runID,
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("output dir: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.OutputFormat)) {
	case "sqlite", "sql":
		db, err := cfg.OutputDatabase.Open()
		if err != nil {
			return nil, fmt.Errorf("open output database: %w", err)
		}
		db.SetMaxOpenConns(1)
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		dst.DB = db
	case "mongo", "mongodb":
		coll, disconnect, err := connectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, disconnect)
		dst.Collection = coll
	}
	exp, err := export.ForFormat(cfg.OutputFormat, dst)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.exporter = exp
	return a, nil
}

// NewFetcher builds the fetch client cfg describes, robots gate included. It
// opens no outputs.
func NewFetcher(cfg Config) (*fetch.Client, error) {
	cfg = cfg.WithDefaults()
	var proxy *url.URL
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
		proxy = u
	}
	httpClient := newHTTPClient(cfg.Timeout, proxy)
	var tr fetch.Transport = &fetch.HTTPTransport{Client: httpClient}
	if proxy != nil {
		tr = fetch.NewRestyTransport(resty.New().
			SetRetryCount(0).
			SetTimeout(cfg.Timeout).
			SetProxy(cfg.Proxy))
	}
	c := &fetch.Client{
		Transport:     tr,
		UserAgent:     cfg.UserAgent,
		MaxConcurrent: cfg.Concurrency,
	}
	if !cfg.IgnoreRobots {
		c.Robots = &robots.Checker{HTTPClient: httpClient, UserAgent: cfg.UserAgent}
	}
	return c, nil
}

// RunID identifies this App's run in logs and stored rows.
func (a *App) RunID() string { return a.runID }

// Close releases output connections.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("close output")
		}
	}
	a.closers = nil
}

// Run executes every configured job, at most Concurrency at a time, then
// exports the successful results in job order. A failing job is logged and
// does not stop the others; Run then returns ErrJobsFailed.
func (a *App) Run(ctx context.Context) ([]Report, error) {
	logger := log.With().Str("run", a.runID).Logger()
	reports := make([]Report, len(a.cfg.Jobs))
	results := make([]*normalize.Result, len(a.cfg.Jobs))

	var g errgroup.Group
	g.SetLimit(a.cfg.Concurrency)
	for i, spec := range a.cfg.Jobs {
		g.Go(func() error {
			start := time.Now()
			res, err := a.runJob(ctx, spec)
			reports[i] = Report{Job: spec.Name, Duration: time.Since(start), Err: err}
			if err != nil {
				logger.Error().Err(err).Str("job", spec.Name).Msg("job failed")
				return nil
			}
			results[i] = res
			reports[i].Rows = res.Table.Len()
			reports[i].Missing = res.Missing
			reports[i].Repairs = res.Repairs
			logger.Info().Str("job", spec.Name).Int("rows", res.Table.Len()).Int("missing", res.TotalMissing()).Dur("took", reports[i].Duration).Msg("job done")
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, res := range results {
		if res == nil {
			failed++
			continue
		}
		if err := a.exporter.Export(ctx, reports[i].Job, res.Table); err != nil {
			reports[i].Err = fmt.Errorf("export: %w", err)
			logger.Error().Err(err).Str("job", reports[i].Job).Msg("export failed")
			failed++
		}
	}
	if failed > 0 {
		return reports, fmt.Errorf("%w: %d of %d", ErrJobsFailed, failed, len(reports))
	}
	return reports, nil
}

func (a *App) runJob(ctx context.Context, spec JobSpec) (*normalize.Result, error) {
	if !spec.IsQuery() {
		job, err := BuildJob(spec)
		if err != nil {
			return nil, err
		}
		return pipeline.Run(ctx, a.fetcher, job)
	}
	job, err := BuildQueryJob(spec)
	if err != nil {
		return nil, err
	}
	db, err := spec.Database.Open()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return pipeline.RunQuery(ctx, query.Executor{DB: db, Dialect: query.SQLite}, job)
}
