// Package pipeline runs one acquisition job: fetch, extract, normalize.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gotabular/internal/extract"
	"github.com/hyperifyio/gotabular/internal/fetch"
	"github.com/hyperifyio/gotabular/internal/normalize"
	"github.com/hyperifyio/gotabular/internal/query"
	"github.com/hyperifyio/gotabular/internal/table"
)

// Fetcher retrieves a document. *fetch.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.RawDocument, error)
}

// Collector runs a query plan. query.Executor satisfies it.
type Collector interface {
	Collect(ctx context.Context, p query.Plan) (*table.Raw, error)
}

// Job describes one document-to-table run. A Job owns its request, rules and
// types; jobs share nothing and may run concurrently.
type Job struct {
	Name     string
	Request  fetch.Request
	Selector extract.Selector
	Rules    []normalize.Rule
	Types    map[string]table.Type
	Options  normalize.Options
	// AcceptErrorBody extracts the body of a 4xx/5xx response instead of
	// failing, for APIs whose error responses are themselves tabular.
	AcceptErrorBody bool
	// Extractor overrides content-type dispatch when set.
	Extractor extract.Extractor
}

// QueryJob describes one database-to-table run.
type QueryJob struct {
	Name    string
	Plan    query.Plan
	Rules   []normalize.Rule
	Types   map[string]table.Type
	Options normalize.Options
}

// Run fetches, extracts and normalizes one job.
func Run(ctx context.Context, f Fetcher, job Job) (*normalize.Result, error) {
	doc, err := f.Fetch(ctx, job.Request)
	if err != nil {
		var se *fetch.HTTPStatusError
		if !job.AcceptErrorBody || !errors.As(err, &se) || se.Document == nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		log.Warn().Str("job", job.Name).Int("status", se.Code).Msg("extracting error response body")
		doc = se.Document
	}
	log.Debug().Str("job", job.Name).Str("url", doc.URL).Int("status", doc.StatusCode).Str("contentType", doc.ContentType).Int("bytes", len(doc.Body)).Msg("fetched")

	ex := job.Extractor
	if ex == nil {
		ex = extract.Auto{}
	}
	raw, err := ex.Extract(doc, job.Selector)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if raw.Len() == 0 {
		log.Warn().Str("job", job.Name).Str("selector", job.Selector.String()).Msg("selector matched no rows")
	}
	return normalizeRaw(job.Name, raw, job.Rules, job.Types, job.Options)
}

// RunQuery collects rows for a plan and normalizes them.
func RunQuery(ctx context.Context, c Collector, job QueryJob) (*normalize.Result, error) {
	raw, err := c.Collect(ctx, job.Plan)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return normalizeRaw(job.Name, raw, job.Rules, job.Types, job.Options)
}

func normalizeRaw(name string, raw *table.Raw, rules []normalize.Rule, types map[string]table.Type, opt normalize.Options) (*normalize.Result, error) {
	log.Debug().Str("job", name).Int("rows", raw.Len()).Strs("columns", raw.Columns).Msg("extracted")
	res, err := normalize.Normalize(raw, rules, types, opt)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	for col, n := range res.Missing {
		if n > 0 {
			log.Warn().Str("job", name).Str("column", col).Int("missing", n).Int("rows", res.Table.Len()).Msg("cells coerced to missing")
		}
	}
	for col, n := range res.Repairs {
		if n > 0 {
			log.Debug().Str("job", name).Str("column", col).Int("repaired", n).Msg("rows repaired")
		}
	}
	return res, nil
}
