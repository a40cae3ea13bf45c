package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/gotabular/internal/export"
	"github.com/hyperifyio/gotabular/internal/query"
)

const (
	DefaultUserAgent   = "gotabular/1.0 (+https://github.com/hyperifyio/gotabular)"
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
	DefaultFormat      = "csv"
)

// Config holds runtime configuration for the application.
type Config struct {
	// HTTP
	UserAgent    string
	Timeout      time.Duration
	Proxy        string
	IgnoreRobots bool

	// Concurrency bounds both parallel jobs and in-flight requests.
	Concurrency int

	// Output
	OutputFormat    string
	OutputDir       string
	MissingMarker   string
	OutputDatabase  query.Source
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	Jobs []JobSpec

	Verbose bool
}

// LogLevel is the global log level the configuration asks for.
func (c Config) LogLevel() zerolog.Level {
	if c.Verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// WithDefaults fills the settings every run needs and no layer supplied.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if strings.TrimSpace(c.OutputFormat) == "" {
		c.OutputFormat = DefaultFormat
	}
	if c.MissingMarker == "" {
		c.MissingMarker = export.DefaultNA
	}
	if c.MongoCollection == "" {
		c.MongoCollection = "tables"
	}
	return c
}

// ValidateConfig performs schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if len(cfg.Jobs) == 0 {
		return errors.New("config: at least one job is required")
	}
	if cfg.Concurrency < 0 {
		return errors.New("config: concurrency must not be negative")
	}
	if cfg.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	format := strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	switch format {
	case "sqlite", "sql":
		if cfg.OutputDatabase.File == "" && cfg.OutputDatabase.URL == "" {
			return errors.New("config: output.database.file or output.database.url is required for sqlite output")
		}
	case "mongo", "mongodb":
		if strings.TrimSpace(cfg.MongoURI) == "" || strings.TrimSpace(cfg.MongoDatabase) == "" {
			return errors.New("config: output.mongo.uri and output.mongo.database are required for mongo output (or set GOTABULAR_MONGO_URI)")
		}
	case "", "csv", "jsonl", "jsonlines", "ndjson", "pretty", "table", "text", "markdown", "md", "pdf":
	default:
		return fmt.Errorf("config: unknown output format %q (want one of %s)", cfg.OutputFormat, strings.Join(export.Formats, ", "))
	}

	seen := make([]string, 0, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			return fmt.Errorf("config: jobs[%d]: name is required", i)
		}
		if slices.Contains(seen, name) {
			return fmt.Errorf("config: jobs[%d]: duplicate job name %q", i, name)
		}
		seen = append(seen, name)
		if err := j.validate(); err != nil {
			return fmt.Errorf("config: job %q: %w", name, err)
		}
	}
	return nil
}
