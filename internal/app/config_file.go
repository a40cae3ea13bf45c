package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/titanous/json5"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/gotabular/internal/query"
)

// FileConfig represents the job file schema.
type FileConfig struct {
	UserAgent    string `yaml:"userAgent" json:"userAgent" toml:"userAgent"`
	Concurrency  int    `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	Timeout      string `yaml:"timeout" json:"timeout" toml:"timeout"`
	Proxy        string `yaml:"proxy" json:"proxy" toml:"proxy"`
	IgnoreRobots bool   `yaml:"ignoreRobots" json:"ignoreRobots" toml:"ignoreRobots"`
	Verbose      bool   `yaml:"verbose" json:"verbose" toml:"verbose"`

	Output struct {
		Format   string       `yaml:"format" json:"format" toml:"format"`
		Dir      string       `yaml:"dir" json:"dir" toml:"dir"`
		NA       string       `yaml:"na" json:"na" toml:"na"`
		Database query.Source `yaml:"database" json:"database" toml:"database"`
		Mongo    struct {
			URI        string `yaml:"uri" json:"uri" toml:"uri"`
			Database   string `yaml:"database" json:"database" toml:"database"`
			Collection string `yaml:"collection" json:"collection" toml:"collection"`
		} `yaml:"mongo" json:"mongo" toml:"mongo"`
	} `yaml:"output" json:"output" toml:"output"`

	Jobs []JobSpec `yaml:"jobs" json:"jobs" toml:"jobs"`
}

// JobSpec is one job as written in a job file. A job reads either a URL
// (with css or path) or a database table.
type JobSpec struct {
	Name string `yaml:"name" json:"name" toml:"name"`

	URL             string            `yaml:"url" json:"url" toml:"url"`
	Query           map[string]string `yaml:"query" json:"query" toml:"query"`
	Headers         map[string]string `yaml:"headers" json:"headers" toml:"headers"`
	CSS             string            `yaml:"css" json:"css" toml:"css"`
	Path            *string           `yaml:"path" json:"path" toml:"path"`
	AcceptErrorBody bool              `yaml:"acceptErrorBody" json:"acceptErrorBody" toml:"acceptErrorBody"`

	Database *query.Source `yaml:"database" json:"database" toml:"database"`
	Table    string        `yaml:"table" json:"table" toml:"table"`
	Select   []string      `yaml:"select" json:"select" toml:"select"`
	Where    []WhereSpec   `yaml:"where" json:"where" toml:"where"`
	OrderBy  string        `yaml:"orderBy" json:"orderBy" toml:"orderBy"`
	Desc     bool          `yaml:"desc" json:"desc" toml:"desc"`
	Limit    int           `yaml:"limit" json:"limit" toml:"limit"`

	DateLayouts []string          `yaml:"dateLayouts" json:"dateLayouts" toml:"dateLayouts"`
	Types       map[string]string `yaml:"types" json:"types" toml:"types"`
	Rules       []RuleSpec        `yaml:"rules" json:"rules" toml:"rules"`
}

// WhereSpec is one filter of a database job.
type WhereSpec struct {
	Column string `yaml:"column" json:"column" toml:"column"`
	Op     string `yaml:"op" json:"op" toml:"op"`
	Value  string `yaml:"value" json:"value" toml:"value"`
}

// RuleSpec is a repair rule as written in a job file.
type RuleSpec struct {
	Column string   `yaml:"column" json:"column" toml:"column"`
	When   WhenSpec `yaml:"when" json:"when" toml:"when"`
	Then   ThenSpec `yaml:"then" json:"then" toml:"then"`
}

// WhenSpec names exactly one predicate.
type WhenSpec struct {
	Blank   bool      `yaml:"blank" json:"blank" toml:"blank"`
	Equals  *string   `yaml:"equals" json:"equals" toml:"equals"`
	OneOf   []string  `yaml:"oneOf" json:"oneOf" toml:"oneOf"`
	Matches string    `yaml:"matches" json:"matches" toml:"matches"`
	Parses  string    `yaml:"parses" json:"parses" toml:"parses"`
	Not     *WhenSpec `yaml:"not" json:"not" toml:"not"`
}

// ThenSpec names exactly one policy.
type ThenSpec struct {
	Swap         string `yaml:"swap" json:"swap" toml:"swap"`
	CarryForward bool   `yaml:"carryForward" json:"carryForward" toml:"carryForward"`
	SetAbsent    bool   `yaml:"setAbsent" json:"setAbsent" toml:"setAbsent"`
}

// LoadConfigFile reads a YAML, JSON, JSON5 or TOML job file. When a sibling
// <name>.local.<ext> exists it is merged on top; its non-empty values win and
// its lists replace the base lists.
func LoadConfigFile(path string) (FileConfig, error) {
	fc, err := decodeConfigFile(path)
	if err != nil {
		return fc, err
	}
	local := LocalConfigPath(path)
	override, err := decodeConfigFile(local)
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("local override: %w", err)
	}
	if err := mergo.Merge(&fc, override, mergo.WithOverride); err != nil {
		return fc, fmt.Errorf("merge %s: %w", local, err)
	}
	log.Info().Str("local", local).Msg("merged config with local overrides")
	return fc, nil
}

// LocalConfigPath returns the override path for a job file:
// jobs.yaml -> jobs.local.yaml.
func LocalConfigPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func decodeConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".json5":
		if err := json5.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json5: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset in cfg. Jobs from the file are appended.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fc.UserAgent
	}
	if cfg.Concurrency == 0 && fc.Concurrency > 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if cfg.Timeout == 0 && strings.TrimSpace(fc.Timeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(fc.Timeout))
		if err != nil {
			return fmt.Errorf("config: timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if cfg.Proxy == "" {
		cfg.Proxy = fc.Proxy
	}
	if !cfg.IgnoreRobots && fc.IgnoreRobots {
		cfg.IgnoreRobots = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = fc.Output.Format
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = fc.Output.Dir
	}
	if cfg.MissingMarker == "" {
		cfg.MissingMarker = fc.Output.NA
	}
	if cfg.OutputDatabase == (query.Source{}) {
		cfg.OutputDatabase = fc.Output.Database
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = fc.Output.Mongo.URI
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = fc.Output.Mongo.Database
	}
	if cfg.MongoCollection == "" {
		cfg.MongoCollection = fc.Output.Mongo.Collection
	}

	cfg.Jobs = append(cfg.Jobs, fc.Jobs...)
	return nil
}
