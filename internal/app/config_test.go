package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/gotabular/internal/extract"
	"github.com/hyperifyio/gotabular/internal/normalize"
	"github.com/hyperifyio/gotabular/internal/table"
)

const yamlJobs = `
userAgent: gotabular-test/1.0
concurrency: 2
timeout: 15s
output:
  format: jsonl
  dir: out
jobs:
  - name: records
    url: https://example.org/wiki/Records
    query: {lang: en}
    css: table.wikitable
    dateLayouts: ["January 2, 2006"]
    types: {date: date, time: real}
    rules:
      - {column: athlete, when: {parses: real}, then: {swap: time}}
      - {column: nationality, when: {blank: true}, then: {carryForward: true}}
  - name: api
    url: https://example.org/api/items
    path: ""
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadConfigFile_YAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "jobs.yaml", yamlJobs)
	fc, err := LoadConfigFile(p)
	require.NoError(t, err)
	require.Equal(t, "gotabular-test/1.0", fc.UserAgent)
	require.Equal(t, 2, fc.Concurrency)
	require.Equal(t, "jsonl", fc.Output.Format)
	require.Len(t, fc.Jobs, 2)

	rec := fc.Jobs[0]
	require.Equal(t, "en", rec.Query["lang"])
	require.Equal(t, extract.CSS("table.wikitable"), rec.Selector())
	require.Len(t, rec.Rules, 2)
	require.Equal(t, "time", rec.Rules[0].Then.Swap)
	require.True(t, rec.Rules[1].When.Blank)

	// An explicit empty path selects the document root.
	require.NotNil(t, fc.Jobs[1].Path)
	require.Equal(t, extract.KeyPath(""), fc.Jobs[1].Selector())
}

func TestLoadConfigFile_OtherFormats(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"jobs.json": `{"concurrency": 3, "jobs": [{"name": "a", "url": "https://example.org", "css": "table"}]}`,
		"jobs.json5": `{
			// comments and trailing commas are fine
			concurrency: 3,
			jobs: [{name: 'a', url: 'https://example.org', css: 'table',},],
		}`,
		"jobs.toml": `
concurrency = 3

[[jobs]]
name = "a"
url = "https://example.org"
css = "table"
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fc, err := LoadConfigFile(writeFile(t, dir, name, content))
			require.NoError(t, err)
			require.Equal(t, 3, fc.Concurrency)
			require.Len(t, fc.Jobs, 1)
			require.Equal(t, "table", fc.Jobs[0].CSS)
		})
	}
}

func TestLoadConfigFile_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "jobs.yaml", yamlJobs)
	writeFile(t, dir, "jobs.local.yaml", "userAgent: local-agent\noutput:\n  dir: /tmp/local-out\n")
	require.Equal(t, filepath.Join(dir, "jobs.local.yaml"), LocalConfigPath(p))

	fc, err := LoadConfigFile(p)
	require.NoError(t, err)
	require.Equal(t, "local-agent", fc.UserAgent)
	require.Equal(t, "/tmp/local-out", fc.Output.Dir)
	// Untouched values survive the merge.
	require.Equal(t, "jsonl", fc.Output.Format)
	require.Len(t, fc.Jobs, 2)
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfigFile(filepath.Join(dir, "absent.yaml"))
	require.True(t, os.IsNotExist(err))

	_, err = LoadConfigFile(writeFile(t, dir, "bad.json", "{"))
	require.ErrorContains(t, err, "parse json")
}

func TestApplyFileConfig_Precedence(t *testing.T) {
	p := writeFile(t, t.TempDir(), "jobs.yaml", yamlJobs)
	fc, err := LoadConfigFile(p)
	require.NoError(t, err)

	cfg := Config{UserAgent: "flag-agent"}
	require.NoError(t, ApplyFileConfig(&cfg, fc))
	require.Equal(t, "flag-agent", cfg.UserAgent)
	require.Equal(t, 2, cfg.Concurrency)
	require.Equal(t, 15*time.Second, cfg.Timeout)
	require.Equal(t, "jsonl", cfg.OutputFormat)
	require.Len(t, cfg.Jobs, 2)

	fc.Timeout = "soon"
	require.ErrorContains(t, ApplyFileConfig(&Config{}, fc), "timeout")
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	require.Equal(t, DefaultUserAgent, cfg.UserAgent)
	require.Equal(t, DefaultConcurrency, cfg.Concurrency)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, "csv", cfg.OutputFormat)
	require.Equal(t, "NA", cfg.MissingMarker)
}

func TestValidateConfig(t *testing.T) {
	job := JobSpec{Name: "a", URL: "https://example.org", CSS: "table"}
	empty := ""
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no jobs", Config{}, "at least one job"},
		{"unknown format", Config{OutputFormat: "xlsx", Jobs: []JobSpec{job}}, "unknown output format"},
		{"sqlite without db", Config{OutputFormat: "sqlite", Jobs: []JobSpec{job}}, "output.database"},
		{"mongo without uri", Config{OutputFormat: "mongo", Jobs: []JobSpec{job}}, "mongo"},
		{"unnamed job", Config{Jobs: []JobSpec{{URL: "https://example.org", CSS: "t"}}}, "name is required"},
		{"duplicate names", Config{Jobs: []JobSpec{job, job}}, "duplicate job name"},
		{"css and path", Config{Jobs: []JobSpec{{Name: "a", URL: "u", CSS: "t", Path: &empty}}}, "exactly one of css or path"},
		{"no source", Config{Jobs: []JobSpec{{Name: "a", CSS: "t"}}}, "url or database"},
		{"negative concurrency", Config{Concurrency: -1, Jobs: []JobSpec{job}}, "concurrency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorContains(t, ValidateConfig(tc.cfg), tc.want)
		})
	}
	require.NoError(t, ValidateConfig(Config{Jobs: []JobSpec{job}}))
}

func TestBuildRules(t *testing.T) {
	na := "n/a"
	specs := []RuleSpec{
		{Column: "athlete", When: WhenSpec{Parses: "real"}, Then: ThenSpec{Swap: "time"}},
		{Column: "nation", When: WhenSpec{Blank: true}, Then: ThenSpec{CarryForward: true}},
		{Column: "wind", When: WhenSpec{Equals: &na}, Then: ThenSpec{SetAbsent: true}},
		{Column: "venue", When: WhenSpec{Not: &WhenSpec{Matches: `^[A-Z]`}}, Then: ThenSpec{SetAbsent: true}},
	}
	rules, err := BuildRules(specs, normalize.Options{})
	require.NoError(t, err)
	require.Len(t, rules, 4)
	require.Equal(t, "time", rules[0].Then.Partner())
	require.True(t, rules[0].When.Match(table.Some("10.4")))
	require.True(t, rules[1].When.Match(table.Some("  ")))
	require.True(t, rules[2].When.Match(table.Some("n/a")))
	require.True(t, rules[3].When.Match(table.Some("berlin")))
	require.False(t, rules[3].When.Match(table.Some("Berlin")))

	_, err = BuildRules([]RuleSpec{{Column: "a", When: WhenSpec{Blank: true, Parses: "real"}, Then: ThenSpec{SetAbsent: true}}}, normalize.Options{})
	require.ErrorContains(t, err, "exactly one predicate")
	_, err = BuildRules([]RuleSpec{{Column: "a", When: WhenSpec{Blank: true}}}, normalize.Options{})
	require.ErrorContains(t, err, "exactly one policy")
	_, err = BuildRules([]RuleSpec{{Column: "a", When: WhenSpec{Matches: "("}, Then: ThenSpec{SetAbsent: true}}}, normalize.Options{})
	require.ErrorContains(t, err, "matches")
	_, err = BuildRules([]RuleSpec{{Column: "a", When: WhenSpec{Parses: "money"}, Then: ThenSpec{SetAbsent: true}}}, normalize.Options{})
	require.ErrorContains(t, err, "money")
}

func TestBuildJob_And_BuildQueryJob(t *testing.T) {
	p := writeFile(t, t.TempDir(), "jobs.yaml", yamlJobs)
	fc, err := LoadConfigFile(p)
	require.NoError(t, err)

	job, err := BuildJob(fc.Jobs[0])
	require.NoError(t, err)
	require.Equal(t, "records", job.Name)
	require.Equal(t, "https://example.org/wiki/Records", job.Request.URL)
	require.Equal(t, table.TypeReal, job.Types["time"])
	require.Equal(t, []string{"January 2, 2006"}, job.Options.DateLayouts)

	_, err = BuildQueryJob(fc.Jobs[0])
	require.Error(t, err)

	spec := JobSpec{
		Name:     "delays",
		Database: &querySource,
		Table:    "flights",
		Select:   []string{"carrier", "dep_delay"},
		Where:    []WhereSpec{{Column: "carrier", Op: "=", Value: "AA"}, {Column: "dep_delay", Op: "notnull"}},
		OrderBy:  "dep_delay",
		Desc:     true,
		Limit:    10,
	}
	qj, err := BuildQueryJob(spec)
	require.NoError(t, err)
	require.Equal(t, `SELECT "carrier", "dep_delay" FROM "flights" WHERE "carrier" = ? AND "dep_delay" IS NOT NULL ORDER BY "dep_delay" DESC LIMIT 10`, qj.Plan.String())

	spec.Where = []WhereSpec{{Column: "carrier", Op: "about"}}
	_, err = BuildQueryJob(spec)
	require.ErrorContains(t, err, "where[0]")
}
