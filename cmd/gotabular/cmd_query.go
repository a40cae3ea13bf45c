package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/gotabular/internal/app"
	"github.com/hyperifyio/gotabular/internal/query"
)

func newQueryCmd() *cobra.Command {
	var (
		src     query.Source
		table   string
		name    string
		selects []string
		wheres  []string
		orderBy string
		desc    bool
		limit   int
		types   map[string]string
		common  commonFlags
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read a database table through a query plan",
		Example: "  gotabular query --db flights.db --table flights --select carrier,dep_delay \\\n" +
			"    --where carrier=AA --where 'dep_delay>=15' --type dep_delay=integer --limit 20",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if src.File == "" && src.URL == "" {
				return errors.New("one of --db or --url is required")
			}
			job := app.JobSpec{
				Name:     name,
				Database: &src,
				Table:    table,
				Select:   selects,
				OrderBy:  orderBy,
				Desc:     desc,
				Limit:    limit,
				Types:    parseTypes(types),
			}
			if job.Name == "" {
				job.Name = table
			}
			for _, w := range wheres {
				ws, err := parseWhere(w)
				if err != nil {
					return err
				}
				job.Where = append(job.Where, ws)
			}
			cfg := app.Config{Jobs: []app.JobSpec{job}}
			common.apply(cmd, &cfg)
			app.ApplyEnvToConfig(&cfg)
			return runConfig(cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&src.File, "db", "", "SQLite database file")
	f.StringVar(&src.URL, "url", "", "libsql database URL")
	f.StringVar(&src.AuthToken, "auth-token", "", "libsql auth token")
	f.StringVar(&table, "table", "", "Table to read")
	f.StringVar(&name, "name", "", "Table name used for output (default: --table)")
	f.StringSliceVar(&selects, "select", nil, "Columns to read (default: all)")
	f.StringArrayVar(&wheres, "where", nil, "Filter such as col=val, col>=val, col~pattern, col!null (repeatable)")
	f.StringVar(&orderBy, "order-by", "", "Sort column")
	f.BoolVar(&desc, "desc", false, "Sort descending")
	f.IntVar(&limit, "limit", 0, "Maximum rows")
	f.StringToStringVar(&types, "type", nil, "Declared column type, col=integer|real|date|text (repeatable)")
	common.register(f)
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// whereOps lists operators longest first so "<=" wins over "<".
var whereOps = []string{"!null", "?null", "<=", ">=", "!=", "<>", "=", "<", ">", "~"}

// parseWhere reads "col<op>value". "col?null" and "col!null" test for NULL.
func parseWhere(s string) (app.WhereSpec, error) {
	best, at := "", -1
	for _, op := range whereOps {
		i := strings.Index(s, op)
		if i <= 0 {
			continue
		}
		if at == -1 || i < at || (i == at && len(op) > len(best)) {
			best, at = op, i
		}
	}
	if at == -1 {
		return app.WhereSpec{}, fmt.Errorf("where %q: want col<op>value", s)
	}
	w := app.WhereSpec{Column: strings.TrimSpace(s[:at]), Value: strings.TrimSpace(s[at+len(best):])}
	switch best {
	case "?null":
		w.Op = "null"
	case "!null":
		w.Op = "notnull"
	case "~":
		w.Op = "like"
	default:
		w.Op = best
	}
	if (w.Op == "null" || w.Op == "notnull") && w.Value != "" {
		return app.WhereSpec{}, fmt.Errorf("where %q: null tests take no value", s)
	}
	return w, nil
}
