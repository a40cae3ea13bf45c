package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/gotabular/internal/app"
)

func newExtractCmd() *cobra.Command {
	var (
		css             string
		path            string
		name            string
		types           map[string]string
		query           map[string]string
		headers         map[string]string
		dateLayouts     []string
		acceptErrorBody bool
		common          commonFlags
	)
	cmd := &cobra.Command{
		Use:   "extract URL",
		Short: "Extract one table from a URL",
		Example: "  gotabular extract https://en.wikipedia.org/wiki/Men%27s_100_metres_world_record_progression \\\n" +
			"    --css 'table.wikitable' --type time=real --type date=date --date-layout 'January 2, 2006' -f pretty",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("css") == f.Changed("path") {
				return errors.New("exactly one of --css or --path is required")
			}
			job := app.JobSpec{
				Name:            name,
				URL:             args[0],
				Query:           query,
				Headers:         headers,
				CSS:             css,
				AcceptErrorBody: acceptErrorBody,
				DateLayouts:     dateLayouts,
				Types:           parseTypes(types),
			}
			if f.Changed("path") {
				job.Path = &path
			}
			cfg := app.Config{Jobs: []app.JobSpec{job}}
			common.apply(cmd, &cfg)
			app.ApplyEnvToConfig(&cfg)
			return runConfig(cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&css, "css", "", "CSS selector for HTML tables")
	f.StringVar(&path, "path", "", "Dot-separated key path into JSON; * fans out")
	f.StringVar(&name, "name", "table", "Table name used for titles and output files")
	f.StringToStringVar(&types, "type", nil, "Declared column type, col=integer|real|date|text (repeatable)")
	f.StringToStringVar(&query, "query", nil, "Query parameter, key=value (repeatable)")
	f.StringToStringVarP(&headers, "header", "H", nil, "Request header, Name=value (repeatable)")
	f.StringArrayVar(&dateLayouts, "date-layout", nil, "Go time layout accepted for date columns (repeatable)")
	f.BoolVar(&acceptErrorBody, "accept-error-body", false, "Extract the body of 4xx/5xx responses instead of failing")
	common.register(f)
	return cmd
}
