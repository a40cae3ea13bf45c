package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/gotabular/internal/app"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		common     commonFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every job in a job file and export the results",
		Long: "Run reads a YAML, JSON, JSON5 or TOML job file (merging <name>.local.<ext> on top),\n" +
			"applies GOTABULAR_* environment variables over it and flags over both,\n" +
			"then runs the jobs concurrently. It exits non-zero if any job failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := app.LoadConfigFile(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			var cfg app.Config
			if err := app.ApplyFileConfig(&cfg, fc); err != nil {
				return err
			}
			app.ApplyEnvOverrides(&cfg)
			common.apply(cmd, &cfg)
			return runConfig(cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "gotabular.yaml", "Job file")
	common.register(f)
	return cmd
}
