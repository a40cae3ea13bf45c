package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/gotabular/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), app.VersionString())
			return err
		},
	}
}
