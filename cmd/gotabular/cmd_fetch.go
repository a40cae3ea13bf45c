package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/gotabular/internal/app"
	"github.com/hyperifyio/gotabular/internal/fetch"
)

func newFetchCmd() *cobra.Command {
	var (
		showBody bool
		common   commonFlags
	)
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a document and print its status, content type and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg app.Config
			common.apply(cmd, &cfg)
			app.ApplyEnvToConfig(&cfg)
			applyLogLevel(cfg)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			client, err := app.NewFetcher(cfg)
			if err != nil {
				return err
			}

			doc, err := client.Fetch(ctx, fetch.Request{URL: args[0]})
			var se *fetch.HTTPStatusError
			if errors.As(err, &se) && se.Document != nil {
				doc = se.Document
			} else if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "URL:          %s\n", doc.URL)
			fmt.Fprintf(out, "Status:       %d\n", doc.StatusCode)
			fmt.Fprintf(out, "Content-Type: %s\n", doc.ContentType)
			fmt.Fprintf(out, "Bytes:        %d\n", len(doc.Body))
			if showBody {
				fmt.Fprintf(out, "\n%s\n", doc.Body)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&showBody, "body", false, "Also print the body")
	common.register(f)
	return cmd
}
