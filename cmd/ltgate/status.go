package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/learningtriangle/ltgate/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and check a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return showStatus(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

func showStatus(ctx context.Context, w io.Writer, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := newAPIClient(cfg)
	out := newConsole(w)

	fmt.Fprintln(w, style(ansiBold, "ltgate "+version))

	if err := client.health(ctx); err != nil {
		out.warn("server at %s is not reachable: %v", client.baseURL, err)
	} else {
		out.ok("server at %s is healthy", client.baseURL)
		if n, err := client.publishedReviews(ctx); err != nil {
			out.warn("could not list reviews: %v", err)
		} else {
			out.field("Published reviews", "%d", n)
		}
	}

	out.field("Listen address", "%s", cfg.Addr())
	out.field("Storage", "%s", storageSummary(cfg.Storage))
	out.field("Completion", "%s", completionSummary(cfg.Completion))
	out.field("Time zone", "%s", cfg.Intake.TimeZone)
	return nil
}

func storageSummary(s config.StorageConfig) string {
	if s.Driver == "postgres" {
		return "postgres"
	}
	return fmt.Sprintf("%s (%s)", s.Driver, s.DataDir)
}

func completionSummary(c config.CompletionConfig) string {
	model := c.Model
	if model == "" {
		model = "provider default"
	}
	key := "API key set"
	if c.APIKey == "" {
		key = style(ansiYellow, "API key missing")
	}
	return fmt.Sprintf("%s, %s, %s", c.Provider, model, key)
}
