package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/logging"
	"reelsmith/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var query logs.StreamQuery
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("paths.api_bind is not configured")
			}

			out := cmd.OutOrStdout()
			emit := func(evt logging.LogEvent) {
				if ctx.jsonOutput() {
					_ = writeJSON(cmd, evt)
					return
				}
				fmt.Fprintln(out, logs.Format(evt))
			}

			if follow {
				err = client.Follow(cmd.Context(), query, emit)
			} else {
				query.Tail = true
				var page api.LogStreamResponse
				page, err = client.Fetch(cmd.Context(), query)
				for _, evt := range page.Events {
					emit(evt)
				}
			}
			if err != nil && logs.IsAPIUnavailable(err) {
				return fmt.Errorf("connect to daemon at %s: %w (start it with `reelsmith serve`)", cfg.Paths.APIBind, err)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new events")
	cmd.Flags().IntVarP(&query.Limit, "lines", "n", 50, "Number of recent events to show")
	cmd.Flags().StringVar(&query.JobID, "job", "", "Only show events for a job id")
	cmd.Flags().StringVar(&query.Component, "component", "", "Only show events from a component")
	cmd.Flags().StringVar(&query.Level, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}
