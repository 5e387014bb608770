package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/progress"
	"reelsmith/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <request.yaml|->",
		Short: "Queue a render job from a YAML or JSON request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readSubmitRequest(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			id, err := client.Submit(cmd.Context(), req)
			if err != nil {
				return wrapAPIError(err, ctx.bind())
			}
			if ctx.jsonOutput() && !watch {
				return writeJSON(cmd, api.SubmitResponse{ID: id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			if !watch {
				return nil
			}
			return watchJob(cmd, ctx, client, id)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until the job finishes")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a job's status, or the daemon status when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return showDaemonStatus(cmd, ctx, client)
			}
			status, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return wrapAPIError(err, ctx.bind())
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatJobStatus(status))
			return nil
		},
	}
}

func showDaemonStatus(cmd *cobra.Command, ctx *commandContext, client *api.Client) error {
	status, err := client.DaemonStatus(cmd.Context())
	if err != nil {
		if api.IsUnavailable(err) && !ctx.jsonOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon: not running (%s)\n", ctx.bind())
			return nil
		}
		return wrapAPIError(err, ctx.bind())
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, status)
	}

	out := cmd.OutOrStdout()
	wf := status.Workflow
	fmt.Fprintf(out, "Daemon: running (pid %d)\n", status.PID)
	fmt.Fprintf(out, "Queue: %d queued, %d processing\n", wf.Queue.Queued, wf.Queue.Processing)
	if wf.CurrentJob != "" {
		fmt.Fprintf(out, "Current job: %s\n", wf.CurrentJob)
	}
	fmt.Fprintf(out, "Processed: %d  Failed: %d\n", wf.Processed, wf.Failed)
	if wf.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", wf.LastError)
	}
	if len(wf.Providers) > 0 {
		rows := make([][]string, 0, len(wf.Providers))
		for _, p := range wf.Providers {
			rows = append(rows, []string{p.Role, p.Name, yesNo(p.Ready), p.Detail})
		}
		fmt.Fprintln(out, renderTable([]string{"Role", "Provider", "Ready", "Detail"}, rows, nil))
	}
	return nil
}

func formatJobStatus(status api.JobStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", status.ID)
	fmt.Fprintf(&b, "Status: %s\n", status.Status)
	if status.Queued {
		fmt.Fprintf(&b, "Position: %d\n", status.Position)
	}
	if status.StageLabel != "" {
		fmt.Fprintf(&b, "Stage: %s (%.0f%%)\n", status.StageLabel, status.Progress)
	}
	if status.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", status.Message)
	}
	if status.SizeBytes > 0 {
		fmt.Fprintf(&b, "Size: %s\n", humanize.Bytes(uint64(status.SizeBytes)))
	}
	if status.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", status.Error)
	}
	return b.String()
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Stream a job's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			return watchJob(cmd, ctx, client, args[0])
		},
	}
}

// watchJob follows the progress stream. Terminal output redraws a single
// line; anything else gets one line per event.
func watchJob(cmd *cobra.Command, ctx *commandContext, client *api.Client, id string) error {
	out := cmd.OutOrStdout()
	inPlace := isTerminal(out) && !ctx.jsonOutput()

	var last progress.Event
	final, err := client.WatchProgress(cmd.Context(), id, func(evt progress.Event) {
		last = evt
		if ctx.jsonOutput() {
			_ = writeJSON(cmd, evt)
			return
		}
		line := formatProgressLine(evt)
		if inPlace {
			fmt.Fprintf(out, "\r\033[K%s", line)
			return
		}
		fmt.Fprintln(out, line)
	})
	if inPlace {
		fmt.Fprintln(out)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return wrapAPIError(err, ctx.bind())
	}
	if final != nil && !ctx.jsonOutput() {
		fmt.Fprint(out, formatJobStatus(*final))
	}
	if final != nil && final.Error != "" {
		return fmt.Errorf("job %s failed: %s", id, final.Error)
	}
	if last.Stage == progress.StageError {
		return fmt.Errorf("job %s failed: %s", id, last.Error)
	}
	return nil
}

func formatProgressLine(evt progress.Event) string {
	line := fmt.Sprintf("[%3.0f%%] %s", evt.Progress, evt.Stage.Label())
	if evt.Message != "" {
		line += ": " + evt.Message
	}
	if evt.Error != "" {
		line += " (" + evt.Error + ")"
	}
	return line
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var output string
	var remove bool

	cmd := &cobra.Command{
		Use:   "fetch <job-id>",
		Short: "Download a finished job's video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			dest := strings.TrimSpace(output)
			if dest == "" {
				dest = id + ".mp4"
			}

			var written int64
			if dest == "-" {
				written, err = client.DownloadArtifact(cmd.Context(), id, cmd.OutOrStdout())
			} else {
				written, err = downloadToFile(cmd.Context(), client, id, dest)
			}
			if err != nil {
				return wrapAPIError(err, ctx.bind())
			}
			if remove {
				if err := client.RemoveArtifact(cmd.Context(), id); err != nil {
					return wrapAPIError(err, ctx.bind())
				}
			}
			if dest != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s)\n", dest, humanize.Bytes(uint64(written)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default <job-id>.mp4, - for stdout)")
	cmd.Flags().BoolVar(&remove, "rm", false, "Delete the video on the daemon after downloading")
	return cmd
}

// downloadToFile writes to a temp file beside dest and renames on success so
// a failed transfer never leaves a truncated video behind.
func downloadToFile(ctx context.Context, client *api.Client, id, dest string) (int64, error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".reelsmith-fetch-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	written, err := client.DownloadArtifact(ctx, id, tmp)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("move download into place: %w", err)
	}
	return written, nil
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List queued and processing jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			jobs, err := client.Jobs(cmd.Context())
			if err != nil {
				return wrapAPIError(err, ctx.bind())
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active jobs")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				position := ""
				if job.Queued {
					position = fmt.Sprintf("%d", job.Position)
				}
				rows = append(rows, []string{
					job.ID,
					job.StageLabel,
					fmt.Sprintf("%.0f%%", job.Progress),
					position,
					job.Message,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Stage", "Progress", "Position", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.AddCommand(newJobsClearCommand(ctx))
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued and processing job (daemon must be stopped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("check daemon lock: %w", err)
			}
			if !locked {
				return errors.New("daemon is running; stop it before clearing the queue")
			}
			defer func() { _ = lock.Unlock() }()

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]int64{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}
}
