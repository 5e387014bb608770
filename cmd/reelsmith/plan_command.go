package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/timeline"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <scenes.yaml|->",
		Short: "Compose a timeline offline and print its scene and caption slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := composeDocument(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, plan)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%dx%d @ %d fps, %d frames (%.2fs)\n",
				plan.Width, plan.Height, plan.FPS, plan.DurationFrames,
				float64(plan.DurationFrames)/float64(plan.FPS))

			rows := make([][]string, 0, len(plan.Slots))
			for i, slot := range plan.Slots {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i),
					"",
					fmt.Sprintf("%d", slot.StartFrame),
					fmt.Sprintf("%d", slot.DurationFrames),
					slot.Scene.VideoRef,
				})
				for j, page := range slot.Pages {
					rows = append(rows, []string{
						"",
						fmt.Sprintf("%d", j),
						fmt.Sprintf("%d", slot.StartFrame+page.StartFrame),
						fmt.Sprintf("%d", page.DurationFrames),
						pageText(page),
					})
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Page", "Start", "Frames", "Content"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func pageText(page timeline.PageSlot) string {
	tokens := page.Page.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if text := strings.TrimSpace(tok.Text); text != "" {
			words = append(words, text)
		}
	}
	return strings.Join(words, " ")
}

// composeDocument applies configured defaults to the document's render
// settings and composes it the same way the worker does.
func composeDocument(cmd *cobra.Command, ctx *commandContext, path string) (*timeline.Plan, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	doc, err := readPlanDocument(cmd.InOrStdin(), path)
	if err != nil {
		return nil, err
	}
	return composePlan(cfg, doc)
}

func composePlan(cfg *config.Config, doc planDocument) (*timeline.Plan, error) {
	fps := doc.FPS
	if fps <= 0 {
		fps = cfg.Render.FPS
	}
	renderCfg := doc.Config.Normalize(cfg.Render.Defaults)
	return timeline.Compose(doc.Scenes, renderCfg, fps, timeline.Options{
		Pagination: cfg.Captions,
		Animation:  cfg.Animation,
	})
}

func newFrameCommand(ctx *commandContext) *cobra.Command {
	var frame int

	cmd := &cobra.Command{
		Use:   "frame <scenes.yaml|->",
		Short: "Print the draw instructions for one frame of a composed timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := composeDocument(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			if frame < 0 || frame >= plan.DurationFrames {
				return fmt.Errorf("frame %d outside timeline (0-%d)", frame, plan.DurationFrames-1)
			}
			return writeJSON(cmd, timeline.Render(plan, frame))
		},
	}
	cmd.Flags().IntVar(&frame, "frame", 0, "Frame index to render")
	return cmd
}
