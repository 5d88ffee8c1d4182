package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/config"
	"github.com/pmbrain/brain/internal/enrich"
	"github.com/pmbrain/brain/internal/orchestrator"
	"github.com/pmbrain/brain/internal/types"
	"github.com/pmbrain/brain/internal/ui"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the enrichment pipeline over cached source inboxes",
	Long: `Apply cached records from external sources (document store, chat,
issue tracker, code host, calendar, spreadsheets, research) to the
entities they mention. Fields fill only when empty; relationships are
added with source-reliability confidence; every change is an event
carrying the record's correlation id, so re-runs are no-ops.

An interrupted run leaves a checkpoint and resumes where it stopped.

Examples:
  brain enrich
  brain enrich --source chat --source issues
  brain enrich --workers 8 --rate-limit 120
  brain enrich --no-resume --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, _ := cmd.Flags().GetStringSlice("source")
		workers, _ := cmd.Flags().GetInt("workers")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		noResume, _ := cmd.Flags().GetBool("no-resume")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if workers == 0 {
			workers = config.GetInt("enrich.workers")
		}
		if batchSize == 0 {
			batchSize = config.GetInt("enrich.batch-size")
		}
		if rateLimit == 0 {
			rateLimit = config.GetInt("enrich.rate-limit")
		}

		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		rep, err := orchestrator.New(st, enrich.NewDeps(st, res)).Run(rootCtx, orchestrator.Options{
			Sources:        sources,
			Workers:        workers,
			BatchSize:      batchSize,
			RateLimit:      rateLimit,
			CheckpointPath: config.GetString("enrich.checkpoint-file"),
			Resume:         !noResume,
			DryRun:         dryRun,
			Logger:         logger,
		})
		if rep != nil {
			if jsonOutput {
				outputJSON(rep)
			} else {
				rows := []ui.SummaryRow{
					{Label: "Processed", Value: fmt.Sprintf("%d", rep.Processed)},
					{Label: "Successful", Value: fmt.Sprintf("%d", rep.Successful)},
					{Label: "Failed", Value: fmt.Sprintf("%d", rep.Failed)},
					{Label: "Sources run", Value: fmt.Sprintf("%v", rep.SourcesRun)},
				}
				if len(rep.SourcesSkipped) > 0 {
					rows = append(rows, ui.SummaryRow{Label: "Sources skipped", Value: fmt.Sprintf("%v", rep.SourcesSkipped)})
				}
				title := "Enrichment complete"
				if rep.Canceled {
					title = "Enrichment interrupted (resume with brain enrich)"
				}
				fmt.Println(ui.RenderSummary(title, rows, ui.GetWidth()))
				for _, re := range rep.Errors {
					fmt.Println("  " + ui.IssueLine("ERROR", re.Source+"/"+re.Record, re.Err))
				}
			}
		}
		return err
	},
}

var enrichSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List enrichment sources and their reliability scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		deps := enrich.NewDeps(st, res)
		type sourceInfo struct {
			Source      string  `json:"source"`
			Reliability float64 `json:"reliability"`
		}
		var infos []sourceInfo
		for _, name := range enrich.AllSources() {
			en, err := enrich.New(name, deps)
			if err != nil {
				return err
			}
			infos = append(infos, sourceInfo{Source: en.Source(), Reliability: en.Reliability()})
		}
		if jsonOutput {
			outputJSON(infos)
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-12s %.2f\n", info.Source, info.Reliability)
		}
		return nil
	},
}

var enrichTrackCmd = &cobra.Command{
	Use:   "track <entity> [start|approve|reject|complete|block]",
	Short: "Show or advance an entity's enrichment track state",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		rel, err := entityPath(st, res, args[0])
		if err != nil {
			return err
		}
		tracker := enrich.NewTracker(st)

		if len(args) == 1 {
			state, err := tracker.State(rel)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(map[string]string{"entity": args[0], "state": string(state)})
				return nil
			}
			fmt.Println(state)
			return nil
		}

		actor := currentActor()
		switch args[1] {
		case "start":
			err = tracker.Start(rel, actor)
		case "approve":
			err = tracker.Approve(rel, actor)
		case "reject":
			err = tracker.Reject(rel, actor)
		case "complete":
			err = tracker.Complete(rel, actor)
		case "block":
			err = tracker.Block(rel, actor)
		default:
			return fmt.Errorf("%w: unknown transition %q", types.ErrPrecondition, args[1])
		}
		if err != nil {
			return err
		}
		state, err := tracker.State(rel)
		if err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", args[0], state)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringSlice("source", nil, "Sources to run (repeatable; default all)")
	enrichCmd.Flags().Int("workers", 0, "Parallel workers (default from config)")
	enrichCmd.Flags().Int("batch-size", 0, "Records per checkpointed batch (default from config)")
	enrichCmd.Flags().Int("rate-limit", 0, "Records per minute, -1 for unlimited (default from config)")
	enrichCmd.Flags().Bool("no-resume", false, "Ignore any existing checkpoint")
	enrichCmd.Flags().Bool("dry-run", false, "Process without writing entities or checkpoints")
	enrichCmd.AddCommand(enrichSourcesCmd, enrichTrackCmd)
	rootCmd.AddCommand(enrichCmd)
}
