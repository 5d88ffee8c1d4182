package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/orphans"
	"github.com/pmbrain/brain/internal/types"
	"github.com/pmbrain/brain/internal/ui"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Analyze and annotate entities with no relationships",
	Long: `Entities without relationships carry an orphan_reason explaining why
they stand alone. The bare command scans read-only; subcommands write
annotations as field_update events.

Examples:
  brain orphans
  brain orphans mark-pending
  brain orphans mark-standalone --type domain --type brand
  brain orphans mark-no-data
  brain orphans clear-connected`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := orphans.New(openStore()).Scan()
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(rep)
			return nil
		}
		rows := []ui.SummaryRow{
			{Label: "Entities", Value: fmt.Sprintf("%d", rep.Entities)},
			{Label: "Orphans", Value: fmt.Sprintf("%d", rep.Orphans)},
			{Label: "Unmarked", Value: fmt.Sprintf("%d", rep.Unmarked)},
			{Label: "Misflagged", Value: fmt.Sprintf("%d", rep.Misflagged)},
		}
		fmt.Println(ui.RenderSummary("Orphan analysis", rows, ui.GetWidth()))
		for reason, count := range rep.ByReason {
			fmt.Printf("  %-24s %d\n", reason, count)
		}
		return nil
	},
}

func runMark(mutate func(*orphans.Analyzer, bool) (*orphans.MutationResult, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		res, err := mutate(orphans.New(openStore()), dryRun)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(res)
			return nil
		}
		verb := "Marked"
		if dryRun {
			verb = "Would mark"
		}
		fmt.Printf("%s %d of %d scanned\n", verb, res.Marked, res.Scanned)
		return nil
	}
}

var orphansMarkPendingCmd = &cobra.Command{
	Use:   "mark-pending",
	Short: "Mark unannotated orphans as pending_enrichment",
	RunE: runMark(func(a *orphans.Analyzer, dryRun bool) (*orphans.MutationResult, error) {
		return a.MarkPending(dryRun)
	}),
}

var orphansMarkStandaloneCmd = &cobra.Command{
	Use:   "mark-standalone",
	Short: "Mark orphans of the given types as intentionally standalone",
	RunE: func(cmd *cobra.Command, args []string) error {
		typeNames, _ := cmd.Flags().GetStringSlice("type")
		if len(typeNames) == 0 {
			return fmt.Errorf("%w: at least one --type is required", types.ErrPrecondition)
		}
		var entityTypes []types.EntityType
		for _, name := range typeNames {
			entityTypes = append(entityTypes, types.EntityType(name))
		}
		return runMark(func(a *orphans.Analyzer, dryRun bool) (*orphans.MutationResult, error) {
			return a.MarkStandalone(entityTypes, dryRun)
		})(cmd, args)
	},
}

var orphansMarkNoDataCmd = &cobra.Command{
	Use:   "mark-no-data",
	Short: "Promote pending_enrichment orphans to no_external_data",
	RunE: runMark(func(a *orphans.Analyzer, dryRun bool) (*orphans.MutationResult, error) {
		return a.MarkNoData(dryRun)
	}),
}

var orphansClearConnectedCmd = &cobra.Command{
	Use:   "clear-connected",
	Short: "Remove orphan_reason from entities that gained relationships",
	RunE: runMark(func(a *orphans.Analyzer, dryRun bool) (*orphans.MutationResult, error) {
		return a.ClearConnected(dryRun)
	}),
}

func init() {
	for _, c := range []*cobra.Command{orphansMarkPendingCmd, orphansMarkStandaloneCmd,
		orphansMarkNoDataCmd, orphansClearConnectedCmd} {
		c.Flags().Bool("dry-run", false, "Report without writing")
		orphansCmd.AddCommand(c)
	}
	orphansMarkStandaloneCmd.Flags().StringSlice("type", nil, "Entity types to mark (repeatable)")
	rootCmd.AddCommand(orphansCmd)
}
