package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/normalize"
	"github.com/pmbrain/brain/internal/ui"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [entity]",
	Short: "Canonicalize and deduplicate relationship targets",
	Long: `Rewrite relationship targets to canonical ids, drop duplicates, and
report targets that resolve to nothing. Every rewrite lands as one
normalization event on the entity.

Examples:
  brain normalize                 # Whole store
  brain normalize growth-platform # One entity
  brain normalize --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		n := normalize.New(st, res)

		if len(args) == 1 {
			rel, err := entityPath(st, res, args[0])
			if err != nil {
				return err
			}
			result, err := n.Entity(rel, dryRun)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(result)
				return nil
			}
			fmt.Printf("%s: %d canonicalized, %d deduplicated, %d orphan targets\n",
				result.ID, result.Canonicalized, result.Deduplicated, len(result.Orphans))
			return nil
		}

		var progress func(done, total int)
		if !quietMode && !jsonOutput {
			progress = func(done, total int) {
				fmt.Printf("\rNormalizing %d/%d", done, total)
				if done == total {
					fmt.Println()
				}
			}
		}
		rep, err := n.All(dryRun, progress)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(rep)
			return nil
		}
		rows := []ui.SummaryRow{
			{Label: "Scanned", Value: fmt.Sprintf("%d", rep.Scanned)},
			{Label: "Changed", Value: fmt.Sprintf("%d", rep.Changed)},
			{Label: "Canonicalized", Value: fmt.Sprintf("%d", rep.Canonicalized)},
			{Label: "Deduplicated", Value: fmt.Sprintf("%d", rep.Deduplicated)},
			{Label: "Orphan targets", Value: fmt.Sprintf("%d", len(rep.Orphans))},
		}
		title := "Normalization complete"
		if dryRun {
			title = "Normalization (dry run)"
		}
		fmt.Println(ui.RenderSummary(title, rows, ui.GetWidth()))
		if len(rep.Orphans) > 0 {
			var lines []string
			for _, o := range rep.Orphans {
				lines = append(lines, fmt.Sprintf("%s -> %s", o.EntityID, o.Target))
			}
			fmt.Println(ui.RenderWarningBox("Unresolvable targets:", lines,
				"brain orphans", ui.GetWidth()))
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().Bool("dry-run", false, "Report without writing")
	rootCmd.AddCommand(normalizeCmd)
}
