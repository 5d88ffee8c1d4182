package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/stale"
	"github.com/pmbrain/brain/internal/ui"
)

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Find entities that have gone quiet",
	Long: `Flag entities not updated within their per-type age threshold, in a
terminal status, or past their validity window.

Examples:
  brain stale
  brain stale --top 10
  brain stale --threshold 30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top")
		threshold, _ := cmd.Flags().GetInt("threshold")

		rep, err := stale.NewDetector(openStore()).Scan(stale.Options{
			ThresholdDays: threshold,
			TopK:          topK,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(rep)
			return nil
		}
		fmt.Printf("%d entities, %d stale\n", rep.Entities, rep.Stale)
		for _, e := range rep.Entries {
			reasons := make([]string, 0, len(e.Reasons))
			for _, r := range e.Reasons {
				reasons = append(reasons, string(r))
			}
			fmt.Printf("%s %-40s %-12s %4dd  %v\n",
				ui.RenderWarn("!"), e.EntityID, e.Type, e.AgeDays, reasons)
		}
		return nil
	},
}

func init() {
	staleCmd.Flags().Int("top", 0, "Keep only the K oldest entries")
	staleCmd.Flags().Int("threshold", 0, "Override every per-type age threshold (days)")
	rootCmd.AddCommand(staleCmd)
}
