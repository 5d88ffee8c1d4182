package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/config"
	"github.com/pmbrain/brain/internal/decay"
	"github.com/pmbrain/brain/internal/ui"
)

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Report effective confidence and stale relationships",
	Long: `Confidence decays linearly from the last verification (1% per week
by default, floored at 0.3). Relationships older than their per-type
staleness threshold are flagged for re-verification. Read-only: stored
confidence values are never rewritten.

Examples:
  brain decay                  # Full report
  brain decay --stale-only
  brain decay --top 10         # Ten stalest relationships
  brain decay --threshold 30   # Override every per-type threshold`,
	RunE: func(cmd *cobra.Command, args []string) error {
		staleOnly, _ := cmd.Flags().GetBool("stale-only")
		topK, _ := cmd.Flags().GetInt("top")
		threshold, _ := cmd.Flags().GetInt("threshold")
		rate, _ := cmd.Flags().GetFloat64("rate")
		if rate == 0 {
			rate = config.GetFloat("decay.rate")
		}

		opts := decay.Options{
			Rate:          rate,
			Floor:         config.GetFloat("decay.floor"),
			ThresholdDays: threshold,
			TopK:          topK,
		}
		m := decay.NewMonitor(openStore())
		var rep *decay.Report
		var err error
		if staleOnly {
			rep, err = m.StaleOnly(opts)
		} else {
			rep, err = m.Scan(opts)
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(rep)
			return nil
		}
		fmt.Printf("%d entities, %d relationships, %d stale\n",
			rep.Entities, rep.Relationships, rep.Stale)
		for _, e := range rep.Entries {
			marker := " "
			if e.Stale {
				marker = ui.RenderWarn("!")
			}
			fmt.Printf("%s %-40s %-12s -> %-40s %.2f (base %.2f, %dd old, threshold %dd)\n",
				marker, e.EntityID, e.RelType, e.Target, e.Effective, e.Base, e.AgeDays, e.Threshold)
		}
		return nil
	},
}

func init() {
	decayCmd.Flags().Bool("stale-only", false, "Only relationships past their threshold")
	decayCmd.Flags().Int("top", 0, "Keep only the K stalest entries")
	decayCmd.Flags().Int("threshold", 0, "Override every per-type staleness threshold (days)")
	decayCmd.Flags().Float64("rate", 0, "Weekly decay rate (default from config)")
	rootCmd.AddCommand(decayCmd)
}
