package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/hints"
)

var hintsCmd = &cobra.Command{
	Use:   "hints",
	Short: "Suggest which sources can fill each entity's missing fields",
	Long: `Walk the store and, per entity, list the fields that are empty and
which enrichment sources usually supply them, highest priority first.

Examples:
  brain hints
  brain hints --with-gaps-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gapsOnly, _ := cmd.Flags().GetBool("with-gaps-only")

		entities, summary, err := hints.Analyze(openStore())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"entities": entities, "summary": summary})
			return nil
		}
		for _, eh := range entities {
			if gapsOnly && len(eh.Gaps) == 0 {
				continue
			}
			fmt.Printf("%s (%d gaps)\n", eh.EntityID, len(eh.Gaps))
			for _, g := range eh.Gaps {
				fmt.Printf("  %-8s %-14s try: %s\n", g.Priority, g.Field, strings.Join(g.Sources, ", "))
			}
		}
		fmt.Printf("\n%d entities, %d with gaps, %d gaps total\n",
			summary.Entities, summary.WithGaps, summary.TotalGaps)
		return nil
	},
}

func init() {
	hintsCmd.Flags().Bool("with-gaps-only", false, "Hide entities with nothing missing")
	rootCmd.AddCommand(hintsCmd)
}
