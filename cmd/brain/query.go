package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/query"
	"github.com/pmbrain/brain/internal/ui"
)

var queryCmd = &cobra.Command{
	Use:   "query <terms...>",
	Short: "Rank entities by alias, content, and graph proximity",
	Long: `Query the knowledge graph. Alias matches score highest, content
matches lower, and graph expansion pulls in neighbors of strong seeds
at a discount per hop.

Examples:
  brain query checkout                  # Alias and content lookup
  brain query pricing experiment        # Multi-term query
  brain query growth --no-graph         # Skip neighbor expansion
  brain query growth --depth 2 --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		noGraph, _ := cmd.Flags().GetBool("no-graph")
		depth, _ := cmd.Flags().GetInt("depth")
		noSynonyms, _ := cmd.Flags().GetBool("no-synonyms")

		st := openStore()
		reg, ix, err := openEngine(st)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		results, err := query.NewEngine(st, reg, ix).Query(text, query.Options{
			Limit:    limit,
			UseGraph: !noGraph,
			Depth:    depth,
			Synonyms: !noSynonyms,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(results)
			return nil
		}
		if quietMode {
			for _, r := range results {
				fmt.Printf("%s\t%.2f\n", r.ID, r.Score)
			}
			return nil
		}
		fmt.Println(ui.RenderQueryResults(text, results, ui.GetWidth()))
		return nil
	},
}

func init() {
	queryCmd.Flags().IntP("limit", "n", 10, "Maximum results")
	queryCmd.Flags().Bool("no-graph", false, "Disable graph neighbor expansion")
	queryCmd.Flags().Int("depth", 1, "Graph expansion hops")
	queryCmd.Flags().Bool("no-synonyms", false, "Disable synonym expansion for content terms")
	rootCmd.AddCommand(queryCmd)
}
