package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the inverted content index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the content index from entity bodies",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		ix, err := index.Build(st, indexOptions())
		if err != nil {
			return err
		}
		if err := ix.Save(st.Root()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(ix.Meta)
			return nil
		}
		fmt.Printf("Indexed %d entities: %d tokens, %d postings\n",
			ix.Meta.EntityCount, ix.Meta.TokenCount, ix.Meta.TotalPostings)
		for _, e := range ix.Meta.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "WARN [index]: %s\n", e)
		}
		return nil
	},
}

var indexSearchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Search the content index directly",
	Long: `Search entity bodies by stemmed token. AND semantics by default;
--any switches to OR.

Examples:
  brain index search pricing checkout
  brain index search pricing --any`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		anyMode, _ := cmd.Flags().GetBool("any")
		noSynonyms, _ := cmd.Flags().GetBool("no-synonyms")

		st := openStore()
		ix, err := index.Load(st.Root(), indexOptions())
		if err != nil {
			return err
		}
		var terms []string
		for _, arg := range args {
			terms = append(terms, ix.QueryTokens(arg, !noSynonyms)...)
		}
		mode := index.ModeAnd
		if anyMode {
			mode = index.ModeOr
		}
		ids := ix.Search(terms, mode)
		if jsonOutput {
			outputJSON(ids)
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show content index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		ix, err := index.Load(st.Root(), indexOptions())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(ix.Meta)
			return nil
		}
		fmt.Printf("Built:    %s\nEntities: %d\nTokens:   %d\nPostings: %d\nErrors:   %d\n",
			ix.Meta.Built, ix.Meta.EntityCount, ix.Meta.TokenCount,
			ix.Meta.TotalPostings, len(ix.Meta.Errors))
		return nil
	},
}

func init() {
	indexSearchCmd.Flags().Bool("any", false, "Match entities containing any term (default: all)")
	indexSearchCmd.Flags().Bool("no-synonyms", false, "Disable synonym expansion")
	indexCmd.AddCommand(indexBuildCmd, indexSearchCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}
