package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/resolver"
	"github.com/pmbrain/brain/internal/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <ref>",
	Short: "Resolve a reference to its canonical entity id",
	Long: `Resolve any reference (id, slug, path, filename, alias, or display
name) to a canonical entity id.

Examples:
  brain resolve alice
  brain resolve "Growth Platform"
  brain resolve similar groth        # Near-miss suggestions
  brain resolve build                # Rebuild the reference cache
  brain resolve stats`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		id := res.Resolve(args[0])
		if id == "" {
			if matches := res.FindSimilar(args[0], 3); len(matches) > 0 {
				for _, m := range matches {
					fmt.Fprintf(cmd.ErrOrStderr(), "Did you mean: %s (%s)\n", m.Ref, m.ID)
				}
			}
			return fmt.Errorf("%w: %q", types.ErrNotFound, args[0])
		}
		if jsonOutput {
			outputJSON(map[string]string{"ref": args[0], "id": id})
			return nil
		}
		fmt.Println(id)
		return nil
	},
}

var resolveBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the resolver cache from the entity store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res := resolver.New(st)
		if err := res.Build(); err != nil {
			return err
		}
		if err := res.Save(); err != nil {
			return err
		}
		stats := res.Stats()
		if jsonOutput {
			outputJSON(stats)
			return nil
		}
		fmt.Printf("Resolved %d references across %d entities\n", stats.References, stats.Entities)
		return nil
	},
}

var resolveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show resolver cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		stats := res.Stats()
		if jsonOutput {
			outputJSON(stats)
			return nil
		}
		fmt.Printf("References: %d\nEntities:   %d\nBuilt:      %s\n",
			stats.References, stats.Entities, stats.Built.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var resolveSimilarCmd = &cobra.Command{
	Use:   "similar <ref>",
	Short: "List references close to a failed lookup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		matches := res.FindSimilar(args[0], limit)
		if jsonOutput {
			outputJSON(matches)
			return nil
		}
		for _, m := range matches {
			fmt.Printf("%.2f  %s  %s\n", m.Score, m.Ref, m.ID)
		}
		return nil
	},
}

func init() {
	resolveSimilarCmd.Flags().IntP("limit", "n", 5, "Maximum suggestions")
	resolveCmd.AddCommand(resolveBuildCmd, resolveStatsCmd, resolveSimilarCmd)
	rootCmd.AddCommand(resolveCmd)
}
