package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the entity registry (registry.yaml)",
}

var registryBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild registry.yaml from the entity files",
	Long: `Scan every entity file and rebuild the registry: slug, type, path,
and aliases per entity, plus orphan and malformed-file bookkeeping.

Examples:
  brain registry build
  brain registry build --incremental   # Keep entries whose files vanished mid-scan
  brain registry build --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		incremental, _ := cmd.Flags().GetBool("incremental")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		output, _ := cmd.Flags().GetString("output")

		st := openStore()
		reg, err := registry.NewBuilder(st).Build(registry.Options{
			Incremental: incremental,
			DryRun:      dryRun,
			Output:      output,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(reg)
			return nil
		}
		fmt.Printf("Registry: %d entities", len(reg.Entities))
		if dryRun {
			fmt.Print(" (dry run, not written)")
		}
		fmt.Println()
		return nil
	},
}

var registryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the on-disk registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		reg, err := registry.Load(st.Root())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(reg.Stats)
			return nil
		}
		fmt.Printf("Entities: %d (generated %s)\n", reg.Stats.Total, reg.Generated)
		keys := make([]string, 0, len(reg.Stats.ByType))
		for k := range reg.Stats.ByType {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-12s %d\n", k, reg.Stats.ByType[k])
		}
		return nil
	},
}

func init() {
	registryBuildCmd.Flags().Bool("incremental", false, "Overlay the rescan onto the existing registry")
	registryBuildCmd.Flags().Bool("dry-run", false, "Compute without writing")
	registryBuildCmd.Flags().StringP("output", "o", "", "Destination path (default <root>/registry.yaml)")
	registryCmd.AddCommand(registryBuildCmd, registryStatsCmd)
	rootCmd.AddCommand(registryCmd)
}
