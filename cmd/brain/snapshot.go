package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/config"
	"github.com/pmbrain/brain/internal/snapshot"
	"github.com/pmbrain/brain/internal/ui"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Point-in-time registry snapshots under .snapshots/",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a new snapshot and repoint latest",
	Long: `Snapshot the current registry (and optionally every entity header)
to .snapshots/<date>/snapshot-<time>.json.gz.

Examples:
  brain snapshot create
  brain snapshot create --entities     # Include full entity headers
  brain snapshot create --plain        # Skip gzip compression`,
	RunE: func(cmd *cobra.Command, args []string) error {
		includeEntities, _ := cmd.Flags().GetBool("entities")
		plain, _ := cmd.Flags().GetBool("plain")

		path, err := snapshot.NewManager(openStore()).Create(snapshot.Options{
			IncludeEntities: includeEntities,
			Plain:           plain,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"path": path})
			return nil
		}
		fmt.Printf("Snapshot written: %s\n", path)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := snapshot.NewManager(openStore()).List()
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(infos)
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %8d  %s\n", info.Date, info.Size, info.Path)
		}
		return nil
	},
}

var snapshotGetCmd = &cobra.Command{
	Use:   "get <date>",
	Short: "Show the snapshot closest at or before a date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := snapshot.NewManager(openStore())
		path, err := m.Get(args[0])
		if err != nil {
			return err
		}
		doc, err := snapshot.Read(path)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(doc)
			return nil
		}
		fmt.Printf("Snapshot: %s\nCreated:  %s\nEntities: %d\n",
			path, doc.Created, doc.Registry.Stats.Total)
		return nil
	},
}

var snapshotLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the path of the most recent snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := snapshot.NewManager(openStore()).Latest()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var snapshotCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune snapshots past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		retention, _ := cmd.Flags().GetInt("retention-days")
		if retention == 0 {
			retention = config.GetInt("snapshot.retention-days")
		}
		keepMonthly, _ := cmd.Flags().GetBool("keep-monthly")
		if !cmd.Flags().Changed("keep-monthly") {
			keepMonthly = config.GetBool("snapshot.keep-monthly")
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		res, err := snapshot.NewManager(openStore()).Cleanup(snapshot.CleanupOptions{
			RetentionDays: retention,
			KeepMonthly:   keepMonthly,
			DryRun:        dryRun,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(res)
			return nil
		}
		verb := "Removed"
		if dryRun {
			verb = "Would remove"
		}
		fmt.Printf("%s %d snapshots, kept %d\n", verb, len(res.Removed), res.Kept)
		return nil
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore [path]",
	Short: "Restore registry.yaml from a snapshot (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := snapshot.NewManager(openStore())
		var path string
		var err error
		if len(args) == 1 {
			path = args[0]
		} else if path, err = m.Latest(); err != nil {
			return err
		}
		if !ui.PromptYesNo(fmt.Sprintf("Overwrite registry.yaml from %s?", path), false) {
			return nil
		}
		if err := m.RestoreRegistry(path); err != nil {
			return err
		}
		fmt.Printf("Registry restored from %s\n", path)
		return nil
	},
}

func init() {
	snapshotCreateCmd.Flags().Bool("entities", false, "Include full entity headers")
	snapshotCreateCmd.Flags().Bool("plain", false, "Disable gzip compression")
	snapshotCleanupCmd.Flags().Int("retention-days", 0, "Retention window (default from config)")
	snapshotCleanupCmd.Flags().Bool("keep-monthly", true, "Keep the first snapshot of each month")
	snapshotCleanupCmd.Flags().Bool("dry-run", false, "Report deletions without performing them")
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotGetCmd,
		snapshotLatestCmd, snapshotCleanupCmd, snapshotRestoreCmd)
	rootCmd.AddCommand(snapshotCmd)
}
