package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/migrate"
	"github.com/pmbrain/brain/internal/ui"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate v1 entity files to the v2 schema",
	Long: `Detect v1 entities, back up the store, rewrite each file to the v2
header (canonical id, schema_version, version counter, migration
event), rebuild the registry, snapshot, and verify. Any failure after
the backup rolls the store back.

Examples:
  brain migrate --dry-run      # Detect only
  brain migrate                # Full run with backup and verify
  brain migrate --force        # Keep migrated state despite verify errors
  brain migrate rollback       # Restore the most recent backup
  brain migrate status
  brain migrate verify`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		skipBackup, _ := cmd.Flags().GetBool("skip-backup")
		force, _ := cmd.Flags().GetBool("force")

		rep, err := migrate.New(openStore()).Run(migrate.Options{
			DryRun:     dryRun,
			SkipBackup: skipBackup,
			Force:      force,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(rep)
			return nil
		}
		rows := []ui.SummaryRow{
			{Label: "V1 detected", Value: fmt.Sprintf("%d", rep.V1Detected)},
			{Label: "Migrated", Value: fmt.Sprintf("%d", rep.Migrated)},
			{Label: "Skipped (already v2)", Value: fmt.Sprintf("%d", rep.Skipped)},
			{Label: "Malformed", Value: fmt.Sprintf("%d", len(rep.Malformed))},
		}
		if rep.BackupPath != "" {
			rows = append(rows, ui.SummaryRow{Label: "Backup", Value: rep.BackupPath})
		}
		title := "Migration complete"
		if rep.DryRun {
			title = "Migration (dry run)"
		}
		if rep.RolledBack {
			title = "Migration rolled back"
		}
		fmt.Println(ui.RenderSummary(title, rows, ui.GetWidth()))
		if len(rep.Malformed) > 0 {
			fmt.Println(ui.RenderWarningBox("Malformed files skipped:", rep.Malformed,
				"brain validate", ui.GetWidth()))
		}
		return nil
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback [backup-path]",
	Short: "Restore the store from a migration backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := migrate.New(openStore())
		var path string
		var err error
		if len(args) == 1 {
			path = args[0]
		} else if path, err = m.LatestBackup(); err != nil {
			return err
		}
		if !ui.PromptYesNo(fmt.Sprintf("Replace the store with backup %s?", path), false) {
			return nil
		}
		if err := m.Rollback(path); err != nil {
			return err
		}
		fmt.Printf("Store restored from %s\n", path)
		return nil
	},
}

var migrateVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify every entity parses as v2 with no validation errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrate.New(openStore()).Verify(); err != nil {
			return err
		}
		fmt.Println(ui.RenderPass("✓") + " Store verifies clean")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count v1/v2/malformed files and available backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := migrate.New(openStore()).Status()
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(status)
			return nil
		}
		rows := []ui.SummaryRow{
			{Label: "V2 entities", Value: fmt.Sprintf("%d", status.V2)},
			{Label: "V1 entities", Value: fmt.Sprintf("%d", status.V1)},
			{Label: "Malformed", Value: fmt.Sprintf("%d", status.Malformed)},
			{Label: "Backups", Value: fmt.Sprintf("%d", status.Backups)},
		}
		if status.Latest != "" {
			rows = append(rows, ui.SummaryRow{Label: "Latest backup", Value: status.Latest})
		}
		fmt.Println(ui.RenderSummary("Migration status", rows, ui.GetWidth()))
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "Detect without touching any file")
	migrateCmd.Flags().Bool("skip-backup", false, "Migrate without a backup (rollback impossible)")
	migrateCmd.Flags().Bool("force", false, "Keep migrated state even when verification fails")
	migrateCmd.AddCommand(migrateRollbackCmd, migrateVerifyCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
