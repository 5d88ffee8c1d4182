package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/index"
	"github.com/pmbrain/brain/internal/migrate"
	"github.com/pmbrain/brain/internal/orphans"
	"github.com/pmbrain/brain/internal/registry"
	"github.com/pmbrain/brain/internal/snapshot"
	"github.com/pmbrain/brain/internal/types"
	"github.com/pmbrain/brain/internal/ui"
	"github.com/pmbrain/brain/internal/validation"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the health of the brain root",
	Long: `Run every read-only check: schema validation, registry and index
freshness, orphan hygiene, pending migrations, and snapshot recency.
Exits non-zero when any check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		var rows []ui.SummaryRow
		var findings []string

		check := func(label string, ok bool, detail string) {
			mark := ui.RenderPass("✓")
			if !ok {
				mark = ui.RenderFail("✗")
				findings = append(findings, label+": "+detail)
			}
			rows = append(rows, ui.SummaryRow{Label: label, Value: mark + " " + detail})
		}

		if _, err := os.Stat(st.Root()); err != nil {
			return fmt.Errorf("%w: brain root %s does not exist", types.ErrNotFound, st.Root())
		}
		rows = append(rows, ui.SummaryRow{Label: "Root", Value: st.Root()})

		_, vSummary, err := validation.ValidateAll(st)
		if err != nil {
			return err
		}
		check("Validation", vSummary.TotalErrors == 0,
			fmt.Sprintf("%d files, %d errors, %d warnings", vSummary.Total, vSummary.TotalErrors, vSummary.TotalWarnings))

		mStatus, err := migrate.New(st).Status()
		if err != nil {
			return err
		}
		check("Schema", mStatus.V1 == 0,
			fmt.Sprintf("%d v2, %d v1, %d malformed", mStatus.V2, mStatus.V1, mStatus.Malformed))

		if _, err := registry.Load(st.Root()); err != nil {
			check("Registry", false, "missing (run brain registry build)")
		} else {
			check("Registry", true, "present")
		}

		if _, err := index.Load(st.Root(), indexOptions()); err != nil {
			check("Index", false, "missing (run brain index build)")
		} else {
			check("Index", true, "present")
		}

		oRep, err := orphans.New(st).Scan()
		if err != nil {
			return err
		}
		check("Orphans", oRep.Unmarked == 0 && oRep.Misflagged == 0,
			fmt.Sprintf("%d orphans, %d unmarked, %d misflagged", oRep.Orphans, oRep.Unmarked, oRep.Misflagged))

		if latest, err := snapshot.NewManager(st).Latest(); err != nil {
			check("Snapshot", false, "none (run brain snapshot create)")
		} else {
			check("Snapshot", true, filepath.Base(latest))
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"root":      st.Root(),
				"healthy":   len(findings) == 0,
				"findings":  findings,
				"valid":     vSummary,
				"migration": mStatus,
				"orphans":   oRep.ByReason,
			})
		} else {
			fmt.Println(ui.RenderSummary("brain doctor", rows, ui.GetWidth()))
			if len(findings) > 0 {
				fmt.Println(ui.RenderWarningBox("Findings:", findings, "", ui.GetWidth()))
			}
		}

		if len(findings) > 0 {
			return fmt.Errorf("%w: %d checks failed", types.ErrPrecondition, len(findings))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
