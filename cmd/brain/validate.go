package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/types"
	"github.com/pmbrain/brain/internal/ui"
	"github.com/pmbrain/brain/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [entity]",
	Short: "Validate entity headers against the v2 schema",
	Long: `Check required fields, value domains, timestamps, relationship and
event structure. Without an argument the whole store is validated.

Examples:
  brain validate
  brain validate alice
  brain validate --errors-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		errorsOnly, _ := cmd.Flags().GetBool("errors-only")
		st := openStore()

		var results []validation.Result
		var summary validation.Summary
		if len(args) == 1 {
			res, err := openResolver(st, false)
			if err != nil {
				return err
			}
			rel, err := entityPath(st, res, args[0])
			if err != nil {
				return err
			}
			f, err := st.Read(rel)
			if err != nil {
				return err
			}
			r := validation.ValidateFile(rel, f)
			results = []validation.Result{r}
			summary.Total = 1
			summary.TotalErrors = len(r.Errors)
			summary.TotalWarnings = len(r.Warnings)
		} else {
			var err error
			results, summary, err = validation.ValidateAll(st)
			if err != nil {
				return err
			}
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"results": results, "summary": summary})
		} else {
			for _, r := range results {
				if len(r.Errors) == 0 && (errorsOnly || len(r.Warnings) == 0) {
					continue
				}
				fmt.Printf("%s (%s)\n", r.Path, r.Format)
				for _, issue := range r.Errors {
					fmt.Println("  " + ui.IssueLine("ERROR", issue.Field, issue.Message))
				}
				if !errorsOnly {
					for _, issue := range r.Warnings {
						fmt.Println("  " + ui.IssueLine("WARN", issue.Field, issue.Message))
					}
				}
			}
			fmt.Printf("\n%d files: %d errors, %d warnings",
				summary.Total, summary.TotalErrors, summary.TotalWarnings)
			if summary.V1Format > 0 {
				fmt.Printf(", %d still v1 (run brain migrate)", summary.V1Format)
			}
			fmt.Println()
		}

		if summary.TotalErrors > 0 {
			return fmt.Errorf("%w: %d validation errors", types.ErrMalformed, summary.TotalErrors)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("errors-only", false, "Hide warnings")
	rootCmd.AddCommand(validateCmd)
}
