package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Display an entity: header summary plus rendered body",
	Long: `Resolve a reference and print the entity. The Markdown body renders
with terminal styling on a TTY; --raw prints the file verbatim.

Examples:
  brain show alice
  brain show growth-platform --raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		rel, err := entityPath(st, res, args[0])
		if err != nil {
			return err
		}
		e, f, err := st.ReadEntity(rel)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(e)
			return nil
		}
		if raw {
			data, err := f.Encode()
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		}

		fmt.Println(ui.RenderTitle(fmt.Sprintf("%s (%s)", e.Name, e.ID)))
		fmt.Printf("  type: %s  version: %d  updated: %s\n", e.Type, e.Version, e.Updated)
		if e.Status != "" {
			fmt.Printf("  status: %s\n", e.Status)
		}
		if e.Role != "" {
			fmt.Printf("  role: %s\n", e.Role)
		}
		if e.Team != "" {
			fmt.Printf("  team: %s\n", e.Team)
		}
		if e.Owner != "" {
			fmt.Printf("  owner: %s\n", e.Owner)
		}
		if len(e.Aliases) > 0 {
			fmt.Printf("  aliases: %s\n", strings.Join(e.Aliases, ", "))
		}
		if len(e.Relationships) > 0 {
			fmt.Println("  relationships:")
			for _, r := range e.Relationships {
				fmt.Printf("    %-12s -> %-40s %.2f\n", r.Type, r.Target, r.Confidence)
			}
		}
		if e.OrphanReason != "" {
			fmt.Printf("  orphan_reason: %s\n", ui.RenderMuted(string(e.OrphanReason)))
		}
		fmt.Printf("  events: %d\n", len(e.Events))

		if body := strings.TrimSpace(f.Body()); body != "" {
			fmt.Println(ui.RenderMarkdown(body, ui.GetWidth()))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("raw", false, "Print the file verbatim")
	rootCmd.AddCommand(showCmd)
}
