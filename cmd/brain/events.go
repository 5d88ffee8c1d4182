package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmbrain/brain/internal/events"
	"github.com/pmbrain/brain/internal/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect entity event logs",
	Long: `Every mutation lands in an entity's append-only event log. These
commands read the logs without modifying anything.

Time flags accept RFC3339, YYYY-MM-DD, or natural language:
  brain events list alice --since "last tuesday"
  brain events query --type field_update --since "2 weeks ago"
  brain events timeline growth-platform
  brain events count --by actor
  brain events correlation chat/msg-123`,
}

func eventFilter(cmd *cobra.Command) (events.Filter, error) {
	var f events.Filter
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		t, err := parseTimeFlag(s)
		if err != nil {
			return f, err
		}
		f.Since = t
	}
	if s, _ := cmd.Flags().GetString("until"); s != "" {
		t, err := parseTimeFlag(s)
		if err != nil {
			return f, err
		}
		f.Until = t
	}
	for _, t := range mustStringSlice(cmd, "type") {
		f.Types = append(f.Types, types.EventType(t))
	}
	f.Actors = mustStringSlice(cmd, "actor-filter")
	return f, nil
}

func mustStringSlice(cmd *cobra.Command, name string) []string {
	v, _ := cmd.Flags().GetStringSlice(name)
	return v
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("since", "", "Events at or after this time")
	cmd.Flags().String("until", "", "Events before this time")
	cmd.Flags().StringSlice("type", nil, "Filter by event type (repeatable)")
	cmd.Flags().StringSlice("actor-filter", nil, "Filter by actor (repeatable)")
}

func printEvent(prefix string, ev types.Event) {
	fmt.Printf("%s%s  %-18s  %-20s  %s\n", prefix, ev.Timestamp, ev.Type, ev.Actor, ev.Message)
}

var eventsListCmd = &cobra.Command{
	Use:   "list <entity>",
	Short: "List one entity's events, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		rel, err := entityPath(st, res, args[0])
		if err != nil {
			return err
		}
		filter, err := eventFilter(cmd)
		if err != nil {
			return err
		}
		evs, err := events.New(st).ForEntity(rel, filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(evs)
			return nil
		}
		for _, ev := range evs {
			printEvent("", ev)
		}
		return nil
	},
}

var eventsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query events across every entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		pathGlob, _ := cmd.Flags().GetString("path")
		limit, _ := cmd.Flags().GetInt("limit")
		filter, err := eventFilter(cmd)
		if err != nil {
			return err
		}
		out, err := events.New(openStore()).Query(filter, pathGlob, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(out)
			return nil
		}
		for _, ee := range out {
			printEvent(fmt.Sprintf("%-40s ", ee.EntityID), ee.Event)
		}
		return nil
	},
}

var eventsTimelineCmd = &cobra.Command{
	Use:   "timeline <entity>",
	Short: "Show an entity's events inside a time window, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := openStore()
		res, err := openResolver(st, false)
		if err != nil {
			return err
		}
		rel, err := entityPath(st, res, args[0])
		if err != nil {
			return err
		}
		var since, until time.Time
		if s, _ := cmd.Flags().GetString("since"); s != "" {
			if since, err = parseTimeFlag(s); err != nil {
				return err
			}
		}
		if s, _ := cmd.Flags().GetString("until"); s != "" {
			if until, err = parseTimeFlag(s); err != nil {
				return err
			}
		}
		evs, err := events.New(st).Timeline(rel, since, until)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(evs)
			return nil
		}
		for _, ev := range evs {
			printEvent("", ev)
		}
		return nil
	},
}

var eventsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Aggregate event counts by type, actor, or entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		by, _ := cmd.Flags().GetString("by")
		groupBy := events.GroupBy(by)
		switch groupBy {
		case events.GroupByType, events.GroupByActor, events.GroupByID:
		default:
			return fmt.Errorf("%w: --by must be type, actor, or id", types.ErrPrecondition)
		}
		counts, err := events.New(openStore()).Count(groupBy)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(counts)
			return nil
		}
		for _, k := range sortedKeys(counts) {
			fmt.Printf("%-40s %d\n", k, counts[k])
		}
		return nil
	},
}

var eventsCorrelationCmd = &cobra.Command{
	Use:   "correlation <id>",
	Short: "Find every event carrying a correlation id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := events.New(openStore()).ByCorrelation(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(out)
			return nil
		}
		for _, ee := range out {
			printEvent(fmt.Sprintf("%-40s ", ee.EntityID), ee.Event)
		}
		return nil
	},
}

// sortedKeys orders keys by descending count, ties alphabetical.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func init() {
	addFilterFlags(eventsListCmd)
	addFilterFlags(eventsQueryCmd)
	eventsQueryCmd.Flags().String("path", "", "Glob over entity paths (e.g. \"People/*\")")
	eventsQueryCmd.Flags().IntP("limit", "n", 50, "Maximum events (0 = all)")
	eventsTimelineCmd.Flags().String("since", "", "Window start")
	eventsTimelineCmd.Flags().String("until", "", "Window end")
	eventsCountCmd.Flags().String("by", "type", "Group by: type, actor, or id")
	eventsCmd.AddCommand(eventsListCmd, eventsQueryCmd, eventsTimelineCmd, eventsCountCmd, eventsCorrelationCmd)
	rootCmd.AddCommand(eventsCmd)
}
