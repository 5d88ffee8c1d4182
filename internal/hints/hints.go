// Package hints reports which header fields each entity is missing and
// which external sources are most likely to fill them.
package hints

import (
	"sort"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Priority labels how urgently a gap should be filled.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Hint names the sources expected to provide one field.
type Hint struct {
	Sources  []string `json:"sources"`
	Priority Priority `json:"priority"`
}

// fieldHints maps (entity type, field) to its recommended sources. The
// table is static; sources are the enricher names under
// .enrichment_inbox/.
var fieldHints = map[types.EntityType]map[string]Hint{
	types.TypePerson: {
		"role":          {Sources: []string{"docstore", "chat"}, Priority: PriorityHigh},
		"team":          {Sources: []string{"chat", "issues"}, Priority: PriorityHigh},
		"relationships": {Sources: []string{"chat", "calendar"}, Priority: PriorityMedium},
		"aliases":       {Sources: []string{"chat"}, Priority: PriorityLow},
	},
	types.TypeTeam: {
		"owner":         {Sources: []string{"docstore", "issues"}, Priority: PriorityHigh},
		"relationships": {Sources: []string{"issues", "codehost"}, Priority: PriorityMedium},
		"description":   {Sources: []string{"docstore"}, Priority: PriorityMedium},
	},
	types.TypeSquad: {
		"owner":         {Sources: []string{"docstore"}, Priority: PriorityHigh},
		"relationships": {Sources: []string{"issues"}, Priority: PriorityMedium},
	},
	types.TypeProject: {
		"owner":         {Sources: []string{"issues", "docstore"}, Priority: PriorityHigh},
		"description":   {Sources: []string{"docstore"}, Priority: PriorityHigh},
		"relationships": {Sources: []string{"issues", "codehost"}, Priority: PriorityMedium},
		"tags":          {Sources: []string{"docstore"}, Priority: PriorityLow},
	},
	types.TypeDomain: {
		"description":   {Sources: []string{"docstore"}, Priority: PriorityMedium},
		"relationships": {Sources: []string{"docstore", "research"}, Priority: PriorityMedium},
	},
	types.TypeExperiment: {
		"owner":         {Sources: []string{"spreadsheet", "docstore"}, Priority: PriorityHigh},
		"description":   {Sources: []string{"spreadsheet"}, Priority: PriorityHigh},
		"relationships": {Sources: []string{"spreadsheet", "issues"}, Priority: PriorityMedium},
	},
	types.TypeSystem: {
		"owner":         {Sources: []string{"codehost"}, Priority: PriorityHigh},
		"relationships": {Sources: []string{"codehost", "issues"}, Priority: PriorityMedium},
		"description":   {Sources: []string{"codehost", "docstore"}, Priority: PriorityLow},
	},
	types.TypeBrand: {
		"description":   {Sources: []string{"docstore"}, Priority: PriorityMedium},
		"relationships": {Sources: []string{"research"}, Priority: PriorityLow},
	},
}

// FieldHint looks up the static table.
func FieldHint(t types.EntityType, field string) (Hint, bool) {
	h, ok := fieldHints[t][field]
	return h, ok
}

// Gap is one missing field on one entity.
type Gap struct {
	Field    string   `json:"field"`
	Sources  []string `json:"sources"`
	Priority Priority `json:"priority"`
}

// EntityHints collects the gaps of one entity, highest priority first.
type EntityHints struct {
	EntityID string           `json:"entity_id"`
	Path     string           `json:"path"`
	Type     types.EntityType `json:"type"`
	Gaps     []Gap            `json:"gaps"`
}

// Summary aggregates an analysis run.
type Summary struct {
	Entities   int            `json:"entities"`
	WithGaps   int            `json:"with_gaps"`
	TotalGaps  int            `json:"total_gaps"`
	ByField    map[string]int `json:"by_field"`
	ByPriority map[string]int `json:"by_priority"`
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	}
	return 2
}

func missing(e *types.Entity, field string) bool {
	switch field {
	case "role":
		return e.Role == ""
	case "team":
		return e.Team == ""
	case "owner":
		return e.Owner == ""
	case "description":
		return e.Description == ""
	case "aliases":
		return len(e.Aliases) == 0
	case "tags":
		return len(e.Tags) == 0
	case "relationships":
		return len(e.Relationships) == 0
	}
	return false
}

// Analyze walks the store and reports field gaps per entity.
func Analyze(st *store.Store) ([]EntityHints, Summary, error) {
	rels, err := st.List()
	if err != nil {
		return nil, Summary{}, err
	}
	sum := Summary{ByField: make(map[string]int), ByPriority: make(map[string]int)}
	var out []EntityHints
	for _, rel := range rels {
		e, _, err := st.ReadEntity(rel)
		if err != nil || e.ID == "" {
			continue
		}
		sum.Entities++
		table := fieldHints[e.Type]
		var gaps []Gap
		for field, hint := range table {
			if !missing(e, field) {
				continue
			}
			gaps = append(gaps, Gap{Field: field, Sources: hint.Sources, Priority: hint.Priority})
			sum.TotalGaps++
			sum.ByField[field]++
			sum.ByPriority[string(hint.Priority)]++
		}
		if len(gaps) == 0 {
			continue
		}
		sort.SliceStable(gaps, func(i, j int) bool {
			ri, rj := priorityRank(gaps[i].Priority), priorityRank(gaps[j].Priority)
			if ri != rj {
				return ri < rj
			}
			return gaps[i].Field < gaps[j].Field
		})
		sum.WithGaps++
		out = append(out, EntityHints{EntityID: e.ID, Path: rel, Type: e.Type, Gaps: gaps})
	}
	return out, sum, nil
}
