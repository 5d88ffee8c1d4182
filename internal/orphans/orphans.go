// Package orphans annotates entities that have no relationships with a
// reason, and clears the annotation once an entity regains edges. Every
// mutation lands as a field_update event.
package orphans

import (
	"github.com/pmbrain/brain/internal/events"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

const actor = "system/orphan-analyzer"

// Analyzer scans and annotates orphan entities.
type Analyzer struct {
	st *store.Store
	ev *events.Store
}

// New returns an analyzer over st.
func New(st *store.Store) *Analyzer {
	return &Analyzer{st: st, ev: events.New(st)}
}

// Entry is one orphan in a scan.
type Entry struct {
	EntityID string             `json:"entity_id"`
	Path     string             `json:"path"`
	Type     types.EntityType   `json:"type"`
	Reason   types.OrphanReason `json:"reason,omitempty"`
}

// Report summarizes orphan state across the store.
type Report struct {
	Entities   int            `json:"entities"`
	Orphans    int            `json:"orphans"`
	ByReason   map[string]int `json:"by_reason"`
	Unmarked   int            `json:"unmarked"`
	Misflagged int            `json:"misflagged"` // connected entities still carrying a reason
	Entries    []Entry        `json:"entries"`
}

// Scan walks the store without writing.
func (a *Analyzer) Scan() (*Report, error) {
	rels, err := a.st.List()
	if err != nil {
		return nil, err
	}
	rep := &Report{ByReason: make(map[string]int)}
	for _, rel := range rels {
		e, _, err := a.st.ReadEntity(rel)
		if err != nil {
			continue
		}
		rep.Entities++
		if e.HasRelationships() {
			if e.OrphanReason != "" {
				rep.Misflagged++
			}
			continue
		}
		rep.Orphans++
		if e.OrphanReason == "" {
			rep.Unmarked++
		} else {
			rep.ByReason[string(e.OrphanReason)]++
		}
		rep.Entries = append(rep.Entries, Entry{
			EntityID: e.ID, Path: rel, Type: e.Type, Reason: e.OrphanReason,
		})
	}
	return rep, nil
}

// MutationResult counts what a mark pass touched.
type MutationResult struct {
	Scanned int      `json:"scanned"`
	Marked  int      `json:"marked"`
	Paths   []string `json:"paths,omitempty"`
}

func (a *Analyzer) setReason(rel string, e *types.Entity, reason types.OrphanReason) error {
	old := e.OrphanReason
	_, _, err := a.ev.Append(rel, events.AppendInput{
		Type:    types.EventFieldUpdate,
		Message: "orphan_reason -> " + string(reason),
		Actor:   actor,
		Changes: []types.Change{{
			Field: "orphan_reason", Operation: "set", Value: string(reason), OldValue: string(old),
		}},
		Mutate: func(e *types.Entity, f *store.File) error {
			e.OrphanReason = reason
			return f.Set("orphan_reason", string(reason))
		},
	})
	return err
}

// mark applies reason to every orphan the predicate accepts.
func (a *Analyzer) mark(reason types.OrphanReason, accept func(e *types.Entity) bool, dryRun bool) (*MutationResult, error) {
	rels, err := a.st.List()
	if err != nil {
		return nil, err
	}
	res := &MutationResult{}
	for _, rel := range rels {
		e, _, err := a.st.ReadEntity(rel)
		if err != nil {
			continue
		}
		res.Scanned++
		if e.HasRelationships() || e.OrphanReason == reason || !accept(e) {
			continue
		}
		if !dryRun {
			if err := a.setReason(rel, e, reason); err != nil {
				return res, err
			}
		}
		res.Marked++
		res.Paths = append(res.Paths, rel)
	}
	return res, nil
}

// MarkPending sets pending_enrichment on orphans carrying no reason yet.
func (a *Analyzer) MarkPending(dryRun bool) (*MutationResult, error) {
	return a.mark(types.OrphanPendingEnrichment, func(e *types.Entity) bool {
		return e.OrphanReason == ""
	}, dryRun)
}

// MarkStandalone sets standalone on orphans of the given types. Entities
// already explained as standalone-by-nature stay untouched.
func (a *Analyzer) MarkStandalone(standaloneTypes []types.EntityType, dryRun bool) (*MutationResult, error) {
	set := make(map[types.EntityType]bool, len(standaloneTypes))
	for _, t := range standaloneTypes {
		set[t] = true
	}
	return a.mark(types.OrphanStandalone, func(e *types.Entity) bool {
		return set[e.Type]
	}, dryRun)
}

// MarkNoData sets no_external_data on orphans whose enrichment attempt
// found nothing (those currently pending).
func (a *Analyzer) MarkNoData(dryRun bool) (*MutationResult, error) {
	return a.mark(types.OrphanNoExternalData, func(e *types.Entity) bool {
		return e.OrphanReason == types.OrphanPendingEnrichment
	}, dryRun)
}

// ClearConnected removes orphan_reason from entities that have
// relationships again.
func (a *Analyzer) ClearConnected(dryRun bool) (*MutationResult, error) {
	rels, err := a.st.List()
	if err != nil {
		return nil, err
	}
	res := &MutationResult{}
	for _, rel := range rels {
		e, _, err := a.st.ReadEntity(rel)
		if err != nil {
			continue
		}
		res.Scanned++
		if !e.HasRelationships() || e.OrphanReason == "" {
			continue
		}
		if !dryRun {
			old := e.OrphanReason
			_, _, err := a.ev.Append(rel, events.AppendInput{
				Type:    types.EventFieldUpdate,
				Message: "orphan_reason cleared",
				Actor:   actor,
				Changes: []types.Change{{
					Field: "orphan_reason", Operation: "unset", OldValue: string(old),
				}},
				Mutate: func(e *types.Entity, f *store.File) error {
					e.OrphanReason = ""
					f.Delete("orphan_reason")
					return nil
				},
			})
			if err != nil {
				return res, err
			}
		}
		res.Marked++
		res.Paths = append(res.Paths, rel)
	}
	return res, nil
}
