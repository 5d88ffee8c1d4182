// Package normalize rewrites relationship targets to canonical ids,
// collapses duplicate edges, and reports targets nothing resolves to.
package normalize

import (
	"fmt"

	"github.com/pmbrain/brain/internal/events"
	"github.com/pmbrain/brain/internal/resolver"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Normalizer canonicalizes relationships across a store.
type Normalizer struct {
	st  *store.Store
	res *resolver.Resolver
	ev  *events.Store
}

// New returns a normalizer using the given resolver.
func New(st *store.Store, res *resolver.Resolver) *Normalizer {
	return &Normalizer{st: st, res: res, ev: events.New(st)}
}

// Result describes what normalization did (or would do) to one entity.
type Result struct {
	Path          string   `json:"path"`
	ID            string   `json:"id"`
	Canonicalized int      `json:"canonicalized"`
	Deduplicated  int      `json:"deduplicated"`
	Orphans       []string `json:"orphans,omitempty"`
	Changed       bool     `json:"changed"`
}

// Entity normalizes one entity. When dryRun is false and at least one
// relationship changed, the rewrite lands in a single normalization
// event carrying per-change-type counts.
func (n *Normalizer) Entity(rel string, dryRun bool) (*Result, error) {
	e, _, err := n.st.ReadEntity(rel)
	if err != nil {
		return nil, err
	}
	res := &Result{Path: rel, ID: e.ID}
	if len(e.Relationships) == 0 {
		return res, nil
	}

	var kept []types.Relationship
	var changes []types.Change
	seen := make(map[string]bool)
	for _, r := range e.Relationships {
		target := r.Target
		if !types.IsCanonicalID(target) {
			if id := n.res.Resolve(target); id != "" {
				changes = append(changes, types.Change{
					Field:     "relationships",
					Operation: "canonicalize",
					Value:     id,
					OldValue:  target,
				})
				r.Target = id
				res.Canonicalized++
			} else {
				res.Orphans = append(res.Orphans, target)
			}
		}
		key := r.Key()
		if seen[key] {
			changes = append(changes, types.Change{
				Field:     "relationships",
				Operation: "deduplicate",
				Value:     r.Target,
			})
			res.Deduplicated++
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}

	res.Changed = res.Canonicalized > 0 || res.Deduplicated > 0
	if dryRun || !res.Changed {
		return res, nil
	}

	msg := fmt.Sprintf("normalized relationships: %d canonicalized, %d deduplicated",
		res.Canonicalized, res.Deduplicated)
	_, _, err = n.ev.Append(rel, events.AppendInput{
		Type:    types.EventNormalization,
		Message: msg,
		Actor:   "system/normalizer",
		Changes: changes,
		Metadata: map[string]interface{}{
			"canonicalized": res.Canonicalized,
			"deduplicated":  res.Deduplicated,
			"orphans":       len(res.Orphans),
		},
		Mutate: func(e *types.Entity, f *store.File) error {
			e.Relationships = kept
			return f.Set("relationships", kept)
		},
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// OrphanEntry records one unresolvable relationship target.
type OrphanEntry struct {
	EntityID string `json:"entity_id"`
	Path     string `json:"path"`
	Target   string `json:"target"`
}

// Report aggregates a batch run.
type Report struct {
	Scanned       int           `json:"scanned"`
	Changed       int           `json:"changed"`
	Canonicalized int           `json:"canonicalized"`
	Deduplicated  int           `json:"deduplicated"`
	Orphans       []OrphanEntry `json:"orphans,omitempty"`
	Errors        []string      `json:"errors,omitempty"`
}

// All normalizes every entity. progress, when non-nil, is called after
// each entity with (done, total).
func (n *Normalizer) All(dryRun bool, progress func(done, total int)) (*Report, error) {
	rels, err := n.st.List()
	if err != nil {
		return nil, err
	}
	rep := &Report{}
	for i, rel := range rels {
		res, err := n.Entity(rel, dryRun)
		if err != nil {
			rep.Errors = append(rep.Errors, rel+": "+err.Error())
		} else {
			rep.Scanned++
			if res.Changed {
				rep.Changed++
			}
			rep.Canonicalized += res.Canonicalized
			rep.Deduplicated += res.Deduplicated
			for _, target := range res.Orphans {
				rep.Orphans = append(rep.Orphans, OrphanEntry{
					EntityID: res.ID, Path: rel, Target: target,
				})
			}
		}
		if progress != nil {
			progress(i+1, len(rels))
		}
	}
	return rep, nil
}
