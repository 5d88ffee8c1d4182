// Package resolver maps any human-written reference to a canonical
// entity id: exact ids, slugs, relative paths, filename stems, aliases,
// and display names all resolve to the same identifier.
package resolver

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9-]+`)

// Resolver holds the in-memory reference map. Build once per process;
// Resolve is read-only and cheap after that.
type Resolver struct {
	store    *store.Store
	refs     map[string]string // lower-cased reference -> canonical id
	entities int
	built    time.Time
}

// New returns an unbuilt resolver over the store.
func New(st *store.Store) *Resolver {
	return &Resolver{store: st, refs: make(map[string]string)}
}

// Build scans the entity store and regenerates the reference map.
func (r *Resolver) Build() error {
	rels, err := r.store.List()
	if err != nil {
		return err
	}
	refs := make(map[string]string)
	entities := 0

	// Identity refs first: later passes never overwrite an existing key,
	// so id/slug always beat a colliding alias or path fragment.
	type parsed struct {
		rel string
		e   *types.Entity
	}
	var all []parsed
	for _, rel := range rels {
		e, _, err := r.store.ReadEntity(rel)
		if err != nil || e.ID == "" {
			continue // header-less and malformed files are not resolvable
		}
		all = append(all, parsed{rel, e})
		entities++
	}

	add := func(ref, id string) {
		ref = strings.ToLower(strings.TrimSpace(ref))
		if ref == "" {
			return
		}
		if _, taken := refs[ref]; !taken {
			refs[ref] = id
		}
	}

	for _, p := range all {
		add(p.e.ID, p.e.ID)
		add(p.e.Slug(), p.e.ID)
	}
	for _, p := range all {
		for _, v := range pathVariants(p.rel) {
			add(v, p.e.ID)
		}
	}
	for _, p := range all {
		for _, alias := range p.e.Aliases {
			add(alias, p.e.ID)
			add(types.Slugify(alias), p.e.ID)
		}
		add(p.e.Name, p.e.ID)
		add(types.Slugify(p.e.Name), p.e.ID)
	}

	r.refs = refs
	r.entities = entities
	r.built = time.Now().UTC()
	return nil
}

// pathVariants enumerates the reference forms a relative path answers to:
// the path with and without extension, underscore and hyphen spellings,
// and the bare filename stem.
func pathVariants(rel string) []string {
	lower := strings.ToLower(rel)
	noExt := strings.TrimSuffix(lower, path.Ext(lower))
	stem := path.Base(noExt)
	variants := []string{lower, noExt, stem}
	for _, v := range []string{lower, noExt, stem} {
		variants = append(variants,
			strings.ReplaceAll(v, "_", "-"),
			strings.ReplaceAll(v, "-", "_"))
	}
	return variants
}

// lookupVariants is the fixed set of normalizations tried on an incoming
// reference, in order.
func lookupVariants(ref string) []string {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil
	}
	variants := []string{ref}
	push := func(v string) {
		for _, seen := range variants {
			if seen == v {
				return
			}
		}
		variants = append(variants, v)
	}
	push(strings.ReplaceAll(ref, "_", "-"))
	push(strings.ReplaceAll(ref, "-", "_"))
	push(strings.ReplaceAll(ref, " ", "-"))
	push(nonSlugRe.ReplaceAllString(strings.ReplaceAll(ref, " ", "-"), ""))
	noExt := strings.TrimSuffix(ref, path.Ext(ref))
	push(noExt)
	push(strings.ReplaceAll(noExt, "_", "-"))
	push(path.Base(noExt))
	push(strings.ReplaceAll(path.Base(noExt), "_", "-"))
	return variants
}

// Resolve returns the canonical id for ref, or "" when nothing matches.
// Case-insensitive and deterministic.
func (r *Resolver) Resolve(ref string) string {
	for _, v := range lookupVariants(ref) {
		if id, ok := r.refs[v]; ok {
			return id
		}
	}
	return ""
}

// Stats describes the built map.
type Stats struct {
	References int       `json:"references"`
	Entities   int       `json:"entities"`
	Built      time.Time `json:"built"`
}

// Stats reports map size and build time.
func (r *Resolver) Stats() Stats {
	return Stats{References: len(r.refs), Entities: r.entities, Built: r.built}
}
