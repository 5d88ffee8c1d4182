// Package registry builds and serves the denormalized entity registry:
// a rebuildable projection over the store with an alias index for O(1)
// lookup. Never a source of truth.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// FileName is the registry filename under the brain root.
const FileName = "registry.yaml"

// fabricatedConfidence is assigned to entries synthesized for files
// without a parseable header.
const fabricatedConfidence = 0.3

// Options controls a rebuild.
type Options struct {
	// Incremental preserves entries from the existing registry and
	// overlays the rescan on top, so entries whose files vanished
	// mid-scan are not dropped.
	Incremental bool
	// DryRun computes the registry without writing it.
	DryRun bool
	// Output overrides the destination path (default <root>/registry.yaml).
	Output string
}

// Builder rebuilds the registry by walking the entity store.
type Builder struct {
	store *store.Store
}

// NewBuilder returns a builder over the store.
func NewBuilder(st *store.Store) *Builder {
	return &Builder{store: st}
}

// Build walks the store and produces (and, unless DryRun, persists) the
// registry.
func (b *Builder) Build(opts Options) (*types.Registry, error) {
	reg := types.NewRegistry()
	if opts.Incremental {
		if existing, err := Load(b.store.Root()); err == nil {
			reg.Entities = existing.Entities
		}
	}

	rels, err := b.store.List()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string) // slug -> display name, indexed as an alias
	for _, rel := range rels {
		slug, entry, name := b.entryFor(rel)
		if slug == "" {
			continue
		}
		reg.Entities[slug] = entry
		if name != "" {
			names[slug] = name
		}
	}

	b.finish(reg, names)

	if !opts.DryRun {
		out := opts.Output
		if out == "" {
			out = filepath.Join(b.store.Root(), FileName)
		}
		if err := Save(reg, out); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// entryFor projects one file into a registry entry. Files without a
// usable header get a fabricated minimal entry at reduced confidence.
func (b *Builder) entryFor(rel string) (string, *types.RegistryEntry, string) {
	e, _, err := b.store.ReadEntity(rel)
	if err != nil || e.ID == "" {
		slug, entry := b.fabricate(rel)
		return slug, entry, ""
	}
	slug := e.Slug()
	if slug == "" {
		slug, entry := b.fabricate(rel)
		return slug, entry, ""
	}
	conf := 1.0
	if e.Confidence != nil {
		conf = *e.Confidence
	}
	return slug, &types.RegistryEntry{
		Ref:                rel,
		Type:               e.Type,
		Status:             e.Status,
		Version:            e.Version,
		Updated:            e.Updated,
		Aliases:            e.Aliases,
		Role:               e.Role,
		Team:               e.Team,
		Owner:              e.Owner,
		RelationshipsCount: len(e.Relationships),
		Confidence:         conf,
	}, e.Name
}

func (b *Builder) fabricate(rel string) (string, *types.RegistryEntry) {
	dir, file := filepath.Split(filepath.FromSlash(rel))
	t := types.TypeForDir(strings.Trim(filepath.ToSlash(dir), "/"))
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	slug := types.Slugify(stem)
	if slug == "" {
		return "", nil
	}
	return slug, &types.RegistryEntry{
		Ref:        rel,
		Type:       t,
		Version:    0,
		Confidence: fabricatedConfidence,
	}
}

// finish derives the alias index and stats from the entry set.
func (b *Builder) finish(reg *types.Registry, names map[string]string) {
	reg.Generated = types.FormatTimestamp(time.Now())
	reg.AliasIndex = make(map[string]string)
	reg.Stats = types.RegistryStats{
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	for slug, entry := range reg.Entities {
		reg.Stats.Total++
		if entry.Type != "" {
			reg.Stats.ByType[string(entry.Type)]++
		}
		if entry.Status != "" {
			reg.Stats.ByStatus[string(entry.Status)]++
		}
		if entry.Version > 0 {
			reg.Stats.V2Format++
		}
		index := func(alias string) {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				return
			}
			if _, taken := reg.AliasIndex[alias]; !taken {
				reg.AliasIndex[alias] = slug
			}
		}
		index(slug)
		for _, alias := range entry.Aliases {
			index(alias)
		}
		index(names[slug])
	}
}

// Save writes the registry atomically.
func Save(reg *types.Registry, path string) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := store.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}

// Load reads the registry from the brain root.
func Load(root string) (*types.Registry, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: registry (run `brain registry` first)", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var reg types.Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: registry: %v", types.ErrMalformed, err)
	}
	if reg.Schema != types.RegistrySchema {
		return nil, fmt.Errorf("%w: unexpected registry schema %q", types.ErrMalformed, reg.Schema)
	}
	return &reg, nil
}
