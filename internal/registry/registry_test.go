package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

func seedStore(t *testing.T, files map[string]string) *store.Store {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return store.New(root)
}

const projectFile = `---
schema_version: 2
id: entity/project/growth-platform
type: project
version: 2
created: 2025-01-10T09:00:00Z
updated: 2025-03-02T17:30:00Z
name: Growth Platform
aliases:
  - FF
status: active
relationships:
  - type: owned_by
    target: entity/team/checkout
---

Body.
`

func TestBuildRegistry(t *testing.T) {
	st := seedStore(t, map[string]string{
		"Projects/Growth_Platform.md": projectFile,
		"People/untitled.md":          "no front matter here\n",
	})

	reg, err := NewBuilder(st).Build(Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	entry, ok := reg.Entities["growth-platform"]
	if !ok {
		t.Fatalf("missing entry; have %v", reg.Entities)
	}
	if entry.Ref != "Projects/Growth_Platform.md" {
		t.Errorf("Ref = %q", entry.Ref)
	}
	if entry.Type != types.TypeProject || entry.Version != 2 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.RelationshipsCount != 1 {
		t.Errorf("RelationshipsCount = %d", entry.RelationshipsCount)
	}

	// Header-less file gets a fabricated entry at reduced confidence.
	fab, ok := reg.Entities["untitled"]
	if !ok {
		t.Fatal("missing fabricated entry")
	}
	if fab.Version != 0 || fab.Confidence != fabricatedConfidence {
		t.Errorf("fabricated entry = %+v", fab)
	}
	if fab.Type != types.TypePerson {
		t.Errorf("fabricated type = %q", fab.Type)
	}

	// Alias index: slug, aliases, and display name all map to the slug.
	for _, alias := range []string{"growth-platform", "ff", "growth platform"} {
		if got := reg.AliasIndex[alias]; got != "growth-platform" {
			t.Errorf("AliasIndex[%q] = %q", alias, got)
		}
	}

	if reg.Stats.Total != 2 || reg.Stats.V2Format != 1 {
		t.Errorf("stats = %+v", reg.Stats)
	}
	if reg.Stats.ByType["project"] != 1 {
		t.Errorf("by_type = %v", reg.Stats.ByType)
	}
	if reg.Schema != types.RegistrySchema || reg.Version != types.RegistryVersion {
		t.Errorf("schema markers = %q %q", reg.Schema, reg.Version)
	}
}

func TestBuildWritesAndLoads(t *testing.T) {
	st := seedStore(t, map[string]string{"Projects/Growth_Platform.md": projectFile})

	if _, err := NewBuilder(st).Build(Options{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	reg, err := Load(st.Root())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reg.Entities["growth-platform"]; !ok {
		t.Error("loaded registry missing entry")
	}
}

func TestDryRunDoesNotWrite(t *testing.T) {
	st := seedStore(t, map[string]string{"Projects/Growth_Platform.md": projectFile})

	if _, err := NewBuilder(st).Build(Options{DryRun: true}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(st.Root(), FileName)); !os.IsNotExist(err) {
		t.Error("dry run wrote the registry file")
	}
}

func TestIncrementalPreservesEntries(t *testing.T) {
	st := seedStore(t, map[string]string{"Projects/Growth_Platform.md": projectFile})
	if _, err := NewBuilder(st).Build(Options{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Remove the file; an incremental rebuild keeps the old entry, a
	// full rebuild drops it.
	if err := os.Remove(filepath.Join(st.Root(), "Projects", "Growth_Platform.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	inc, err := NewBuilder(st).Build(Options{Incremental: true, DryRun: true})
	if err != nil {
		t.Fatalf("incremental Build: %v", err)
	}
	if _, ok := inc.Entities["growth-platform"]; !ok {
		t.Error("incremental rebuild dropped existing entry")
	}
	full, err := NewBuilder(st).Build(Options{DryRun: true})
	if err != nil {
		t.Fatalf("full Build: %v", err)
	}
	if _, ok := full.Entities["growth-platform"]; ok {
		t.Error("full rebuild kept vanished entry")
	}
}

func TestLoadMissingRegistry(t *testing.T) {
	st := seedStore(t, nil)
	if _, err := Load(st.Root()); err == nil {
		t.Error("expected error for missing registry")
	}
}
