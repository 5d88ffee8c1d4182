package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
	"github.com/pmbrain/brain/internal/validation"
)

const v1File = `---
title: Growth Platform
owner: alice
---

Legacy body that must survive verbatim.
`

const v2File = `---
schema_version: 2
id: entity/project/alpha
type: project
version: 1
created: 2025-01-10T09:00:00Z
updated: 2025-01-10T09:00:00Z
name: Alpha
description: Fine already.
tags: [ok]
---

Body.
`

func seed(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newMigrator(t *testing.T) (*Migrator, *store.Store) {
	t.Helper()
	root := t.TempDir()
	seed(t, root, "Projects/Growth_Platform.md", v1File)
	seed(t, root, "Projects/Alpha.md", v2File)
	st := store.New(root)
	return New(st), st
}

func TestDryRunDetectsWithoutWriting(t *testing.T) {
	m, st := newMigrator(t)
	rep, err := m.Run(Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.V1Detected != 1 || rep.Migrated != 0 {
		t.Errorf("report = %+v", rep)
	}
	f, err := st.Read("Projects/Growth_Platform.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if validation.DetectFormat(f) != validation.FormatV1 {
		t.Error("dry run mutated the file")
	}
}

func TestMigrateRewritesV1(t *testing.T) {
	m, st := newMigrator(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rep, err := m.Run(Options{now: now})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Migrated != 1 || rep.RolledBack {
		t.Fatalf("report = %+v", rep)
	}
	if rep.BackupPath == "" {
		t.Error("no backup recorded")
	}

	e, f, err := st.ReadEntity("Projects/Growth_Platform.md")
	if err != nil {
		t.Fatalf("ReadEntity: %v", err)
	}
	if e.SchemaVersion != 2 {
		t.Errorf("SchemaVersion = %d", e.SchemaVersion)
	}
	if e.ID != "entity/project/growth-platform" {
		t.Errorf("ID = %q", e.ID)
	}
	if e.Type != types.TypeProject || e.Version != 1 {
		t.Errorf("type=%q version=%d", e.Type, e.Version)
	}
	if e.Name != "Growth Platform" {
		t.Errorf("Name = %q (title should carry over)", e.Name)
	}
	if e.Updated != "2025-03-01T12:00:00Z" {
		t.Errorf("Updated = %q", e.Updated)
	}
	if len(e.Events) != 1 || e.Events[0].Type != types.EventMigration {
		t.Errorf("events = %+v", e.Events)
	}
	if !strings.Contains(f.Body(), "survive verbatim") {
		t.Errorf("body lost: %q", f.Body())
	}
	// Unknown keys survive the rewrite.
	if node, ok := f.Get("owner"); !ok || node.Value != "alice" {
		t.Error("owner key lost during migration")
	}

	// Registry and a snapshot were produced.
	if _, err := os.Stat(filepath.Join(st.Root(), "registry.yaml")); err != nil {
		t.Errorf("registry missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(st.Root(), ".snapshots")); err != nil {
		t.Errorf("snapshot missing: %v", err)
	}

	// Second run is a no-op.
	rep2, err := m.Run(Options{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rep2.V1Detected != 0 || rep2.Migrated != 0 {
		t.Errorf("second report = %+v", rep2)
	}
}

func TestRollbackRestoresBackup(t *testing.T) {
	m, st := newMigrator(t)
	backup, err := m.Backup(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	// Clobber an entity, then roll back.
	seed(t, st.Root(), "Projects/Alpha.md", "---\nbroken\n")
	if err := m.Rollback(backup); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	f, err := st.Read("Projects/Alpha.md")
	if err != nil {
		t.Fatalf("Read after rollback: %v", err)
	}
	if validation.DetectFormat(f) != validation.FormatV2 {
		t.Error("rollback did not restore the original file")
	}
}

func TestStatusCounts(t *testing.T) {
	m, _ := newMigrator(t)
	s, err := m.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if s.V1 != 1 || s.V2 != 1 {
		t.Errorf("status = %+v", s)
	}
	if _, err := m.Run(Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s, _ = m.Status()
	if s.V1 != 0 || s.V2 != 2 || s.Backups != 1 {
		t.Errorf("status after migrate = %+v", s)
	}
}

func TestVerifyFlagsRemainingV1(t *testing.T) {
	m, _ := newMigrator(t)
	if err := m.Verify(); err == nil {
		t.Error("Verify should fail while a v1 entity remains")
	}
	if _, err := m.Run(Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Errorf("Verify after migrate: %v", err)
	}
}
