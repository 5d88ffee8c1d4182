package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmbrain/brain/internal/types"
)

const sampleEntity = `---
schema_version: 2
id: entity/project/growth-platform
type: project
version: 3
created: 2025-01-10T09:00:00Z
updated: 2025-03-02T17:30:00Z
name: Growth Platform
aliases:
  - Growth Platform
  - FF
custom_field: kept as-is
status: active
---

# Growth Platform

Body text here.
`

func writeSample(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRoundTripByteForByte(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Growth_Platform.md", sampleEntity)

	s := New(root)
	f, err := s.Read("Projects/Growth_Platform.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	out, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(out) != sampleEntity {
		t.Errorf("round-trip changed bytes:\ngot:\n%s\nwant:\n%s", out, sampleEntity)
	}
}

func TestSetPreservesOrderAndUnknownKeys(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Growth_Platform.md", sampleEntity)

	s := New(root)
	f, err := s.Read("Projects/Growth_Platform.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := f.Set("version", 4); err != nil {
		t.Fatalf("Set: %v", err)
	}
	out, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "version: 4") {
		t.Errorf("expected updated version, got:\n%s", text)
	}
	if !strings.Contains(text, "custom_field: kept as-is") {
		t.Errorf("unknown key dropped:\n%s", text)
	}
	// id still appears before version (key order preserved); anchor on the
	// newline so schema_version does not match
	if strings.Index(text, "\nid:") > strings.Index(text, "\nversion:") {
		t.Errorf("key order not preserved:\n%s", text)
	}
	if !strings.Contains(text, "Body text here.") {
		t.Errorf("body lost:\n%s", text)
	}
}

func TestEntityDecode(t *testing.T) {
	f, err := Parse([]byte(sampleEntity))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e, err := f.Entity()
	if err != nil {
		t.Fatalf("Entity: %v", err)
	}
	if e.ID != "entity/project/growth-platform" {
		t.Errorf("ID = %q", e.ID)
	}
	if e.Type != types.TypeProject {
		t.Errorf("Type = %q", e.Type)
	}
	if e.Version != 3 {
		t.Errorf("Version = %d", e.Version)
	}
	if len(e.Aliases) != 2 || e.Aliases[1] != "FF" {
		t.Errorf("Aliases = %v", e.Aliases)
	}
}

func TestListFiltersReservedFiles(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Growth_Platform.md", sampleEntity)
	writeSample(t, root, "Projects/README.md", "# readme")
	writeSample(t, root, "Projects/_template.md", "# template")
	writeSample(t, root, "Projects/.hidden.md", "x")
	writeSample(t, root, "Projects/notes.txt", "not markdown")

	s := New(root)
	rels, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rels) != 1 || rels[0] != "Projects/Growth_Platform.md" {
		t.Errorf("List = %v", rels)
	}
}

func TestReadMalformedHeader(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Bad.md", "---\n[not: valid: yaml\n---\nbody")

	s := New(root)
	_, err := s.Read("Projects/Bad.md")
	if !errors.Is(err, types.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestReadUnterminatedFence(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Torn.md", "---\nid: entity/project/x\n")

	s := New(root)
	_, err := s.Read("Projects/Torn.md")
	if !errors.Is(err, types.ErrMalformed) {
		t.Errorf("expected ErrMalformed for partial write, got %v", err)
	}
}

func TestParseBareFence(t *testing.T) {
	// a file that is nothing but an opening fence, with or without a
	// trailing newline, is malformed rather than a parse crash
	for _, content := range []string{"---", "---\n", "---\nid: entity/project/x"} {
		_, err := Parse([]byte(content))
		if !errors.Is(err, types.ErrMalformed) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformed", content, err)
		}
	}
}

func TestHeaderlessFile(t *testing.T) {
	f, err := Parse([]byte("just a plain note\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.HasHeader() {
		t.Error("expected no header")
	}
	if f.Body() != "just a plain note\n" {
		t.Errorf("Body = %q", f.Body())
	}
}

func TestExistsAndPathForID(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Growth_Platform.md", sampleEntity)

	s := New(root)
	ok, err := s.Exists("entity/project/growth-platform")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected entity to exist")
	}
	ok, err = s.Exists("entity/project/unknown")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected entity to be absent")
	}
	rel, err := s.PathForID("entity/project/growth-platform")
	if err != nil {
		t.Fatalf("PathForID: %v", err)
	}
	if rel != "Projects/Growth_Platform.md" {
		t.Errorf("PathForID = %q", rel)
	}
}

func TestWriteAtomicReplaces(t *testing.T) {
	root := t.TempDir()
	writeSample(t, root, "Projects/Growth_Platform.md", sampleEntity)

	s := New(root)
	f, err := s.Read("Projects/Growth_Platform.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := f.Set("status", "archived"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Write("Projects/Growth_Platform.md", f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	e, _, err := s.ReadEntity("Projects/Growth_Platform.md")
	if err != nil {
		t.Fatalf("ReadEntity: %v", err)
	}
	if e.Status != types.StatusArchived {
		t.Errorf("Status = %q", e.Status)
	}
	// no temp droppings left behind
	entries, _ := os.ReadDir(filepath.Join(root, "Projects"))
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", entry.Name())
		}
	}
}
