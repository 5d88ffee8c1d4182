package orphans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

func seed(t *testing.T, root, rel, header string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("---\n"+header+"---\n\nBody.\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func header(id, typ, extra string) string {
	return "schema_version: 2\nid: " + id + "\ntype: " + typ + "\nversion: 1\n" +
		"created: 2025-01-01T00:00:00Z\nupdated: 2025-01-01T00:00:00Z\nname: X\n" + extra
}

func newAnalyzer(t *testing.T) (*Analyzer, *store.Store) {
	t.Helper()
	root := t.TempDir()
	seed(t, root, "Projects/Lonely.md", header("entity/project/lonely", "project", ""))
	seed(t, root, "Brands/Solo.md", header("entity/brand/solo", "brand", ""))
	seed(t, root, "Teams/Connected.md", header("entity/team/connected", "team",
		"orphan_reason: pending_enrichment\nrelationships:\n  - type: owns\n    target: entity/project/lonely\n"))
	st := store.New(root)
	return New(st), st
}

func TestScan(t *testing.T) {
	a, _ := newAnalyzer(t)
	rep, err := a.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rep.Entities != 3 || rep.Orphans != 2 || rep.Unmarked != 2 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Misflagged != 1 {
		t.Errorf("Misflagged = %d (connected entity carries a reason)", rep.Misflagged)
	}
}

func TestMarkPending(t *testing.T) {
	a, st := newAnalyzer(t)
	res, err := a.MarkPending(false)
	if err != nil {
		t.Fatalf("MarkPending: %v", err)
	}
	if res.Marked != 2 {
		t.Errorf("Marked = %d", res.Marked)
	}
	e, _, _ := st.ReadEntity("Projects/Lonely.md")
	if e.OrphanReason != types.OrphanPendingEnrichment {
		t.Errorf("reason = %q", e.OrphanReason)
	}
	if len(e.Events) != 1 || e.Events[0].Type != types.EventFieldUpdate {
		t.Errorf("events = %+v", e.Events)
	}
	if e.Version != 2 {
		t.Errorf("Version = %d", e.Version)
	}

	// Second pass marks nothing.
	res, _ = a.MarkPending(false)
	if res.Marked != 0 {
		t.Errorf("second pass marked %d", res.Marked)
	}
}

func TestMarkStandaloneByType(t *testing.T) {
	a, st := newAnalyzer(t)
	res, err := a.MarkStandalone([]types.EntityType{types.TypeBrand}, false)
	if err != nil {
		t.Fatalf("MarkStandalone: %v", err)
	}
	if res.Marked != 1 {
		t.Errorf("Marked = %d", res.Marked)
	}
	e, _, _ := st.ReadEntity("Brands/Solo.md")
	if e.OrphanReason != types.OrphanStandalone {
		t.Errorf("reason = %q", e.OrphanReason)
	}
	e, _, _ = st.ReadEntity("Projects/Lonely.md")
	if e.OrphanReason != "" {
		t.Errorf("project should be untouched, reason = %q", e.OrphanReason)
	}
}

func TestMarkNoDataPromotesPending(t *testing.T) {
	a, st := newAnalyzer(t)
	if _, err := a.MarkPending(false); err != nil {
		t.Fatalf("MarkPending: %v", err)
	}
	res, err := a.MarkNoData(false)
	if err != nil {
		t.Fatalf("MarkNoData: %v", err)
	}
	if res.Marked != 2 {
		t.Errorf("Marked = %d", res.Marked)
	}
	e, _, _ := st.ReadEntity("Projects/Lonely.md")
	if e.OrphanReason != types.OrphanNoExternalData {
		t.Errorf("reason = %q", e.OrphanReason)
	}
}

func TestClearConnected(t *testing.T) {
	a, st := newAnalyzer(t)
	res, err := a.ClearConnected(false)
	if err != nil {
		t.Fatalf("ClearConnected: %v", err)
	}
	if res.Marked != 1 {
		t.Errorf("Marked = %d", res.Marked)
	}
	e, f, _ := st.ReadEntity("Teams/Connected.md")
	if e.OrphanReason != "" {
		t.Errorf("reason = %q", e.OrphanReason)
	}
	if _, ok := f.Get("orphan_reason"); ok {
		t.Error("orphan_reason key left behind")
	}
	if len(e.Events) != 1 {
		t.Errorf("events = %+v", e.Events)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	a, st := newAnalyzer(t)
	res, err := a.MarkPending(true)
	if err != nil {
		t.Fatalf("MarkPending: %v", err)
	}
	if res.Marked != 2 {
		t.Errorf("Marked = %d", res.Marked)
	}
	e, _, _ := st.ReadEntity("Projects/Lonely.md")
	if e.OrphanReason != "" || e.Version != 1 {
		t.Error("dry run mutated the entity")
	}
}
