package query

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pmbrain/brain/internal/index"
	"github.com/pmbrain/brain/internal/registry"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

func entityFile(id, name, extra, body string) string {
	return "---\nschema_version: 2\nid: " + id + "\ntype: project\nversion: 1\n" +
		"created: 2025-01-10T09:00:00Z\nupdated: 2025-01-10T09:00:00Z\nname: " + name + "\n" +
		extra + "---\n\n" + body + "\n"
}

func engineFor(t *testing.T, files map[string]string) *Engine {
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
	st := store.New(root)
	reg, err := registry.NewBuilder(st).Build(registry.Options{DryRun: true})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ix, err := index.Build(st, index.Options{})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return NewEngine(st, reg, ix)
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	files := map[string]string{
		"Projects/Entity_A.md": entityFile("entity/project/entity-a", "Entity A",
			"relationships:\n"+
				"  - type: related_to\n    target: entity/project/entity-b\n"+
				"  - type: depends_on\n    target: entity/project/entity-c\n    strength: 0.7\n",
			"Seed project for ranking."),
		"Projects/Entity_B.md": entityFile("entity/project/entity-b", "Entity B", "",
			"Neighbor without strength."),
		"Projects/Entity_C.md": entityFile("entity/project/entity-c", "Entity C", "",
			"Neighbor with strength."),
		"Projects/Pricing.md": entityFile("entity/project/pricing-revamp", "Pricing Revamp",
			"aliases: [PR1]\n",
			"Deep dive into pricing experiments for checkout."),
	}
	return engineFor(t, files)
}

func TestGraphRanking(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("entity-a", Options{Limit: 10, UseGraph: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) < 3 {
		t.Fatalf("results = %+v", got)
	}
	want := []struct {
		id     string
		score  float64
		source string
	}{
		{"entity/project/entity-a", 1.0, "alias"},
		{"entity/project/entity-c", 0.7, "graph"},
		{"entity/project/entity-b", 0.5, "graph"},
	}
	for i, w := range want {
		if got[i].ID != w.id {
			t.Errorf("[%d].ID = %s, want %s", i, got[i].ID, w.id)
		}
		if math.Abs(got[i].Score-w.score) > 1e-9 {
			t.Errorf("[%d].Score = %v, want %v", i, got[i].Score, w.score)
		}
		if got[i].Source != w.source {
			t.Errorf("[%d].Source = %s, want %s", i, got[i].Source, w.source)
		}
	}
}

func TestNoGraph(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("entity-a", Options{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, r := range got {
		if r.Source == "graph" {
			t.Errorf("graph result with UseGraph=false: %+v", r)
		}
	}
}

func TestEmptyQuery(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("   ", Options{Limit: 10, UseGraph: true})
	if err != nil || got != nil {
		t.Errorf("empty query = %+v, %v", got, err)
	}
}

func TestAliasExactFullQuery(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("pr1", Options{Limit: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) == 0 || got[0].ID != "entity/project/pricing-revamp" || got[0].Score != 1.0 {
		t.Errorf("results = %+v", got)
	}
}

func TestContentSearchWithNameBump(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("pricing checkout", Options{Limit: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var found *types.QueryResult
	for i := range got {
		if got[i].ID == "entity/project/pricing-revamp" {
			found = &got[i]
		}
	}
	if found == nil {
		t.Fatalf("pricing entity missing from %+v", got)
	}
	// The "pricing" term appears in the slug, so the content score is
	// bumped to 0.3 from the 0.1-scaled token ratio.
	if math.Abs(found.Score-0.3) > 1e-9 {
		t.Errorf("score = %v, want 0.3", found.Score)
	}
}

func TestSeedsNeverDemotedByExpansion(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("entity-a entity-b", Options{Limit: 10, UseGraph: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, r := range got {
		if r.ID == "entity/project/entity-b" && r.Source == "graph" {
			t.Errorf("seed b was replaced by a graph hit: %+v", r)
		}
	}
}

func TestSharedNeighborKeepsStrongestEdge(t *testing.T) {
	// Two seeds point at the same neighbor in one hop; the neighbor must
	// score through the strongest edge, regardless of seed visit order.
	e := engineFor(t, map[string]string{
		"Projects/Alpha_Wing.md": entityFile("entity/project/alpha-wing", "Alpha Wing",
			"relationships:\n  - type: related_to\n    target: entity/project/common-hub\n    strength: 0.2\n",
			"First spoke."),
		"Projects/Beta_Wing.md": entityFile("entity/project/beta-wing", "Beta Wing",
			"relationships:\n  - type: related_to\n    target: entity/project/common-hub\n    strength: 0.9\n",
			"Second spoke."),
		"Projects/Common_Hub.md": entityFile("entity/project/common-hub", "Common Hub", "",
			"Shared dependency."),
	})
	got, err := e.Query("alpha-wing beta-wing", Options{Limit: 10, UseGraph: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var hub *types.QueryResult
	for i := range got {
		if got[i].ID == "entity/project/common-hub" {
			hub = &got[i]
		}
	}
	if hub == nil {
		t.Fatalf("shared neighbor missing from %+v", got)
	}
	// Both seeds score 0.5; the 0.9 edge wins over the 0.2 one.
	if math.Abs(hub.Score-0.45) > 1e-9 {
		t.Errorf("shared neighbor score = %v, want 0.45", hub.Score)
	}
	if hub.Source != "graph" {
		t.Errorf("Source = %s, want graph", hub.Source)
	}
}

func TestLimitTruncates(t *testing.T) {
	e := newEngine(t)
	got, err := e.Query("entity-a", Options{Limit: 1, UseGraph: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "entity/project/entity-a" {
		t.Errorf("results = %+v", got)
	}
}
