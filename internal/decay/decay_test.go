package decay

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

func TestEffectiveConfidence(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		rel   types.Relationship
		want  float64
	}{
		{
			"fourteen weeks",
			types.Relationship{Confidence: 1.0, LastVerified: types.FormatTimestamp(now.AddDate(0, 0, -14*7))},
			0.86,
		},
		{
			"hundred weeks floors",
			types.Relationship{Confidence: 1.0, LastVerified: types.FormatTimestamp(now.AddDate(0, 0, -100*7))},
			0.30,
		},
		{
			"since used when last_verified absent",
			types.Relationship{Confidence: 0.8, Since: types.FormatTimestamp(now.AddDate(0, 0, -7))},
			0.8 * 0.99,
		},
		{
			"future reference does not inflate",
			types.Relationship{Confidence: 0.5, LastVerified: types.FormatTimestamp(now.AddDate(0, 0, 7))},
			0.5,
		},
		{
			"zero base treated as full confidence",
			types.Relationship{LastVerified: types.FormatTimestamp(now)},
			1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveConfidence(tt.rel, "", now, DefaultRate, DefaultFloor)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffectiveConfidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveConfidenceNeverBelowFloor(t *testing.T) {
	now := time.Now()
	for weeks := 0; weeks <= 500; weeks += 25 {
		r := types.Relationship{Confidence: 1.0, LastVerified: types.FormatTimestamp(now.AddDate(0, 0, -weeks*7))}
		if got := EffectiveConfidence(r, "", now, DefaultRate, DefaultFloor); got < DefaultFloor {
			t.Fatalf("weeks=%d: %v below floor", weeks, got)
		}
	}
}

func TestThresholdFor(t *testing.T) {
	if ThresholdFor("reports_to") != 90 || ThresholdFor("member_of") != 60 || ThresholdFor("blocks") != 14 {
		t.Error("pinned thresholds changed")
	}
	if ThresholdFor("made_up") != DefaultThresholdDays {
		t.Error("default threshold not applied")
	}
}

func seedEntity(t *testing.T, root, rel, id, relYAML string) {
	t.Helper()
	content := "---\nschema_version: 2\nid: " + id + "\ntype: team\nversion: 1\n" +
		"created: 2025-01-01T00:00:00Z\nupdated: 2025-01-01T00:00:00Z\nname: X\n" +
		relYAML + "---\n\nBody.\n"
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanFlagsStale(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fresh := types.FormatTimestamp(now.AddDate(0, 0, -10))
	old := types.FormatTimestamp(now.AddDate(0, 0, -200))

	seedEntity(t, root, "Teams/Growth.md", "entity/team/growth",
		"relationships:\n"+
			"  - type: member_of\n    target: entity/squad/checkout\n    last_verified: "+fresh+"\n"+
			"  - type: reports_to\n    target: entity/person/alice\n    last_verified: "+old+"\n")
	seedEntity(t, root, "Teams/Infra.md", "entity/team/infra",
		"relationships:\n"+
			"  - type: blocks\n    target: entity/project/alpha\n    last_verified: "+fresh+"\n")

	rep, err := NewMonitor(store.New(root)).Scan(Options{now: now})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rep.Entities != 2 || rep.Relationships != 3 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Stale != 1 || rep.StaleByType["reports_to"] != 1 {
		t.Errorf("stale = %d by type %v", rep.Stale, rep.StaleByType)
	}
	// Stalest first.
	if rep.Entries[0].RelType != "reports_to" || !rep.Entries[0].Stale {
		t.Errorf("entries[0] = %+v", rep.Entries[0])
	}

	stale, err := NewMonitor(store.New(root)).StaleOnly(Options{now: now})
	if err != nil {
		t.Fatalf("StaleOnly: %v", err)
	}
	if len(stale.Entries) != 1 {
		t.Errorf("stale entries = %+v", stale.Entries)
	}

	topK, _ := NewMonitor(store.New(root)).Scan(Options{now: now, TopK: 1})
	if len(topK.Entries) != 1 {
		t.Errorf("topK entries = %d", len(topK.Entries))
	}
}

func TestScanBlocksThresholdIsTight(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fifteenDays := types.FormatTimestamp(now.AddDate(0, 0, -15))
	seedEntity(t, root, "Teams/Infra.md", "entity/team/infra",
		"relationships:\n  - type: blocks\n    target: entity/project/alpha\n    last_verified: "+fifteenDays+"\n")

	rep, err := NewMonitor(store.New(root)).Scan(Options{now: now})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if rep.Stale != 1 {
		t.Errorf("15-day-old blocks edge should be stale (threshold 14): %+v", rep.Entries)
	}
}
