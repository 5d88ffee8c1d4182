package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pmbrain/brain/internal/store"
)

func parse(t *testing.T, content string) *store.File {
	t.Helper()
	f, err := store.Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

const validEntity = `---
schema_version: 2
id: entity/project/alpha
type: project
version: 3
created: 2025-01-10T09:00:00Z
updated: 2025-02-01T10:00:00Z
name: Alpha
description: Checkout revamp.
tags: [checkout]
confidence: 0.9
relationships:
  - type: owned_by
    target: entity/team/growth
    confidence: 0.8
---

Body text.
`

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
	}{
		{"v2", validEntity, FormatV2},
		{"v1 no schema_version", "---\ntitle: Old Thing\n---\nbody\n", FormatV1},
		{"v1 bad id", "---\nschema_version: 2\nid: not-canonical\n---\n", FormatV1},
		{"headerless", "just a note\n", FormatMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(parse(t, tt.content)); got != tt.want {
				t.Errorf("DetectFormat = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCleanEntity(t *testing.T) {
	res := ValidateFile("Projects/Alpha.md", parse(t, validEntity))
	if !res.Valid() {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func hasIssue(issues []Issue, field string) bool {
	for _, is := range issues {
		if is.Field == field {
			return true
		}
	}
	return false
}

func TestValidateErrors(t *testing.T) {
	content := `---
schema_version: 2
id: entity/project/alpha
type: spaceship
version: three
created: not-a-time
updated: 2025-02-01T10:00:00Z
name: Alpha
confidence: 1.5
relationships:
  - type: owned_by
    target: entity/team/growth
  - target: entity/team/growth
  - type: owned_by
    target: entity/team/growth
events:
  - event_id: e1
    timestamp: whenever
    type: field_update
    actor: t
    message: m
---

Body.
`
	res := ValidateFile("Projects/Alpha.md", parse(t, content))
	for _, field := range []string{
		"type", "version", "created", "confidence",
		"relationships[1]", "relationships[2]", "events[0]",
	} {
		if !hasIssue(res.Errors, field) {
			t.Errorf("missing error for %s; got %+v", field, res.Errors)
		}
	}
}

func TestValidateMissingRequired(t *testing.T) {
	content := "---\nschema_version: 2\nid: entity/project/alpha\ntype: project\n---\n\nBody.\n"
	res := ValidateFile("Projects/Alpha.md", parse(t, content))
	for _, field := range []string{"version", "created", "updated", "name"} {
		if !hasIssue(res.Errors, field) {
			t.Errorf("missing error for required field %s", field)
		}
	}
}

func TestValidateWarnings(t *testing.T) {
	content := `---
schema_version: 2
id: entity/project/alpha
type: project
version: 1
created: 2025-01-10T09:00:00Z
updated: 2025-01-10T09:00:00Z
name: Alpha
---
`
	res := ValidateFile("Projects/Alpha.md", parse(t, content))
	if !res.Valid() {
		t.Fatalf("errors = %+v", res.Errors)
	}
	for _, field := range []string{"description", "tags", "body"} {
		if !hasIssue(res.Warnings, field) {
			t.Errorf("missing warning for %s; got %+v", field, res.Warnings)
		}
	}
}

func TestValidateOrphanReasonOnConnectedEntity(t *testing.T) {
	content := `---
schema_version: 2
id: entity/project/alpha
type: project
version: 1
created: 2025-01-10T09:00:00Z
updated: 2025-01-10T09:00:00Z
name: Alpha
orphan_reason: pending_enrichment
relationships:
  - type: owned_by
    target: entity/team/growth
---

Body.
`
	res := ValidateFile("Projects/Alpha.md", parse(t, content))
	if !hasIssue(res.Errors, "orphan_reason") {
		t.Errorf("expected orphan_reason error, got %+v", res.Errors)
	}
}

func TestValidateAllSummary(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"Projects/Good.md": validEntity,
		"Projects/Old.md":  "---\ntitle: Legacy\n---\nbody\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	results, sum, err := ValidateAll(store.New(root))
	if err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	if len(results) != 2 || sum.Total != 2 {
		t.Fatalf("results = %d, total = %d", len(results), sum.Total)
	}
	if sum.V1Format != 1 {
		t.Errorf("V1Format = %d", sum.V1Format)
	}
	if sum.WithWarnings == 0 {
		t.Errorf("summary = %+v", sum)
	}
}
