// Package enrich turns raw cached source records into entity mutations.
// Enrichers never write headers directly: every change goes through the
// event store so the timeline stays authoritative and re-runs are no-ops.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmbrain/brain/internal/events"
	"github.com/pmbrain/brain/internal/resolver"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// InboxDir is the cached-records directory under the brain root, with
// one subdirectory per source.
const InboxDir = ".enrichment_inbox"

// Record is one raw record cached from an external source.
type Record struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp,omitempty"`
	Title     string            `json:"title,omitempty"`
	Text      string            `json:"text,omitempty"`
	Author    string            `json:"author,omitempty"`
	Entities  []string          `json:"entities,omitempty"`  // raw references mentioned
	Fields    map[string]string `json:"fields,omitempty"`    // proposed field values
	Relations []RecordRelation  `json:"relations,omitempty"` // proposed edges
}

// RecordRelation proposes one edge between two raw references.
type RecordRelation struct {
	From string `json:"from"`
	Type string `json:"type"`
	To   string `json:"to"`
}

// Result counts what one record changed.
type Result struct {
	FieldsUpdated  int      `json:"fields_updated"`
	RelationsAdded int      `json:"relations_added"`
	Unresolved     []string `json:"unresolved,omitempty"`
}

// Changed reports whether the record mutated anything.
func (r *Result) Changed() bool {
	return r.FieldsUpdated > 0 || r.RelationsAdded > 0
}

// InboxStats aggregates an inbox run.
type InboxStats struct {
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// Enricher is the capability surface the orchestrator consumes.
type Enricher interface {
	Source() string
	Reliability() float64
	EnrichRecord(ctx context.Context, rec *Record, dryRun bool) (*Result, error)
	EnrichInbox(ctx context.Context, dir string, dryRun bool) (*InboxStats, error)
}

// Deps bundles the read/write models every enricher needs.
type Deps struct {
	Store    *store.Store
	Resolver *resolver.Resolver
	Events   *events.Store
}

// NewDeps builds the standard dependency set over one store.
func NewDeps(st *store.Store, res *resolver.Resolver) Deps {
	return Deps{Store: st, Resolver: res, Events: events.New(st)}
}

// sourceEnricher is the shared implementation behind every source. The
// sources differ only in name, reliability, and the event type their
// discoveries carry.
type sourceEnricher struct {
	name        string
	reliability float64
	eventType   types.EventType
	deps        Deps
}

func (s *sourceEnricher) Source() string       { return s.name }
func (s *sourceEnricher) Reliability() float64 { return s.reliability }

// correlation builds the idempotency key for one record. Together with a
// deterministic message it makes every append a no-op on re-runs.
func (s *sourceEnricher) correlation(rec *Record) string {
	return s.name + "/" + rec.ID
}

// EnrichRecord interprets one record: proposed fields land on entities
// that still miss them, proposed relations become edges with the
// source's reliability as confidence. A nil record is an empty result.
func (s *sourceEnricher) EnrichRecord(ctx context.Context, rec *Record, dryRun bool) (*Result, error) {
	res := &Result{}
	if rec == nil || rec.ID == "" {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %v", types.ErrCanceled, err)
	}

	for _, ref := range rec.Entities {
		rel, ok := s.resolvePath(ref)
		if !ok {
			res.Unresolved = append(res.Unresolved, ref)
			continue
		}
		if err := s.applyFields(rel, rec, dryRun, res); err != nil {
			return res, err
		}
	}
	for _, pr := range rec.Relations {
		if err := s.applyRelation(pr, rec, dryRun, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *sourceEnricher) resolvePath(ref string) (string, bool) {
	id := s.deps.Resolver.Resolve(ref)
	if id == "" {
		return "", false
	}
	rel, err := s.deps.Store.PathForID(id)
	if err != nil {
		return "", false
	}
	return rel, true
}

// applyFields sets each proposed field that is still empty on the entity.
func (s *sourceEnricher) applyFields(rel string, rec *Record, dryRun bool, res *Result) error {
	if len(rec.Fields) == 0 {
		return nil
	}
	e, _, err := s.deps.Store.ReadEntity(rel)
	if err != nil {
		return err
	}
	fields := make([]string, 0, len(rec.Fields))
	for field := range rec.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		value := rec.Fields[field]
		if !fieldEmpty(e, field) {
			continue
		}
		res.FieldsUpdated++
		if dryRun {
			continue
		}
		_, _, err := s.deps.Events.Append(rel, events.AppendInput{
			Type:          s.eventType,
			Message:       fmt.Sprintf("%s: set %s from record %s", s.name, field, rec.ID),
			Actor:         "enricher/" + s.name,
			CorrelationID: s.correlation(rec),
			Changes: []types.Change{{
				Field: field, Operation: "set", Value: value,
			}},
			Metadata: map[string]interface{}{
				"source":      s.name,
				"reliability": s.reliability,
			},
			Mutate: func(e *types.Entity, f *store.File) error {
				return f.Set(field, value)
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// applyRelation adds one proposed edge when it is not already present.
func (s *sourceEnricher) applyRelation(pr RecordRelation, rec *Record, dryRun bool, res *Result) error {
	fromRel, ok := s.resolvePath(pr.From)
	if !ok {
		res.Unresolved = append(res.Unresolved, pr.From)
		return nil
	}
	target := s.deps.Resolver.Resolve(pr.To)
	if target == "" {
		res.Unresolved = append(res.Unresolved, pr.To)
		return nil
	}
	e, _, err := s.deps.Store.ReadEntity(fromRel)
	if err != nil {
		return err
	}
	candidate := types.Relationship{
		Type:         pr.Type,
		Target:       target,
		LastVerified: rec.Timestamp,
		Confidence:   s.reliability,
		Source:       s.name,
	}
	for _, existing := range e.Relationships {
		if existing.Key() == candidate.Key() {
			return nil // already known
		}
	}
	res.RelationsAdded++
	if dryRun {
		return nil
	}
	_, _, err = s.deps.Events.Append(fromRel, events.AppendInput{
		Type:          s.eventType,
		Message:       fmt.Sprintf("%s: add %s -> %s from record %s", s.name, pr.Type, target, rec.ID),
		Actor:         "enricher/" + s.name,
		CorrelationID: s.correlation(rec),
		Changes: []types.Change{{
			Field: "relationships", Operation: "add", Value: target,
		}},
		Metadata: map[string]interface{}{
			"source":      s.name,
			"reliability": s.reliability,
		},
		Mutate: func(e *types.Entity, f *store.File) error {
			e.Relationships = append(e.Relationships, candidate)
			return f.Set("relationships", e.Relationships)
		},
	})
	return err
}

// EnrichInbox processes every .json record under dir, sorted by name.
func (s *sourceEnricher) EnrichInbox(ctx context.Context, dir string, dryRun bool) (*InboxStats, error) {
	stats := &InboxStats{}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading inbox %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%w: %v", types.ErrCanceled, err)
		}
		rec, err := ReadRecord(filepath.Join(dir, name))
		if err != nil {
			stats.Errors = append(stats.Errors, name+": "+err.Error())
			continue
		}
		res, err := s.EnrichRecord(ctx, rec, dryRun)
		if err != nil {
			stats.Errors = append(stats.Errors, name+": "+err.Error())
			continue
		}
		stats.Processed++
		if res.Changed() {
			stats.Updated++
		} else {
			stats.Skipped++
		}
	}
	return stats, nil
}

// ReadRecord loads one cached record file.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: record %s: %v", types.ErrMalformed, filepath.Base(path), err)
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &rec, nil
}

func fieldEmpty(e *types.Entity, field string) bool {
	switch field {
	case "role":
		return e.Role == ""
	case "team":
		return e.Team == ""
	case "owner":
		return e.Owner == ""
	case "description":
		return e.Description == ""
	case "status":
		return e.Status == ""
	}
	return false
}
