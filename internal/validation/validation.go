// Package validation checks entity files against the v2 schema. It is a
// reporter: per-entity problems are collected into results, never raised.
package validation

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Format classifies an entity file's schema generation.
type Format int

const (
	FormatMalformed Format = iota
	FormatV1
	FormatV2
)

func (f Format) String() string {
	switch f {
	case FormatV1:
		return "v1"
	case FormatV2:
		return "v2"
	}
	return "malformed"
}

// DetectFormat classifies a parsed file: a header carrying schema_version
// and a canonical id is v2; any other header is v1; no header at all is
// malformed.
func DetectFormat(f *store.File) Format {
	if f == nil || !f.HasHeader() {
		return FormatMalformed
	}
	sv, hasSV := f.Get("schema_version")
	id, hasID := f.Get("id")
	if hasSV && hasID && types.IsCanonicalID(id.Value) {
		if n, err := strconv.Atoi(sv.Value); err == nil && n >= 2 {
			return FormatV2
		}
	}
	return FormatV1
}

// Issue is one validation finding tied to a header field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects findings for one entity file.
type Result struct {
	Path     string  `json:"path"`
	Format   string  `json:"format"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Valid reports whether the entity passed with no errors.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(field, msg string) {
	r.Errors = append(r.Errors, Issue{Field: field, Message: msg})
}

func (r *Result) warnf(field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: msg})
}

// ValidateFile checks one parsed entity file.
func ValidateFile(rel string, f *store.File) Result {
	res := Result{Path: rel}
	format := DetectFormat(f)
	res.Format = format.String()

	if format == FormatMalformed {
		res.errorf("header", "missing front-matter header")
		return res
	}
	if format == FormatV1 {
		res.warnf("schema_version", "v1 format, run `brain migrate`")
		return res
	}

	for _, field := range types.RequiredHeaderFields {
		if _, ok := f.Get(field); !ok {
			res.errorf(field, "required field missing")
		}
	}

	if node, ok := f.Get("type"); ok {
		if !types.EntityType(node.Value).IsValid() {
			res.errorf("type", "unknown entity type "+strconv.Quote(node.Value))
		}
	}
	if node, ok := f.Get("version"); ok {
		if _, err := strconv.Atoi(node.Value); err != nil {
			res.errorf("version", "not an integer: "+node.Value)
		}
	}
	if node, ok := f.Get("confidence"); ok {
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			res.errorf("confidence", "not a number: "+node.Value)
		} else if v < 0 || v > 1 {
			res.errorf("confidence", "outside [0,1]: "+node.Value)
		}
	}
	for _, field := range []string{"created", "updated"} {
		if node, ok := f.Get(field); ok && node.Value != "" {
			if _, err := types.ParseTimestamp(node.Value); err != nil {
				res.errorf(field, "unparseable timestamp "+strconv.Quote(node.Value))
			}
		}
	}

	relCount := validateRelationships(f, &res)
	validateEvents(f, &res)

	if node, ok := f.Get("orphan_reason"); ok && node.Value != "" {
		if !types.OrphanReason(node.Value).IsValid() {
			res.errorf("orphan_reason", "unknown reason "+strconv.Quote(node.Value))
		} else if relCount > 0 {
			res.errorf("orphan_reason", "set on an entity that has relationships")
		}
	}

	if node, ok := f.Get("description"); !ok || node.Value == "" {
		res.warnf("description", "missing description")
	}
	if node, ok := f.Get("tags"); !ok || (node.Kind == yaml.SequenceNode && len(node.Content) == 0) {
		res.warnf("tags", "missing tags")
	}
	if strings.TrimSpace(f.Body()) == "" {
		res.warnf("body", "empty body")
	}
	return res
}

// validateRelationships checks the relationships sequence node and
// returns how many items it holds.
func validateRelationships(f *store.File, res *Result) int {
	node, ok := f.Get("relationships")
	if !ok {
		return 0
	}
	if node.Kind != yaml.SequenceNode {
		res.errorf("relationships", "not a list")
		return 0
	}
	seen := make(map[string]bool)
	for i, item := range node.Content {
		field := "relationships[" + strconv.Itoa(i) + "]"
		if item.Kind != yaml.MappingNode {
			res.errorf(field, "not an object")
			continue
		}
		var rel types.Relationship
		if err := item.Decode(&rel); err != nil {
			res.errorf(field, "undecodable: "+err.Error())
			continue
		}
		if rel.Type == "" || rel.Target == "" {
			res.errorf(field, "missing type or target")
			continue
		}
		if rel.Confidence < 0 || rel.Confidence > 1 {
			res.errorf(field, "confidence outside [0,1]")
		}
		for _, ts := range []string{rel.Since, rel.LastVerified} {
			if ts != "" {
				if _, err := types.ParseTimestamp(ts); err != nil {
					res.errorf(field, "unparseable timestamp "+strconv.Quote(ts))
				}
			}
		}
		if key := rel.Key(); seen[key] {
			res.errorf(field, "duplicate relationship "+rel.Type+" -> "+rel.Target)
		} else {
			seen[key] = true
		}
	}
	return len(node.Content)
}

func validateEvents(f *store.File, res *Result) {
	node, ok := f.Get("events")
	if !ok {
		return
	}
	if node.Kind != yaml.SequenceNode {
		res.errorf("events", "not a list")
		return
	}
	ids := make(map[string]bool)
	for i, item := range node.Content {
		field := "events[" + strconv.Itoa(i) + "]"
		if item.Kind != yaml.MappingNode {
			res.errorf(field, "not an object")
			continue
		}
		var ev types.Event
		if err := item.Decode(&ev); err != nil {
			res.errorf(field, "undecodable: "+err.Error())
			continue
		}
		if ev.EventID == "" || ev.Timestamp == "" || ev.Type == "" {
			res.errorf(field, "missing event_id, timestamp, or type")
			continue
		}
		if _, err := types.ParseTimestamp(ev.Timestamp); err != nil {
			res.errorf(field, "unparseable timestamp "+strconv.Quote(ev.Timestamp))
		}
		if ids[ev.EventID] {
			res.errorf(field, "duplicate event id "+ev.EventID)
		}
		ids[ev.EventID] = true
	}
}

// Summary aggregates results across a run.
type Summary struct {
	Total         int `json:"total"`
	WithErrors    int `json:"with_errors"`
	WithWarnings  int `json:"with_warnings"`
	TotalErrors   int `json:"total_errors"`
	TotalWarnings int `json:"total_warnings"`
	V1Format      int `json:"v1_format"`
}

// ValidateAll walks every entity in the store.
func ValidateAll(st *store.Store) ([]Result, Summary, error) {
	rels, err := st.List()
	if err != nil {
		return nil, Summary{}, err
	}
	var out []Result
	var sum Summary
	for _, rel := range rels {
		f, err := st.Read(rel)
		if err != nil {
			res := Result{Path: rel, Format: FormatMalformed.String()}
			res.errorf("file", err.Error())
			out = append(out, res)
			sum.Total++
			sum.WithErrors++
			sum.TotalErrors++
			continue
		}
		res := ValidateFile(rel, f)
		out = append(out, res)
		sum.Total++
		if len(res.Errors) > 0 {
			sum.WithErrors++
		}
		if len(res.Warnings) > 0 {
			sum.WithWarnings++
		}
		sum.TotalErrors += len(res.Errors)
		sum.TotalWarnings += len(res.Warnings)
		if res.Format == FormatV1.String() {
			sum.V1Format++
		}
	}
	return out, sum, nil
}
