// Package types defines core data structures for the brain knowledge graph.
package types

import (
	"fmt"
	"strings"
	"time"
)

// EntityType is the closed set of entity kinds recognized by the v2 schema.
type EntityType string

const (
	TypePerson     EntityType = "person"
	TypeTeam       EntityType = "team"
	TypeSquad      EntityType = "squad"
	TypeProject    EntityType = "project"
	TypeDomain     EntityType = "domain"
	TypeExperiment EntityType = "experiment"
	TypeSystem     EntityType = "system"
	TypeBrand      EntityType = "brand"
)

// AllEntityTypes lists every valid entity type, in display order.
var AllEntityTypes = []EntityType{
	TypePerson, TypeTeam, TypeSquad, TypeProject,
	TypeDomain, TypeExperiment, TypeSystem, TypeBrand,
}

// IsValid reports whether t is a member of the closed type set.
func (t EntityType) IsValid() bool {
	for _, v := range AllEntityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Dir returns the store directory that holds entities of this type.
func (t EntityType) Dir() string {
	switch t {
	case TypePerson:
		return "People"
	case TypeTeam:
		return "Teams"
	case TypeSquad:
		return "Squads"
	case TypeProject:
		return "Projects"
	case TypeDomain:
		return "Domains"
	case TypeExperiment:
		return "Experiments"
	case TypeSystem:
		return "Systems"
	case TypeBrand:
		return "Brands"
	}
	return ""
}

// TypeForDir maps a store directory name back to its entity type.
// Returns "" when the directory is not an entity directory.
func TypeForDir(dir string) EntityType {
	for _, t := range AllEntityTypes {
		if strings.EqualFold(t.Dir(), dir) {
			return t
		}
	}
	return ""
}

// Status is an entity lifecycle tag.
type Status string

const (
	StatusActive     Status = "active"
	StatusArchived   Status = "archived"
	StatusDeprecated Status = "deprecated"
	StatusDraft      Status = "draft"
)

// OrphanReason explains why an entity has no relationships.
type OrphanReason string

const (
	OrphanPendingEnrichment OrphanReason = "pending_enrichment"
	OrphanNoExternalData    OrphanReason = "no_external_data"
	OrphanStandalone        OrphanReason = "standalone"
	OrphanEnrichmentFailed  OrphanReason = "enrichment_failed"
)

// IsValid reports whether r is a recognized orphan reason.
func (r OrphanReason) IsValid() bool {
	switch r {
	case OrphanPendingEnrichment, OrphanNoExternalData, OrphanStandalone, OrphanEnrichmentFailed:
		return true
	}
	return false
}

// Relationship is a typed edge from its owning entity to a target.
// Target holds a canonical id once normalized; raw references survive
// until the normalizer runs (orphans keep their raw form).
type Relationship struct {
	Type         string   `yaml:"type" json:"type"`
	Target       string   `yaml:"target" json:"target"`
	Since        string   `yaml:"since,omitempty" json:"since,omitempty"`
	LastVerified string   `yaml:"last_verified,omitempty" json:"last_verified,omitempty"`
	Confidence   float64  `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Strength     *float64 `yaml:"strength,omitempty" json:"strength,omitempty"`
	Source       string   `yaml:"source,omitempty" json:"source,omitempty"`
}

// Key returns the identity of a relationship for dedup purposes.
func (r Relationship) Key() string {
	return r.Type + "\x00" + strings.ToLower(r.Target)
}

// Entity is the typed view of an entity file's front-matter plus its body.
// The store keeps the raw YAML document alongside this view so unknown
// keys and key order survive read-write cycles.
type Entity struct {
	SchemaVersion int            `yaml:"schema_version" json:"schema_version"`
	ID            string         `yaml:"id" json:"id"`
	Type          EntityType     `yaml:"type" json:"type"`
	Version       int            `yaml:"version" json:"version"`
	Created       string         `yaml:"created" json:"created"`
	Updated       string         `yaml:"updated" json:"updated"`
	Name          string         `yaml:"name" json:"name"`
	Aliases       []string       `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Status        Status         `yaml:"status,omitempty" json:"status,omitempty"`
	Confidence    *float64       `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	ValidFrom     string         `yaml:"valid_from,omitempty" json:"valid_from,omitempty"`
	ValidTo       string         `yaml:"valid_to,omitempty" json:"valid_to,omitempty"`
	Description   string         `yaml:"description,omitempty" json:"description,omitempty"`
	Role          string         `yaml:"role,omitempty" json:"role,omitempty"`
	Team          string         `yaml:"team,omitempty" json:"team,omitempty"`
	Owner         string         `yaml:"owner,omitempty" json:"owner,omitempty"`
	Tags          []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Relationships []Relationship `yaml:"relationships,omitempty" json:"relationships,omitempty"`
	Events        []Event        `yaml:"events,omitempty" json:"events,omitempty"`
	OrphanReason  OrphanReason   `yaml:"orphan_reason,omitempty" json:"orphan_reason,omitempty"`
}

// RequiredHeaderFields are the v2 fields every entity must carry.
var RequiredHeaderFields = []string{
	"schema_version", "id", "type", "version", "created", "updated", "name",
}

// Slug returns the slug segment of the entity's canonical id.
func (e *Entity) Slug() string {
	_, slug, _ := SplitID(e.ID)
	return slug
}

// HasRelationships reports whether the entity carries at least one edge.
func (e *Entity) HasRelationships() bool {
	return len(e.Relationships) > 0
}

// UpdatedTime parses the updated timestamp, normalized to UTC.
func (e *Entity) UpdatedTime() (time.Time, error) {
	return ParseTimestamp(e.Updated)
}

// ParseTimestamp accepts the timestamp shapes found in the wild
// (RFC3339, Z-suffixed seconds, date-only) and normalizes to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformed)
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrMalformed, s)
}

// FormatTimestamp renders t in the canonical on-disk form: ISO-8601 UTC
// with a Z suffix and second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
