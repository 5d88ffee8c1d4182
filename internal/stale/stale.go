// Package stale finds entities whose records have gone cold: updated too
// long ago for their type, parked in a terminal status, or past their
// validity window.
package stale

import (
	"sort"
	"time"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// AgeThresholds maps an entity type to the maximum acceptable age (days)
// of its updated timestamp.
var AgeThresholds = map[types.EntityType]int{
	types.TypePerson:     180,
	types.TypeTeam:       120,
	types.TypeSquad:      120,
	types.TypeProject:    60,
	types.TypeExperiment: 30,
	types.TypeSystem:     180,
	types.TypeDomain:     365,
	types.TypeBrand:      365,
}

// DefaultAgeDays applies to types without an entry above.
const DefaultAgeDays = 90

// terminalStatuses are lifecycle states that make an entity stale
// regardless of age.
var terminalStatuses = map[types.Status]bool{
	types.StatusArchived:   true,
	types.StatusDeprecated: true,
}

// Reason classifies why an entity is stale.
type Reason string

const (
	ReasonAge       Reason = "age"
	ReasonTerminal  Reason = "terminal_status"
	ReasonExpired   Reason = "expired_validity"
	ReasonBadHeader Reason = "unparseable_updated"
)

// Entry is one stale entity.
type Entry struct {
	EntityID string           `json:"entity_id"`
	Path     string           `json:"path"`
	Type     types.EntityType `json:"type"`
	Status   types.Status     `json:"status,omitempty"`
	AgeDays  int              `json:"age_days"`
	Reasons  []Reason         `json:"reasons"`
}

// Report summarizes a scan.
type Report struct {
	Entities int            `json:"entities"`
	Stale    int            `json:"stale"`
	ByReason map[string]int `json:"by_reason"`
	Entries  []Entry        `json:"entries"`
}

// Options tunes a scan.
type Options struct {
	// ThresholdDays overrides every per-type age threshold when positive.
	ThresholdDays int
	// TopK truncates Entries to the K oldest (0 = keep all).
	TopK int

	now time.Time // test override
}

// Detector scans a store for stale entities.
type Detector struct {
	st *store.Store
}

// NewDetector returns a detector over st.
func NewDetector(st *store.Store) *Detector {
	return &Detector{st: st}
}

// Scan walks the store; oldest entries sort first.
func (d *Detector) Scan(opts Options) (*Report, error) {
	now := opts.now
	if now.IsZero() {
		now = time.Now()
	}
	rels, err := d.st.List()
	if err != nil {
		return nil, err
	}
	rep := &Report{ByReason: make(map[string]int)}
	for _, rel := range rels {
		e, _, err := d.st.ReadEntity(rel)
		if err != nil || e.ID == "" {
			continue
		}
		rep.Entities++

		entry := Entry{EntityID: e.ID, Path: rel, Type: e.Type, Status: e.Status}

		threshold := opts.ThresholdDays
		if threshold <= 0 {
			threshold = AgeThresholds[e.Type]
			if threshold == 0 {
				threshold = DefaultAgeDays
			}
		}
		if updated, err := e.UpdatedTime(); err == nil {
			entry.AgeDays = int(now.Sub(updated).Hours() / 24)
			if entry.AgeDays > threshold {
				entry.Reasons = append(entry.Reasons, ReasonAge)
			}
		} else {
			entry.Reasons = append(entry.Reasons, ReasonBadHeader)
		}
		if terminalStatuses[e.Status] {
			entry.Reasons = append(entry.Reasons, ReasonTerminal)
		}
		if e.ValidTo != "" {
			if until, err := types.ParseTimestamp(e.ValidTo); err == nil && until.Before(now) {
				entry.Reasons = append(entry.Reasons, ReasonExpired)
			}
		}
		if len(entry.Reasons) == 0 {
			continue
		}
		rep.Stale++
		for _, r := range entry.Reasons {
			rep.ByReason[string(r)]++
		}
		rep.Entries = append(rep.Entries, entry)
	}
	sort.SliceStable(rep.Entries, func(i, j int) bool {
		if rep.Entries[i].AgeDays != rep.Entries[j].AgeDays {
			return rep.Entries[i].AgeDays > rep.Entries[j].AgeDays
		}
		return rep.Entries[i].EntityID < rep.Entries[j].EntityID
	})
	if opts.TopK > 0 && len(rep.Entries) > opts.TopK {
		rep.Entries = rep.Entries[:opts.TopK]
	}
	return rep, nil
}
