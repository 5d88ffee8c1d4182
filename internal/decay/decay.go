// Package decay ages relationship confidence between verifications and
// flags stale edges. It never writes to entities.
package decay

import (
	"sort"
	"time"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Defaults per the decay model.
const (
	DefaultRate  = 0.01 // confidence lost per week
	DefaultFloor = 0.3
)

// StalenessThresholds maps a relationship type to its staleness window
// in days. Types not listed use DefaultThresholdDays.
var StalenessThresholds = map[string]int{
	"reports_to": 90,
	"member_of":  60,
	"blocks":     14,
	"owns":       120,
	"owned_by":   120,
	"depends_on": 45,
}

// DefaultThresholdDays applies to relationship types with no entry above.
const DefaultThresholdDays = 90

// ThresholdFor returns the staleness window for a relationship type.
func ThresholdFor(relType string) int {
	if d, ok := StalenessThresholds[relType]; ok {
		return d
	}
	return DefaultThresholdDays
}

// refTime picks the decay reference: last_verified, else since, else the
// owning entity's updated timestamp.
func refTime(r types.Relationship, entityUpdated string) (time.Time, bool) {
	for _, s := range []string{r.LastVerified, r.Since, entityUpdated} {
		if s == "" {
			continue
		}
		if t, err := types.ParseTimestamp(s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EffectiveConfidence computes max(floor, base * (1 - rate*weeks)).
// A relationship without any parseable reference keeps its base.
func EffectiveConfidence(r types.Relationship, entityUpdated string, now time.Time, rate, floor float64) float64 {
	base := r.Confidence
	if base <= 0 {
		base = 1.0
	}
	ref, ok := refTime(r, entityUpdated)
	if !ok {
		return base
	}
	weeks := now.Sub(ref).Hours() / (24 * 7)
	if weeks < 0 {
		weeks = 0
	}
	eff := base * (1 - rate*weeks)
	if eff < floor {
		return floor
	}
	return eff
}

// Entry is one decayed relationship in a report.
type Entry struct {
	EntityID   string  `json:"entity_id"`
	Path       string  `json:"path"`
	RelType    string  `json:"rel_type"`
	Target     string  `json:"target"`
	Base       float64 `json:"base"`
	Effective  float64 `json:"effective"`
	AgeDays    int     `json:"age_days"`
	Threshold  int     `json:"threshold_days"`
	Stale      bool    `json:"stale"`
	NoRef      bool    `json:"no_ref,omitempty"`
}

// Report summarizes a decay scan.
type Report struct {
	Entities      int            `json:"entities"`
	Relationships int            `json:"relationships"`
	Stale         int            `json:"stale"`
	StaleByType   map[string]int `json:"stale_by_type"`
	Entries       []Entry        `json:"entries"`
}

// Options tunes a scan.
type Options struct {
	Rate  float64 // 0 means DefaultRate
	Floor float64 // 0 means DefaultFloor
	// ThresholdDays overrides every per-type threshold when positive.
	ThresholdDays int
	// TopK truncates Entries to the K stalest (0 = keep all).
	TopK int

	now time.Time // test override
}

// Monitor scans a store's relationships.
type Monitor struct {
	st *store.Store
}

// NewMonitor returns a monitor over st.
func NewMonitor(st *store.Store) *Monitor {
	return &Monitor{st: st}
}

// Scan computes decayed confidence for every relationship. Stalest
// entries sort first.
func (m *Monitor) Scan(opts Options) (*Report, error) {
	rate := opts.Rate
	if rate == 0 {
		rate = DefaultRate
	}
	floor := opts.Floor
	if floor == 0 {
		floor = DefaultFloor
	}
	now := opts.now
	if now.IsZero() {
		now = time.Now()
	}

	rels, err := m.st.List()
	if err != nil {
		return nil, err
	}
	rep := &Report{StaleByType: make(map[string]int)}
	for _, rel := range rels {
		e, _, err := m.st.ReadEntity(rel)
		if err != nil {
			continue // reporters collect what they can
		}
		rep.Entities++
		for _, r := range e.Relationships {
			rep.Relationships++
			entry := Entry{
				EntityID: e.ID,
				Path:     rel,
				RelType:  r.Type,
				Target:   r.Target,
				Base:     r.Confidence,
			}
			if entry.Base <= 0 {
				entry.Base = 1.0
			}
			entry.Effective = EffectiveConfidence(r, e.Updated, now, rate, floor)

			threshold := opts.ThresholdDays
			if threshold <= 0 {
				threshold = ThresholdFor(r.Type)
			}
			entry.Threshold = threshold

			if ref, ok := refTime(r, e.Updated); ok {
				entry.AgeDays = int(now.Sub(ref).Hours() / 24)
				entry.Stale = entry.AgeDays > threshold
			} else {
				entry.NoRef = true
			}
			if entry.Stale {
				rep.Stale++
				rep.StaleByType[r.Type]++
			}
			rep.Entries = append(rep.Entries, entry)
		}
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

// StaleOnly filters a scan down to stale entries.
func (m *Monitor) StaleOnly(opts Options) (*Report, error) {
	rep, err := m.Scan(opts)
	if err != nil {
		return nil, err
	}
	var stale []Entry
	for _, entry := range rep.Entries {
		if entry.Stale {
			stale = append(stale, entry)
		}
	}
	rep.Entries = stale
	return rep, nil
}
