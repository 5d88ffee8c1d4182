// Package events is the single mutation path for entities: every change
// is recorded as an embedded event, bumping the entity version and
// refreshing its updated timestamp in the same atomic write.
package events

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// AppendInput describes one event to append.
type AppendInput struct {
	Type          types.EventType
	Message       string
	Actor         string
	Changes       []types.Change
	CorrelationID string
	Metadata      map[string]interface{}

	// Mutate, when set, applies field changes to the entity file in the
	// same write as the event append. It runs only when the event is not
	// a duplicate.
	Mutate func(e *types.Entity, f *store.File) error

	// now overrides the event timestamp in tests.
	now time.Time
}

// Append appends an event to the entity at rel. Appending an event whose
// (correlation_id, message) pair is already present on the entity is a
// no-op; the second return reports whether anything was written.
func (s *Store) Append(rel string, in AppendInput) (*types.Event, bool, error) {
	e, f, err := s.st.ReadEntity(rel)
	if err != nil {
		return nil, false, err
	}

	if in.CorrelationID != "" {
		key := in.CorrelationID + "\x00" + in.Message
		for i := range e.Events {
			if e.Events[i].DedupKey() == key {
				dup := e.Events[i]
				return &dup, false, nil
			}
		}
	}

	now := in.now
	if now.IsZero() {
		now = time.Now()
	}
	ev := types.Event{
		EventID:       uuid.NewString(),
		Timestamp:     types.FormatTimestamp(now),
		Type:          in.Type,
		Actor:         in.Actor,
		Message:       in.Message,
		Changes:       in.Changes,
		CorrelationID: in.CorrelationID,
		Metadata:      in.Metadata,
	}

	if in.Mutate != nil {
		if err := in.Mutate(e, f); err != nil {
			return nil, false, err
		}
	}

	e.Events = append(e.Events, ev)
	e.Version++
	if err := f.Set("version", e.Version); err != nil {
		return nil, false, err
	}
	if err := f.Set("updated", ev.Timestamp); err != nil {
		return nil, false, err
	}
	if err := f.Set("events", e.Events); err != nil {
		return nil, false, err
	}
	if err := s.st.Write(rel, f); err != nil {
		return nil, false, err
	}
	s.invalidate(rel)
	return &ev, true, nil
}

// Filter narrows event listings.
type Filter struct {
	Since  time.Time
	Until  time.Time
	Types  []types.EventType
	Actors []string
}

func (f Filter) matches(ev types.Event) bool {
	if len(f.Types) > 0 && !containsType(f.Types, ev.Type) {
		return false
	}
	if len(f.Actors) > 0 && !containsStr(f.Actors, ev.Actor) {
		return false
	}
	if !f.Since.IsZero() || !f.Until.IsZero() {
		ts, err := types.ParseTimestamp(ev.Timestamp)
		if err != nil {
			return false
		}
		if !f.Since.IsZero() && ts.Before(f.Since) {
			return false
		}
		if !f.Until.IsZero() && ts.After(f.Until) {
			return false
		}
	}
	return true
}

func containsType(list []types.EventType, t types.EventType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ForEntity returns the entity's events passing the filter, oldest first.
func (s *Store) ForEntity(rel string, filter Filter) ([]types.Event, error) {
	e, err := s.cachedEntity(rel)
	if err != nil {
		return nil, err
	}
	var out []types.Event
	for _, ev := range e.Events {
		if filter.matches(ev) {
			out = append(out, ev)
		}
	}
	sortEventsAsc(out)
	return out, nil
}

// Timeline is ForEntity constrained to a time range.
func (s *Store) Timeline(rel string, since, until time.Time) ([]types.Event, error) {
	return s.ForEntity(rel, Filter{Since: since, Until: until})
}

func eventTime(ev types.Event) time.Time {
	ts, err := types.ParseTimestamp(ev.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func sortEventsAsc(evs []types.Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		return eventTime(evs[i]).Before(eventTime(evs[j]))
	})
}
