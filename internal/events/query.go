package events

import (
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// cacheSize bounds the parsed-entity LRU.
const cacheSize = 128

type cacheEntry struct {
	modTime time.Time
	entity  *types.Entity
}

// Store layers event operations over the entity store, with an LRU of
// recently parsed entities keyed by relative path.
type Store struct {
	st    *store.Store
	cache *lru.Cache[string, cacheEntry]
}

// New returns an event store over st.
func New(st *store.Store) *Store {
	cache, _ := lru.New[string, cacheEntry](cacheSize) // only errors on size <= 0
	return &Store{st: st, cache: cache}
}

func (s *Store) invalidate(rel string) {
	s.cache.Remove(rel)
}

// cachedEntity returns the parsed entity at rel, re-reading only when
// the file changed since it was cached.
func (s *Store) cachedEntity(rel string) (*types.Entity, error) {
	info, err := os.Stat(s.st.Path(rel))
	if err == nil {
		if entry, ok := s.cache.Get(rel); ok && entry.modTime.Equal(info.ModTime()) {
			return entry.entity, nil
		}
	}
	e, _, err2 := s.st.ReadEntity(rel)
	if err2 != nil {
		return nil, err2
	}
	if err == nil {
		s.cache.Add(rel, cacheEntry{modTime: info.ModTime(), entity: e})
	}
	return e, nil
}

// EntityEvent is one event paired with its owning entity.
type EntityEvent struct {
	EntityID string      `json:"entity_id"`
	Path     string      `json:"path"`
	Event    types.Event `json:"event"`
}

// Query lists events across every entity, newest first, ties broken by
// entity id, bounded by limit (0 = unbounded).
func (s *Store) Query(filter Filter, pathGlob string, limit int) ([]EntityEvent, error) {
	rels, err := s.st.List()
	if err != nil {
		return nil, err
	}
	var out []EntityEvent
	for _, rel := range rels {
		if pathGlob != "" {
			if ok, err := path.Match(pathGlob, rel); err != nil {
				return nil, fmt.Errorf("bad path glob %q: %w", pathGlob, err)
			} else if !ok {
				continue
			}
		}
		e, err := s.cachedEntity(rel)
		if err != nil {
			continue // malformed entities are reported by the validator, not here
		}
		for _, ev := range e.Events {
			if filter.matches(ev) {
				out = append(out, EntityEvent{EntityID: e.ID, Path: rel, Event: ev})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := eventTime(out[i].Event), eventTime(out[j].Event)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].EntityID < out[j].EntityID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ByCorrelation returns every event carrying the correlation id.
func (s *Store) ByCorrelation(correlationID string) ([]EntityEvent, error) {
	all, err := s.Query(Filter{}, "", 0)
	if err != nil {
		return nil, err
	}
	var out []EntityEvent
	for _, ee := range all {
		if ee.Event.CorrelationID == correlationID {
			out = append(out, ee)
		}
	}
	return out, nil
}

// GroupBy selects the Count dimension.
type GroupBy string

const (
	GroupByType  GroupBy = "type"
	GroupByActor GroupBy = "actor"
	GroupByID    GroupBy = "id"
)

// Count aggregates events by type, actor, or entity id.
func (s *Store) Count(groupBy GroupBy) (map[string]int, error) {
	all, err := s.Query(Filter{}, "", 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, ee := range all {
		switch groupBy {
		case GroupByActor:
			out[ee.Event.Actor]++
		case GroupByID:
			out[ee.EntityID]++
		default:
			out[string(ee.Event.Type)]++
		}
	}
	return out, nil
}
