// Package query is the BRAIN+GRAPH engine: alias and content search seed
// a result set, one-hop graph expansion adds decayed neighbors, and the
// merged set is ranked with max-score-wins.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmbrain/brain/internal/index"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Scoring constants per the ranking model.
const (
	scoreExactFull   = 1.0
	scoreExactTerm   = 0.5
	scoreRepeatBonus = 0.1
	scorePrefix      = 0.4
	contentBase      = 0.1
	contentNameBump  = 0.3
	defaultEdgeDecay = 0.5
	prefixSlack      = 3 // alias may be at most this much longer than the term
)

// Options tunes one query.
type Options struct {
	Limit    int
	UseGraph bool
	Depth    int // graph hops, default 1
	Synonyms bool
}

// Engine answers queries over a registry, content index, and store.
type Engine struct {
	st  *store.Store
	reg *types.Registry
	ix  *index.Index
}

// NewEngine wires the three read models together.
func NewEngine(st *store.Store, reg *types.Registry, ix *index.Index) *Engine {
	return &Engine{st: st, reg: reg, ix: ix}
}

func (e *Engine) idForSlug(slug string) string {
	entry, ok := e.reg.Entities[slug]
	if !ok {
		return ""
	}
	return types.MakeID(entry.Type, slug)
}

// Query runs the full pipeline. An empty query returns no results and
// no error.
func (e *Engine) Query(text string, opts Options) ([]types.QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if opts.Depth <= 0 {
		opts.Depth = 1
	}

	seeds := make(map[string]*types.QueryResult)
	merge := func(id string, score float64, source, reason string) {
		if id == "" {
			return
		}
		cur, ok := seeds[id]
		if !ok {
			seeds[id] = &types.QueryResult{ID: id, Score: score, Source: source, Reasons: []string{reason}}
			return
		}
		if score > cur.Score {
			cur.Score = score
			cur.Source = source
		}
		cur.Reasons = append(cur.Reasons, reason)
	}

	e.aliasSearch(text, merge)
	e.contentSearch(text, opts.Synonyms, merge)

	if opts.UseGraph {
		e.expand(seeds, opts.Depth, merge)
	}

	out := make([]types.QueryResult, 0, len(seeds))
	for _, r := range seeds {
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// aliasSearch scores hits against the registry alias index: exact
// full-query match, per-term matches with repeat bonus, and near-length
// prefix matches.
func (e *Engine) aliasSearch(text string, merge func(id string, score float64, source, reason string)) {
	lower := strings.ToLower(text)

	if slug, ok := e.reg.SlugForAlias(lower); ok {
		merge(e.idForSlug(slug), scoreExactFull, "alias", fmt.Sprintf("exact match %q", text))
	}

	terms := strings.Fields(lower)
	termHits := make(map[string]int) // slug -> matched term count
	for _, term := range terms {
		if slug, ok := e.reg.SlugForAlias(term); ok {
			termHits[slug]++
			continue
		}
		for alias, slug := range e.reg.AliasIndex {
			if len(alias) <= len(term)+prefixSlack && alias != term && strings.HasPrefix(alias, term) {
				merge(e.idForSlug(slug), scorePrefix, "alias", fmt.Sprintf("prefix of %q", alias))
			}
		}
	}
	for slug, hits := range termHits {
		score := scoreExactTerm + scoreRepeatBonus*float64(hits-1)
		if score > scoreExactFull {
			score = scoreExactFull
		}
		merge(e.idForSlug(slug), score, "alias", fmt.Sprintf("%d term match(es)", hits))
	}
}

// contentSearch intersects index posting lists and scores candidates by
// matched-token ratio, bumped when a query term appears in the name.
func (e *Engine) contentSearch(text string, synonyms bool, merge func(id string, score float64, source, reason string)) {
	if e.ix == nil {
		return
	}
	toks := e.ix.QueryTokens(text, synonyms)
	if len(toks) == 0 {
		return
	}
	ids := e.ix.Search(toks, index.ModeAnd)
	if len(ids) == 0 {
		return
	}
	matched := e.ix.Matched(toks)
	terms := strings.Fields(strings.ToLower(text))
	for _, id := range ids {
		score := contentBase * float64(matched[id]) / float64(len(toks))
		_, slug, err := types.SplitID(id)
		if err == nil {
			name := strings.ReplaceAll(slug, "-", " ")
			for _, term := range terms {
				if strings.Contains(slug, term) || strings.Contains(name, term) {
					if score < contentNameBump {
						score = contentNameBump
					}
					break
				}
			}
		}
		merge(id, score, "content", fmt.Sprintf("%d/%d tokens", matched[id], len(toks)))
	}
}

// expand adds graph neighbors hop by hop. Ids present before a hop never
// get revisited, so cycles terminate and seeds are never demoted; a
// neighbor reached from several seeds in the same hop is merged per edge
// and keeps the highest score.
func (e *Engine) expand(seeds map[string]*types.QueryResult, depth int, merge func(id string, score float64, source, reason string)) {
	frontier := make([]string, 0, len(seeds))
	for id := range seeds {
		frontier = append(frontier, id)
	}
	sort.Strings(frontier)

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		before := make(map[string]bool, len(seeds))
		for id := range seeds {
			before[id] = true
		}
		next := make(map[string]bool)
		for _, id := range frontier {
			seed, ok := seeds[id]
			if !ok {
				continue
			}
			rel, err := e.st.PathForID(id)
			if err != nil {
				continue // registry entry without a live file; nothing to expand
			}
			ent, _, err := e.st.ReadEntity(rel)
			if err != nil {
				continue
			}
			for _, r := range ent.Relationships {
				target := r.Target
				if !types.IsCanonicalID(target) {
					continue
				}
				if before[target] {
					continue
				}
				decay := defaultEdgeDecay
				if r.Strength != nil {
					decay = *r.Strength
				}
				merge(target, seed.Score*decay, "graph",
					fmt.Sprintf("neighbor of %s via %s", id, r.Type))
				next[target] = true
			}
		}
		frontier = frontier[:0]
		for id := range next {
			frontier = append(frontier, id)
		}
		sort.Strings(frontier)
	}
}
