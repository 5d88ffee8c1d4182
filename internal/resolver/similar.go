package resolver

import (
	"sort"
	"strings"
)

// Match is one approximate resolution candidate. FindSimilar feeds
// reporting only; it never resolves implicitly.
type Match struct {
	ID    string  `json:"id"`
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
}

// FindSimilar ranks references near ref. Scoring order: equality beats
// substring containment beats common-prefix ratio beats token-set
// overlap.
func (r *Resolver) FindSimilar(ref string, limit int) []Match {
	needle := strings.ToLower(strings.TrimSpace(ref))
	if needle == "" {
		return nil
	}
	needleSlug := strings.ReplaceAll(strings.ReplaceAll(needle, " ", "-"), "_", "-")

	best := make(map[string]Match) // id -> best-scoring match
	for cand, id := range r.refs {
		score := similarity(needleSlug, cand)
		if score <= 0 {
			continue
		}
		if prev, ok := best[id]; !ok || score > prev.Score {
			best[id] = Match{ID: id, Ref: cand, Score: score}
		}
	}

	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func similarity(needle, cand string) float64 {
	cand = strings.ReplaceAll(strings.ReplaceAll(cand, " ", "-"), "_", "-")
	if needle == cand {
		return 1.0
	}
	if strings.Contains(cand, needle) || strings.Contains(needle, cand) {
		return 0.9
	}
	if ratio := prefixRatio(needle, cand); ratio > 0.3 {
		return ratio * 0.8
	}
	if overlap := tokenOverlap(needle, cand); overlap > 0.3 {
		return overlap * 0.6
	}
	return 0
}

func prefixRatio(a, b string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	common := 0
	for common < n && a[common] == b[common] {
		common++
	}
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	if max == 0 {
		return 0
	}
	return float64(common) / float64(max)
}

func tokenOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if tb[tok] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == '.'
	}) {
		if tok != "" {
			out[tok] = true
		}
	}
	return out
}
