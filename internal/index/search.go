package index

import "sort"

// Mode selects posting-list combination.
type Mode string

const (
	ModeAnd Mode = "and"
	ModeOr  Mode = "or"
)

// defaultSynonyms is the built-in domain thesaurus used for optional
// query expansion. Overridable via the index.synonyms config key.
var defaultSynonyms = map[string][]string{
	"launch":     {"ship", "release", "rollout"},
	"bug":        {"defect", "regression"},
	"metric":     {"kpi", "measure"},
	"experiment": {"test", "abtest"},
	"customer":   {"user", "client"},
	"revenue":    {"arr", "mrr"},
	"goal":       {"okr", "objective"},
	"meeting":    {"sync", "standup"},
	"spec":       {"prd", "brief"},
	"deadline":   {"eta", "duedate"},
}

// QueryTokens runs the query through the same tokenize/stem pipeline as
// indexed bodies, optionally expanding each term through the thesaurus.
func (ix *Index) QueryTokens(query string, expand bool) []string {
	toks := Tokenize(query, ix.stopWords)
	if !expand {
		return toks
	}
	syn := ix.synonyms
	if syn == nil {
		syn = defaultSynonyms
	}
	seen := make(map[string]bool, len(toks))
	var out []string
	add := func(tok string) {
		if tok != "" && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	for _, tok := range toks {
		add(tok)
		for key, alts := range syn {
			stemmedKey := Stem(key)
			if tok == stemmedKey {
				for _, alt := range alts {
					add(Stem(alt))
				}
			}
		}
	}
	return out
}

// Search combines posting lists for the already-stemmed terms. In "and"
// mode an unknown term empties the result; "or" unions. Results are
// sorted canonical ids.
func (ix *Index) Search(terms []string, mode Mode) []string {
	if len(terms) == 0 {
		return nil
	}
	switch mode {
	case ModeOr:
		set := make(map[string]bool)
		for _, term := range terms {
			for _, id := range ix.Postings[term] {
				set[id] = true
			}
		}
		return sortedIDs(set)
	default: // and
		var result map[string]bool
		for _, term := range terms {
			postings := ix.Postings[term]
			if len(postings) == 0 {
				return nil
			}
			cur := make(map[string]bool, len(postings))
			for _, id := range postings {
				if result == nil || result[id] {
					cur[id] = true
				}
			}
			result = cur
			if len(result) == 0 {
				return nil
			}
		}
		return sortedIDs(result)
	}
}

// Matched reports, per candidate id, how many of the terms hit it.
// Used by the query engine for proportional content scoring.
func (ix *Index) Matched(terms []string) map[string]int {
	counts := make(map[string]int)
	for _, term := range terms {
		for _, id := range ix.Postings[term] {
			counts[id]++
		}
	}
	return counts
}

func sortedIDs(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
