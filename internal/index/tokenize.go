package index

import (
	"regexp"
	"strings"
)

// minTokenLen drops noise tokens; anything shorter never enters the index.
const minTokenLen = 3

// defaultStopWords is the built-in stop-word list. Overridable via the
// index.stopwords config key.
var defaultStopWords = map[string]bool{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can",
		"had", "her", "was", "one", "our", "out", "has", "have", "been",
		"were", "they", "their", "them", "this", "that", "these", "those",
		"with", "from", "into", "onto", "over", "under", "about", "after",
		"before", "between", "during", "through", "will", "would", "could",
		"should", "shall", "may", "might", "must", "its", "his", "she",
		"him", "who", "whom", "which", "what", "when", "where", "why",
		"how", "than", "then", "also", "just", "only", "very", "some",
		"any", "each", "more", "most", "other", "such", "own", "same",
		"too", "does", "did", "done", "being", "both", "per", "via",
	} {
		defaultStopWords[w] = true
	}
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]*`")
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	wikiLinkRe   = regexp.MustCompile(`\[\[([^\]]*)\]\]`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRe   = regexp.MustCompile(`[*_]{1,3}`)
	wordRe       = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*`)
)

// StripMarkup removes markdown structure from body text, keeping link
// labels and heading words.
func StripMarkup(text string) string {
	text = codeFenceRe.ReplaceAllString(text, " ")
	text = inlineCodeRe.ReplaceAllString(text, " ")
	text = wikiLinkRe.ReplaceAllString(text, "$1")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "")
	return text
}

// Tokenize runs the full pipeline: strip markup, split on word
// boundaries, lower-case, drop stop-words and short tokens, stem.
// The returned tokens are deduplicated, preserving first-seen order.
func Tokenize(text string, stopWords map[string]bool) []string {
	if stopWords == nil {
		stopWords = defaultStopWords
	}
	seen := make(map[string]bool)
	var out []string
	for _, raw := range wordRe.FindAllString(StripMarkup(text), -1) {
		tok := strings.ToLower(raw)
		if len(tok) < minTokenLen || stopWords[tok] {
			continue
		}
		stemmed := Stem(tok)
		if len(stemmed) < minTokenLen || seen[stemmed] {
			continue
		}
		seen[stemmed] = true
		out = append(out, stemmed)
	}
	return out
}
