package index

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pmbrain/brain/internal/store"
)

func TestStem(t *testing.T) {
	tests := []struct{ in, want string }{
		{"caresses", "caress"},
		{"ponies", "poni"},
		{"cats", "cat"},
		{"agreed", "agree"},
		{"feed", "feed"},
		{"plastered", "plaster"},
		{"motoring", "motor"},
		{"conflated", "conflate"},
		{"hopping", "hop"},
		{"falling", "fall"},
		{"sized", "size"},
		{"relational", "relate"},
		{"conditional", "condition"},
		{"valenci", "valence"},
		{"hopefulness", "hope"},
		{"activate", "activate"},
		{"platform", "platform"},
		{"pricing", "pric"},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStemStable(t *testing.T) {
	// Stemming a stemmed token must not keep shrinking it.
	for _, w := range []string{"pricing", "experiments", "relational", "growth"} {
		once := Stem(w)
		if twice := Stem(once); twice != once {
			t.Errorf("Stem not stable for %q: %q -> %q", w, once, twice)
		}
	}
}

func TestStripMarkup(t *testing.T) {
	in := "# Heading\n\nSome *bold* text with [a link](https://x.test) and " +
		"[[Growth Platform]] plus `inline code` and\n```\nfenced code\n```\n"
	out := StripMarkup(in)
	for _, banned := range []string{"#", "*", "](", "`", "fenced"} {
		if containsStr(out, banned) {
			t.Errorf("StripMarkup left %q in %q", banned, out)
		}
	}
	for _, kept := range []string{"Heading", "a link", "Growth Platform"} {
		if !containsStr(out, kept) {
			t.Errorf("StripMarkup dropped %q from %q", kept, out)
		}
	}
}

func containsStr(haystack, needle string) bool {
	return len(needle) > 0 && len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func TestTokenizeDropsStopWordsAndShortTokens(t *testing.T) {
	toks := Tokenize("the team is at an ok growth platform for experiments", nil)
	for _, tok := range toks {
		if len(tok) < minTokenLen {
			t.Errorf("short token %q survived", tok)
		}
		if defaultStopWords[tok] {
			t.Errorf("stop word %q survived", tok)
		}
	}
	want := []string{"team", "growth", "platform", "experiment"}
	if !reflect.DeepEqual(toks, want) {
		t.Errorf("Tokenize = %v, want %v", toks, want)
	}
}

func entityFile(id, name, body string) string {
	return "---\nschema_version: 2\nid: " + id + "\ntype: project\nversion: 1\n" +
		"created: 2025-01-10T09:00:00Z\nupdated: 2025-01-10T09:00:00Z\nname: " + name +
		"\n---\n\n" + body + "\n"
}

func buildTestIndex(t *testing.T) (*Index, *store.Store) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"Projects/Alpha.md": entityFile("entity/project/alpha", "Alpha", "Pricing experiments for checkout flows."),
		"Projects/Beta.md":  entityFile("entity/project/beta", "Beta", "Checkout latency work and pricing analysis."),
		"Projects/Gamma.md": entityFile("entity/project/gamma", "Gamma", "Unrelated brand campaign notes."),
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	st := store.New(root)
	ix, err := Build(st, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix, st
}

func TestBuildAndSearch(t *testing.T) {
	ix, _ := buildTestIndex(t)

	if ix.Meta.EntityCount != 3 {
		t.Errorf("EntityCount = %d", ix.Meta.EntityCount)
	}
	if ix.Meta.TokenCount == 0 || ix.Meta.TotalPostings == 0 {
		t.Errorf("meta = %+v", ix.Meta)
	}

	and := ix.Search(ix.QueryTokens("pricing checkout", false), ModeAnd)
	want := []string{"entity/project/alpha", "entity/project/beta"}
	if !reflect.DeepEqual(and, want) {
		t.Errorf("and search = %v, want %v", and, want)
	}

	or := ix.Search(ix.QueryTokens("pricing brand", false), ModeOr)
	if len(or) != 3 {
		t.Errorf("or search = %v", or)
	}

	// Unknown token in and-mode empties the result.
	if got := ix.Search(ix.QueryTokens("pricing zebra", false), ModeAnd); got != nil {
		t.Errorf("and with unknown term = %v, want nil", got)
	}

	if got := ix.Search(nil, ModeAnd); got != nil {
		t.Errorf("empty terms = %v, want nil", got)
	}
}

func TestSynonymExpansion(t *testing.T) {
	ix, _ := buildTestIndex(t)
	toks := ix.QueryTokens("experiment", true)
	if len(toks) < 2 {
		t.Errorf("expected expansion, got %v", toks)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ix, st := buildTestIndex(t)
	if err := ix.Save(st.Root()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(st.Root(), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Postings, ix.Postings) {
		t.Error("postings changed across save/load")
	}
	// Rebuild over an unchanged store matches the reloaded index.
	again, err := Build(st, Options{})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !reflect.DeepEqual(again.Postings, loaded.Postings) {
		t.Error("rebuild diverged from persisted index")
	}
}

func TestMatchedCounts(t *testing.T) {
	ix, _ := buildTestIndex(t)
	counts := ix.Matched(ix.QueryTokens("pricing checkout", false))
	if counts["entity/project/alpha"] != 2 {
		t.Errorf("alpha matched = %d, want 2", counts["entity/project/alpha"])
	}
	if counts["entity/project/gamma"] != 0 {
		t.Errorf("gamma matched = %d, want 0", counts["entity/project/gamma"])
	}
}
