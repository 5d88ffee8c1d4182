// Package index maintains the inverted content index: stemmed token ->
// sorted posting list of canonical ids, built from entity bodies.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// FileName is the index filename under the brain root.
const FileName = ".brain_index.json"

// Meta describes one build of the index.
type Meta struct {
	Built         string   `json:"built"`
	BrainPath     string   `json:"brain_path"`
	EntityCount   int      `json:"entity_count"`
	TokenCount    int      `json:"token_count"`
	TotalPostings int      `json:"total_postings"`
	Errors        []string `json:"errors"`
}

// Index is the persisted structure: meta plus token -> posting list.
type Index struct {
	Meta     Meta                `json:"meta"`
	Postings map[string][]string `json:"index"`

	stopWords map[string]bool
	synonyms  map[string][]string
}

// Options tunes a build or a loaded index.
type Options struct {
	StopWords map[string]bool     // nil = built-in list
	Synonyms  map[string][]string // nil = built-in thesaurus
}

// Build walks the store and produces a fresh index. Per-entity problems
// are collected into Meta.Errors, never raised.
func Build(st *store.Store, opts Options) (*Index, error) {
	ix := &Index{
		Postings:  make(map[string][]string),
		stopWords: opts.StopWords,
		synonyms:  opts.Synonyms,
	}
	ix.Meta.BrainPath = st.Root()
	ix.Meta.Errors = []string{}

	rels, err := st.List()
	if err != nil {
		return nil, err
	}
	posted := make(map[string]map[string]bool) // token -> id set
	for _, rel := range rels {
		e, f, err := st.ReadEntity(rel)
		if err != nil {
			ix.Meta.Errors = append(ix.Meta.Errors, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		if e.ID == "" {
			continue
		}
		ix.Meta.EntityCount++
		for _, tok := range Tokenize(f.Body(), ix.stopWords) {
			if posted[tok] == nil {
				posted[tok] = make(map[string]bool)
			}
			posted[tok][e.ID] = true
		}
	}
	for tok, ids := range posted {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		ix.Postings[tok] = list
		ix.Meta.TotalPostings += len(list)
	}
	ix.Meta.TokenCount = len(ix.Postings)
	ix.Meta.Built = types.FormatTimestamp(time.Now())
	return ix, nil
}

// Save writes the index atomically to the brain root.
func (ix *Index) Save(root string) error {
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return store.WriteFileAtomic(filepath.Join(root, FileName), data)
}

// Load reads a previously built index.
func Load(root string, opts Options) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: content index (run `brain index build` first)", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("%w: content index: %v", types.ErrMalformed, err)
	}
	if ix.Postings == nil {
		ix.Postings = make(map[string][]string)
	}
	ix.stopWords = opts.StopWords
	ix.synonyms = opts.Synonyms
	return &ix, nil
}
