package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/pmbrain/brain/internal/config"
	"github.com/pmbrain/brain/internal/index"
	"github.com/pmbrain/brain/internal/registry"
	"github.com/pmbrain/brain/internal/resolver"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Exit codes: 0 success, 1 expected domain failure, 2 internal error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrMalformed),
		errors.Is(err, types.ErrConflict),
		errors.Is(err, types.ErrPrecondition),
		errors.Is(err, types.ErrCanceled):
		return 1
	}
	return 2
}

func openStore() *store.Store {
	return store.New(config.Root())
}

func currentActor() string {
	return config.Actor(actorFlag)
}

// openResolver returns a resolver backed by the on-disk cache, falling
// back to a full rebuild when the cache is cold or expired.
func openResolver(st *store.Store, force bool) (*resolver.Resolver, error) {
	res := resolver.New(st)
	ttl := config.GetDuration("resolver.cache-ttl")
	if err := res.Load(ttl, force); err != nil {
		return nil, err
	}
	return res, nil
}

// openEngine loads the registry and content index, rebuilding in memory
// when either is missing from disk.
func openEngine(st *store.Store) (*types.Registry, *index.Index, error) {
	reg, err := registry.Load(st.Root())
	if err != nil {
		reg, err = registry.NewBuilder(st).Build(registry.Options{DryRun: true})
		if err != nil {
			return nil, nil, fmt.Errorf("loading registry: %w", err)
		}
	}
	ixOpts := indexOptions()
	ix, err := index.Load(st.Root(), ixOpts)
	if err != nil {
		ix, err = index.Build(st, ixOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("loading index: %w", err)
		}
	}
	return reg, ix, nil
}

func indexOptions() index.Options {
	opts := index.Options{}
	if words := config.GetStringSlice("index.stopwords"); len(words) > 0 {
		opts.StopWords = make(map[string]bool, len(words))
		for _, w := range words {
			opts.StopWords[w] = true
		}
	}
	if syn := config.GetStringMapString("index.synonyms"); len(syn) > 0 {
		opts.Synonyms = make(map[string][]string, len(syn))
		for k, v := range syn {
			opts.Synonyms[k] = []string{v}
		}
	}
	return opts
}

// entityPath maps a user-supplied reference (id, slug, alias, path) to a
// store-relative entity path.
func entityPath(st *store.Store, res *resolver.Resolver, ref string) (string, error) {
	id := res.Resolve(ref)
	if id == "" {
		return "", fmt.Errorf("%w: %q does not resolve to an entity", types.ErrNotFound, ref)
	}
	return st.PathForID(id)
}

func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(2)
	}
}

// parseTimeFlag accepts RFC3339, YYYY-MM-DD, or natural language
// ("last tuesday", "2 weeks ago").
func parseTimeFlag(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err == nil && r != nil {
		return r.Time, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
