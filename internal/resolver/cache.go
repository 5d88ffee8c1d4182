package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pmbrain/brain/internal/store"
)

// CacheFile is the resolver cache filename under the brain root.
const CacheFile = ".resolver_cache.yaml"

type cacheDoc struct {
	Built    string            `yaml:"built"`
	Entities int               `yaml:"entities"`
	Refs     map[string]string `yaml:"refs"`
}

func (r *Resolver) cachePath() string {
	return filepath.Join(r.store.Root(), CacheFile)
}

// Load populates the resolver from the on-disk cache when it is fresh,
// and rebuilds (and re-saves) otherwise. A corrupt cache is rebuilt
// silently; cache trouble must never fail a lookup path.
func (r *Resolver) Load(ttl time.Duration, force bool) error {
	if !force {
		if ok := r.loadCache(ttl); ok {
			return nil
		}
	}
	if err := r.Build(); err != nil {
		return err
	}
	return r.Save()
}

func (r *Resolver) loadCache(ttl time.Duration) bool {
	data, err := os.ReadFile(r.cachePath())
	if err != nil {
		return false
	}
	var doc cacheDoc
	if err := yaml.Unmarshal(data, &doc); err != nil || doc.Refs == nil {
		return false
	}
	built, err := time.Parse(time.RFC3339, doc.Built)
	if err != nil || time.Since(built) > ttl {
		return false
	}
	r.refs = doc.Refs
	r.entities = doc.Entities
	r.built = built.UTC()
	return true
}

// Save persists the built map atomically.
func (r *Resolver) Save() error {
	doc := cacheDoc{
		Built:    r.built.Format(time.RFC3339),
		Entities: r.entities,
		Refs:     r.refs,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding resolver cache: %w", err)
	}
	return store.WriteFileAtomic(r.cachePath(), data)
}
