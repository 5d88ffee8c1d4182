package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pmbrain/brain/internal/types"
)

// reservedNames are non-entity files that live alongside entities and
// must never be enumerated as entities.
var reservedNames = map[string]bool{
	"readme.md":   true,
	"index.md":    true,
	"registry.md": true,
	"schema.md":   true,
	"template.md": true,
}

// Store is the file-backed entity store rooted at a brain directory.
// Entities live under per-type directories (People/, Projects/, ...);
// everything dot- or underscore-prefixed is engine state, not an entity.
type Store struct {
	root string

	mu      sync.Mutex
	idPaths map[string]string // canonical id -> relative path, lazily built
}

// New returns a store over the given brain root.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the brain root directory.
func (s *Store) Root() string { return s.root }

// Path returns the absolute path for a store-relative entity path.
func (s *Store) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func reserved(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	return reservedNames[strings.ToLower(name)]
}

// List enumerates every entity file as a sorted slash-relative path.
func (s *Store) List() ([]string, error) {
	var out []string
	for _, t := range types.AllEntityTypes {
		dir := filepath.Join(s.root, t.Dir())
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", t.Dir(), err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || reserved(name) {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(name), ".md") {
				continue
			}
			out = append(out, t.Dir()+"/"+name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Read loads one entity file. Returns ErrNotFound when the file is
// absent and ErrMalformed when the front-matter cannot be parsed; a
// half-written header is never returned as a half-parsed entity.
func (s *Store) Read(rel string) (*File, error) {
	data, err := os.ReadFile(s.Path(rel))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, rel)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	return f, nil
}

// ReadEntity reads and decodes one entity, returning both views.
func (s *Store) ReadEntity(rel string) (*types.Entity, *File, error) {
	f, err := s.Read(rel)
	if err != nil {
		return nil, nil, err
	}
	e, err := f.Entity()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", rel, err)
	}
	return e, f, nil
}

// Write persists a file as a whole-file atomic rewrite (temp + rename),
// so readers observe either the old or the new content, never a tear.
func (s *Store) Write(rel string, f *File) error {
	data, err := f.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", rel, err)
	}
	path := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	s.mu.Lock()
	s.idPaths = nil // stale after any write
	s.mu.Unlock()
	return nil
}

// PathForID finds the relative path of the entity carrying a canonical
// id. The mapping is built once per store and invalidated on writes.
func (s *Store) PathForID(id string) (string, error) {
	s.mu.Lock()
	cached := s.idPaths
	s.mu.Unlock()
	if cached == nil {
		built, err := s.buildIDPaths()
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.idPaths = built
		s.mu.Unlock()
		cached = built
	}
	rel, ok := cached[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return rel, nil
}

// Exists reports whether an entity with the canonical id is on disk.
func (s *Store) Exists(id string) (bool, error) {
	_, err := s.PathForID(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Store) buildIDPaths() (map[string]string, error) {
	rels, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rels))
	for _, rel := range rels {
		f, err := s.Read(rel)
		if err != nil || !f.HasHeader() {
			continue // malformed and header-less files are not addressable by id
		}
		if idNode, ok := f.Get("id"); ok && idNode.Value != "" {
			out[idNode.Value] = rel
		}
	}
	return out, nil
}
