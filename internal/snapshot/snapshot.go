// Package snapshot creates and manages compressed point-in-time copies
// of the registry (and optionally all entity headers) under
// <root>/.snapshots/<YYYY-MM-DD>/snapshot-<HHMMSS>.json[.gz].
package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pmbrain/brain/internal/registry"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Dir is the snapshots directory name under the brain root.
const Dir = ".snapshots"

// latestPointer is the name of the pointer to the newest snapshot.
const latestPointer = "latest"

// Document is the persisted snapshot payload.
type Document struct {
	Created  string                   `json:"created"`
	Registry *types.Registry          `json:"registry"`
	Entities map[string]*types.Entity `json:"entities,omitempty"`
}

// Manager creates and retrieves snapshots for one brain root.
type Manager struct {
	st *store.Store
}

// NewManager returns a manager over the store.
func NewManager(st *store.Store) *Manager {
	return &Manager{st: st}
}

func (m *Manager) dir() string {
	return filepath.Join(m.st.Root(), Dir)
}

// Options controls snapshot creation.
type Options struct {
	// IncludeEntities dumps every entity header into the snapshot.
	IncludeEntities bool
	// Plain disables gzip compression.
	Plain bool

	now time.Time // test override
}

// Create writes one snapshot and repoints latest at it. The registry is
// loaded from disk; callers rebuild it first when freshness matters.
func (m *Manager) Create(opts Options) (string, error) {
	reg, err := registry.Load(m.st.Root())
	if err != nil {
		return "", err
	}
	doc := Document{
		Created:  types.FormatTimestamp(timeOrNow(opts.now)),
		Registry: reg,
	}
	if opts.IncludeEntities {
		doc.Entities = make(map[string]*types.Entity)
		rels, err := m.st.List()
		if err != nil {
			return "", err
		}
		for _, rel := range rels {
			e, _, err := m.st.ReadEntity(rel)
			if err != nil || e.ID == "" {
				continue
			}
			doc.Entities[e.ID] = e
		}
	}

	now := timeOrNow(opts.now)
	dayDir := filepath.Join(m.dir(), now.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot dir: %w", err)
	}
	name := "snapshot-" + now.UTC().Format("150405") + ".json"
	if !opts.Plain {
		name += ".gz"
	}
	path := filepath.Join(dayDir, name)

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	if !opts.Plain {
		data, err = gzipBytes(data)
		if err != nil {
			return "", err
		}
	}
	if err := store.WriteFileAtomic(path, data); err != nil {
		return "", err
	}

	rel, _ := filepath.Rel(m.dir(), path)
	if err := store.WriteFileAtomic(filepath.Join(m.dir(), latestPointer), []byte(filepath.ToSlash(rel)+"\n")); err != nil {
		return "", err
	}
	return path, nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Read loads one snapshot file, decompressing when needed.
func Read(path string) (*Document, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: snapshot %s", types.ErrNotFound, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing snapshot: %w", err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", types.ErrMalformed, err)
	}
	return &doc, nil
}

// Latest returns the path the latest pointer refers to.
func (m *Manager) Latest() (string, error) {
	data, err := os.ReadFile(filepath.Join(m.dir(), latestPointer))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: no snapshots yet", types.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	rel := strings.TrimSpace(string(data))
	return filepath.Join(m.dir(), filepath.FromSlash(rel)), nil
}

// Info describes one snapshot on disk.
type Info struct {
	Date string `json:"date"`
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// List enumerates snapshots, oldest day first, oldest file first.
func (m *Manager) List() ([]Info, error) {
	days, err := os.ReadDir(m.dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(m.dir(), day.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasPrefix(f.Name(), "snapshot-") {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			out = append(out, Info{
				Date: day.Name(),
				Name: f.Name(),
				Path: filepath.Join(m.dir(), day.Name(), f.Name()),
				Size: info.Size(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get returns the closest snapshot at or before the given day: the last
// snapshot of that day when one exists, else the newest prior day's.
func (m *Manager) Get(date string) (string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("%w: bad date %q (want YYYY-MM-DD)", types.ErrMalformed, date)
	}
	all, err := m.List()
	if err != nil {
		return "", err
	}
	best := ""
	for _, info := range all {
		if info.Date <= date {
			best = info.Path // list is ordered, so the last match wins
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no snapshot at or before %s", types.ErrNotFound, date)
	}
	return best, nil
}
