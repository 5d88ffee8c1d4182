package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/pmbrain/brain/internal/registry"
	"github.com/pmbrain/brain/internal/types"
)

// CleanupOptions controls snapshot retention.
type CleanupOptions struct {
	// RetentionDays keeps snapshots newer than this many days.
	RetentionDays int
	// KeepMonthly retains the first snapshot of each month indefinitely.
	KeepMonthly bool
	// DryRun reports deletions without performing them.
	DryRun bool

	now time.Time // test override
}

// CleanupResult reports what Cleanup removed (or would remove).
type CleanupResult struct {
	Removed []string `json:"removed"`
	Kept    int      `json:"kept"`
}

// Cleanup prunes expired snapshots under an exclusive lock so two prune
// runs never race over the same day directories.
func (m *Manager) Cleanup(opts CleanupOptions) (*CleanupResult, error) {
	if opts.RetentionDays <= 0 {
		return nil, fmt.Errorf("%w: retention must be positive", types.ErrPrecondition)
	}
	if err := os.MkdirAll(m.dir(), 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(m.dir(), ".cleanup.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring snapshot lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: another cleanup is running", types.ErrConflict)
	}
	defer func() { _ = lock.Unlock() }()

	now := timeOrNow(opts.now).UTC()
	cutoff := now.AddDate(0, 0, -opts.RetentionDays).Format("2006-01-02")

	all, err := m.List()
	if err != nil {
		return nil, err
	}
	// First snapshot seen per month is the monthly keeper.
	monthly := make(map[string]string)
	for _, info := range all {
		month := info.Date[:7]
		if _, ok := monthly[month]; !ok {
			monthly[month] = info.Path
		}
	}

	res := &CleanupResult{}
	for _, info := range all {
		keep := info.Date >= cutoff
		if opts.KeepMonthly && monthly[info.Date[:7]] == info.Path {
			keep = true
		}
		if keep {
			res.Kept++
			continue
		}
		res.Removed = append(res.Removed, info.Path)
		if !opts.DryRun {
			if err := os.Remove(info.Path); err != nil {
				return res, fmt.Errorf("removing %s: %w", info.Path, err)
			}
		}
	}
	if !opts.DryRun {
		m.removeEmptyDayDirs()
		if err := m.repointLatest(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (m *Manager) removeEmptyDayDirs() {
	days, err := os.ReadDir(m.dir())
	if err != nil {
		return
	}
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		p := filepath.Join(m.dir(), day.Name())
		if entries, err := os.ReadDir(p); err == nil && len(entries) == 0 {
			_ = os.Remove(p)
		}
	}
}

// repointLatest rewrites the latest pointer after pruning; when no
// snapshots remain, the pointer is removed.
func (m *Manager) repointLatest() error {
	all, err := m.List()
	if err != nil {
		return err
	}
	ptr := filepath.Join(m.dir(), latestPointer)
	if len(all) == 0 {
		err := os.Remove(ptr)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	newest := all[len(all)-1]
	rel, _ := filepath.Rel(m.dir(), newest.Path)
	return writePointer(ptr, rel)
}

func writePointer(ptr, rel string) error {
	return os.WriteFile(ptr, []byte(filepath.ToSlash(rel)+"\n"), 0o644)
}

// RestoreRegistry writes the registry captured in the snapshot back to
// disk, replacing the current registry.yaml.
func (m *Manager) RestoreRegistry(path string) error {
	doc, err := Read(path)
	if err != nil {
		return err
	}
	if doc.Registry == nil {
		return fmt.Errorf("%w: snapshot %s has no registry", types.ErrMalformed, filepath.Base(path))
	}
	return registry.Save(doc.Registry, filepath.Join(m.st.Root(), registry.FileName))
}

// IsCompressed reports whether the snapshot at path is gzipped.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".gz")
}
