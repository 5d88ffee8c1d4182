// Package migrate rewrites v1 entity files to the v2 schema. A run walks
// DETECT -> BACKUP -> MIGRATE -> REBUILD_REGISTRY -> SNAPSHOT -> VERIFY;
// any failure after the backup restores the store from it.
package migrate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/pmbrain/brain/internal/registry"
	"github.com/pmbrain/brain/internal/snapshot"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
	"github.com/pmbrain/brain/internal/validation"
)

// BackupDir is the backups directory name under the brain root.
const BackupDir = ".backups"

// Options controls a migration run.
type Options struct {
	// DryRun detects and reports without touching any file.
	DryRun bool
	// SkipBackup migrates without a pre-migration backup. Rollback is
	// then impossible, so verify failures become fatal errors.
	SkipBackup bool
	// Force keeps the migrated state even when verification finds
	// errors, instead of rolling back.
	Force bool

	now time.Time // test override
}

// Report describes the outcome of one run.
type Report struct {
	V1Detected int      `json:"v1_detected"`
	Migrated   int      `json:"migrated"`
	Skipped    int      `json:"skipped"`
	Malformed  []string `json:"malformed,omitempty"`
	BackupPath string   `json:"backup_path,omitempty"`
	RolledBack bool     `json:"rolled_back"`
	DryRun     bool     `json:"dry_run"`
}

// Migrator runs schema migrations over one store.
type Migrator struct {
	st *store.Store
}

// New returns a migrator over st.
func New(st *store.Store) *Migrator {
	return &Migrator{st: st}
}

// Run executes the migration state machine.
func (m *Migrator) Run(opts Options) (*Report, error) {
	lock := flock.New(filepath.Join(m.st.Root(), ".migrate.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring migration lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: another migration is running", types.ErrConflict)
	}
	defer func() { _ = lock.Unlock() }()

	rep := &Report{DryRun: opts.DryRun}

	// DETECT
	rels, err := m.st.List()
	if err != nil {
		return nil, err
	}
	var v1 []string
	for _, rel := range rels {
		f, err := m.st.Read(rel)
		if err != nil {
			rep.Malformed = append(rep.Malformed, rel)
			continue
		}
		switch validation.DetectFormat(f) {
		case validation.FormatV1:
			v1 = append(v1, rel)
		case validation.FormatMalformed:
			rep.Malformed = append(rep.Malformed, rel)
		default:
			rep.Skipped++
		}
	}
	rep.V1Detected = len(v1)
	if len(v1) == 0 || opts.DryRun {
		return rep, nil
	}

	// BACKUP
	if !opts.SkipBackup {
		backup, err := m.Backup(opts.now)
		if err != nil {
			return rep, fmt.Errorf("backup: %w", err)
		}
		rep.BackupPath = backup
	}

	fail := func(stage string, cause error) (*Report, error) {
		if rep.BackupPath != "" && !opts.Force {
			if rbErr := m.Rollback(rep.BackupPath); rbErr != nil {
				return rep, fmt.Errorf("%s: %v (rollback also failed: %w)", stage, cause, rbErr)
			}
			rep.RolledBack = true
			rep.Migrated = 0
		}
		return rep, fmt.Errorf("%s: %w", stage, cause)
	}

	// MIGRATE
	now := opts.now
	if now.IsZero() {
		now = time.Now()
	}
	for _, rel := range v1 {
		if err := m.migrateFile(rel, now); err != nil {
			return fail("migrating "+rel, err)
		}
		rep.Migrated++
	}

	// REBUILD_REGISTRY
	if _, err := registry.NewBuilder(m.st).Build(registry.Options{}); err != nil {
		return fail("rebuilding registry", err)
	}

	// SNAPSHOT
	if _, err := snapshot.NewManager(m.st).Create(snapshot.Options{}); err != nil {
		return fail("snapshotting", err)
	}

	// VERIFY
	if err := m.Verify(); err != nil {
		return fail("verifying", err)
	}
	return rep, nil
}

// migrateFile rewrites one v1 file in place: the minimum v2 header fields
// are set, the body is preserved verbatim, and a migration event records
// the rewrite.
func (m *Migrator) migrateFile(rel string, now time.Time) error {
	f, err := m.st.Read(rel)
	if err != nil {
		return err
	}

	dir, file := filepath.Split(filepath.FromSlash(rel))
	typ := types.TypeForDir(filepath.Base(filepath.Clean(dir)))
	if typ == "" {
		typ = types.TypeProject
	}
	stem := strings.TrimSuffix(file, filepath.Ext(file))

	name := stem
	for _, key := range []string{"name", "title"} {
		if node, ok := f.Get(key); ok && node.Value != "" {
			name = node.Value
			break
		}
	}
	id := types.MakeID(typ, types.Slugify(stem))
	ts := types.FormatTimestamp(now)

	created := ts
	if node, ok := f.Get("created"); ok && node.Value != "" {
		if _, err := types.ParseTimestamp(node.Value); err == nil {
			created = node.Value
		}
	}

	fields := []struct {
		key   string
		value interface{}
	}{
		{"schema_version", 2},
		{"id", id},
		{"type", string(typ)},
		{"version", 1},
		{"created", created},
		{"updated", ts},
		{"name", name},
	}
	for _, fv := range fields {
		if err := f.Set(fv.key, fv.value); err != nil {
			return err
		}
	}
	f.Delete("title")

	ev := types.Event{
		EventID:   uuid.NewString(),
		Timestamp: ts,
		Type:      types.EventMigration,
		Actor:     "system/migrator",
		Message:   "migrated v1 -> v2",
		Changes: []types.Change{
			{Field: "schema_version", Operation: "set", Value: 2},
			{Field: "id", Operation: "set", Value: id},
		},
	}
	var events []types.Event
	if node, ok := f.Get("events"); ok {
		_ = node.Decode(&events)
	}
	events = append(events, ev)
	if err := f.Set("events", events); err != nil {
		return err
	}
	return m.st.Write(rel, f)
}

// Backup copies every entity directory plus the registry into a
// timestamped directory under .backups/ and returns its path.
func (m *Migrator) Backup(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now()
	}
	dst := filepath.Join(m.st.Root(), BackupDir, now.UTC().Format("20060102-150405"))
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, t := range types.AllEntityTypes {
		src := filepath.Join(m.st.Root(), t.Dir())
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyTree(src, filepath.Join(dst, t.Dir())); err != nil {
			return "", err
		}
	}
	regSrc := filepath.Join(m.st.Root(), registry.FileName)
	if _, err := os.Stat(regSrc); err == nil {
		if err := copyFile(regSrc, filepath.Join(dst, registry.FileName)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// Rollback restores entity directories and the registry from a backup.
func (m *Migrator) Rollback(backupPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: backup %s", types.ErrNotFound, backupPath)
	}
	for _, t := range types.AllEntityTypes {
		src := filepath.Join(backupPath, t.Dir())
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(m.st.Root(), t.Dir())
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
		if err := copyTree(src, dst); err != nil {
			return err
		}
	}
	regSrc := filepath.Join(backupPath, registry.FileName)
	if _, err := os.Stat(regSrc); err == nil {
		if err := copyFile(regSrc, filepath.Join(m.st.Root(), registry.FileName)); err != nil {
			return err
		}
	}
	return nil
}

// LatestBackup returns the newest backup directory, or ErrNotFound.
func (m *Migrator) LatestBackup() (string, error) {
	entries, err := os.ReadDir(filepath.Join(m.st.Root(), BackupDir))
	if os.IsNotExist(err) || len(entries) == 0 {
		return "", fmt.Errorf("%w: no backups", types.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no backups", types.ErrNotFound)
	}
	sort.Strings(names)
	return filepath.Join(m.st.Root(), BackupDir, names[len(names)-1]), nil
}

// Verify re-validates the whole store and fails when any entity still
// carries errors or remains in v1 format.
func (m *Migrator) Verify() error {
	results, sum, err := validation.ValidateAll(m.st)
	if err != nil {
		return err
	}
	if sum.TotalErrors > 0 || sum.V1Format > 0 {
		var first string
		for _, res := range results {
			if len(res.Errors) > 0 {
				first = res.Path + ": " + res.Errors[0].Message
				break
			}
			if res.Format == "v1" && first == "" {
				first = res.Path + ": still v1"
			}
		}
		return fmt.Errorf("%w: %d errors, %d v1 entities (%s)",
			types.ErrMalformed, sum.TotalErrors, sum.V1Format, first)
	}
	return nil
}

// Status summarizes schema state without changing anything.
type Status struct {
	V2        int    `json:"v2"`
	V1        int    `json:"v1"`
	Malformed int    `json:"malformed"`
	Backups   int    `json:"backups"`
	Latest    string `json:"latest_backup,omitempty"`
}

// Status scans the store and the backups directory.
func (m *Migrator) Status() (*Status, error) {
	rels, err := m.st.List()
	if err != nil {
		return nil, err
	}
	var s Status
	for _, rel := range rels {
		f, err := m.st.Read(rel)
		if err != nil {
			s.Malformed++
			continue
		}
		switch validation.DetectFormat(f) {
		case validation.FormatV2:
			s.V2++
		case validation.FormatV1:
			s.V1++
		default:
			s.Malformed++
		}
	}
	if latest, err := m.LatestBackup(); err == nil {
		s.Latest = latest
	}
	if entries, err := os.ReadDir(filepath.Join(m.st.Root(), BackupDir)); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				s.Backups++
			}
		}
	}
	return &s, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
