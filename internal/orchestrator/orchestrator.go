// Package orchestrator drives the source enrichers over their cached
// inboxes: parallel workers per batch, a sliding-window rate limit,
// per-entity write serialization, and an atomically checkpointed cursor
// so interrupted runs resume where they stopped.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/pmbrain/brain/internal/enrich"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// Defaults per the orchestration model.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 10
	DefaultRateLimit = 60 // records per minute
	rateWindow       = time.Minute
	maxRecordRetries = 3
)

// Options configures one run.
type Options struct {
	// Sources restricts the run; empty means every source in
	// declaration order.
	Sources        []string
	Workers        int
	BatchSize      int
	RateLimit      int
	CheckpointPath string
	Resume         bool
	DryRun         bool
	Logger         *log.Logger
}

// RecordError is one per-record failure; failures never abort the run.
type RecordError struct {
	Source string `json:"source"`
	Record string `json:"record"`
	Err    string `json:"error"`
}

// Report summarizes a run.
type Report struct {
	Processed      int           `json:"processed"`
	Successful     int           `json:"successful"`
	Failed         int           `json:"failed"`
	SourcesRun     []string      `json:"sources_run"`
	SourcesSkipped []string      `json:"sources_skipped,omitempty"`
	Errors         []RecordError `json:"errors,omitempty"`
	Canceled       bool          `json:"canceled,omitempty"`
}

// Orchestrator runs enrichment over one brain root.
type Orchestrator struct {
	st   *store.Store
	deps enrich.Deps
}

// New returns an orchestrator over the store with ready dependencies.
func New(st *store.Store, deps enrich.Deps) *Orchestrator {
	return &Orchestrator{st: st, deps: deps}
}

func (o *Orchestrator) inboxDir(source string) string {
	return filepath.Join(o.st.Root(), enrich.InboxDir, source)
}

// listRecords enumerates a source's cached record files, sorted by name.
func (o *Orchestrator) listRecords(source string) ([]string, error) {
	entries, err := os.ReadDir(o.inboxDir(source))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Run executes the enrichment pipeline. The returned report is valid
// even when err is non-nil (cancellation still reports progress).
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.CheckpointPath == "" {
		opts.CheckpointPath = filepath.Join(o.st.Root(), CheckpointFile)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	sources := opts.Sources
	if len(sources) == 0 {
		sources = enrich.AllSources()
	}

	// One orchestrator per root at a time.
	lock := flock.New(filepath.Join(o.st.Root(), ".enrichment.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring enrichment lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: another enrichment run is active", types.ErrConflict)
	}
	defer func() { _ = lock.Unlock() }()

	cp := &types.CheckpointState{StartedAt: types.FormatTimestamp(time.Now())}
	if opts.Resume {
		if prior, err := loadCheckpoint(opts.CheckpointPath); err == nil && prior != nil {
			cp = prior
		} else if err != nil {
			logger.Printf("WARN [checkpoint]: %v; starting fresh", err)
		}
	}

	rep := &Report{}
	limiter := newRateLimiter(opts.RateLimit, rateWindow)
	entityLocks := newKeyedMutex()

	save := func() {
		if opts.DryRun {
			return
		}
		cp.LastCheckpoint = types.FormatTimestamp(time.Now())
		if err := saveCheckpoint(opts.CheckpointPath, cp); err != nil {
			logger.Printf("ERROR [checkpoint]: %v", err)
		}
	}

	for _, source := range sources {
		if opts.Resume && cp.SourceDone(source) {
			rep.SourcesSkipped = append(rep.SourcesSkipped, source)
			continue
		}
		if ctx.Err() != nil {
			break
		}

		en, err := enrich.New(source, o.deps)
		if err != nil {
			logger.Printf("ERROR [source %s]: %v; skipping", source, err)
			continue
		}
		names, err := o.listRecords(source)
		if err != nil {
			logger.Printf("ERROR [source %s]: listing inbox: %v; skipping", source, err)
			continue
		}

		// Fast-forward within a resumed source.
		if opts.Resume && cp.CurrentSource == source && cp.LastEntityID != "" {
			for i, name := range names {
				if recordID(name) == cp.LastEntityID {
					names = names[i+1:]
					break
				}
			}
		}
		cp.CurrentSource = source
		cp.TotalEntities += len(names)
		rep.SourcesRun = append(rep.SourcesRun, source)

		canceled := o.runSource(ctx, en, names, opts, limiter, entityLocks, cp, rep, save)
		if canceled {
			rep.Canceled = true
			save()
			return rep, fmt.Errorf("%w: enrichment interrupted", types.ErrCanceled)
		}

		cp.SourcesCompleted = append(cp.SourcesCompleted, source)
		cp.CurrentSource = ""
		cp.LastEntityID = ""
		save()
	}

	if ctx.Err() != nil {
		rep.Canceled = true
		save()
		return rep, fmt.Errorf("%w: enrichment interrupted", types.ErrCanceled)
	}
	save()
	return rep, nil
}

// runSource processes one source's records batch by batch. Returns true
// when the context was canceled mid-source.
func (o *Orchestrator) runSource(
	ctx context.Context,
	en enrich.Enricher,
	names []string,
	opts Options,
	limiter *rateLimiter,
	entityLocks *keyedMutex,
	cp *types.CheckpointState,
	rep *Report,
	save func(),
) bool {
	dir := o.inboxDir(en.Source())
	for start := 0; start < len(names); start += opts.BatchSize {
		if ctx.Err() != nil {
			return true
		}
		end := start + opts.BatchSize
		if end > len(names) {
			end = len(names)
		}
		batch := names[start:end]

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for _, name := range batch {
			g.Go(func() error {
				if err := limiter.Acquire(gctx); err != nil {
					return err
				}
				err := o.processRecord(gctx, en, filepath.Join(dir, name), opts.DryRun, entityLocks)
				mu.Lock()
				defer mu.Unlock()
				rep.Processed++
				cp.ProcessedEntities++
				if err != nil {
					rep.Failed++
					cp.Failed++
					rep.Errors = append(rep.Errors, RecordError{
						Source: en.Source(), Record: recordID(name), Err: err.Error(),
					})
				} else {
					rep.Successful++
					cp.Successful++
				}
				return nil // per-record failures never abort the run
			})
		}
		if err := g.Wait(); err != nil {
			// Only cancellation escapes the workers.
			return true
		}
		cp.LastEntityID = recordID(batch[len(batch)-1])
		save()
	}
	return false
}

// processRecord loads one record and enriches it under the per-entity
// locks of everything it touches, retrying transient failures.
func (o *Orchestrator) processRecord(ctx context.Context, en enrich.Enricher, path string, dryRun bool, entityLocks *keyedMutex) error {
	rec, err := enrich.ReadRecord(path)
	if err != nil {
		return err
	}

	var ids []string
	for _, ref := range rec.Entities {
		if id := o.deps.Resolver.Resolve(ref); id != "" {
			ids = append(ids, id)
		}
	}
	for _, pr := range rec.Relations {
		if id := o.deps.Resolver.Resolve(pr.From); id != "" {
			ids = append(ids, id)
		}
	}
	unlock := entityLocks.LockAll(ids)
	defer unlock()

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(), maxRecordRetries), ctx)
	return backoff.Retry(func() error {
		_, err := en.EnrichRecord(ctx, rec, dryRun)
		if err == nil {
			return nil
		}
		if errors.Is(err, types.ErrCanceled) || errors.Is(err, types.ErrMalformed) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func recordID(name string) string {
	return strings.TrimSuffix(name, ".json")
}
