// Package watch runs the unattended classify-and-organize loop over
// watched folders.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/store"
)

const (
	defaultPollEvery = 30 * time.Second
	debounceDelay    = 500 * time.Millisecond
)

// Stores is the persistence surface the watcher needs.
type Stores interface {
	store.WatchStore
	ListRules(f store.RuleFilter) ([]models.Rule, error)
	FindByOriginalPath(path string) (*models.OrganizedFile, error)
	AddScanned(d store.ScannedDraft) (*models.ScannedFile, error)
}

// seenEntry identifies a file state already considered in a past cycle.
type seenEntry struct {
	modUnixNano int64
	size        int64
}

// Manager drives one detection loop per active watched folder.
//
// Detection cycles are triggered by fsnotify events (debounced) and by a
// poll ticker backstop. Tests drive cycles deterministically through
// RunCycle instead of waiting on timers.
type Manager struct {
	stores  Stores
	engine  *classify.Engine
	exec    *organizer.Executor
	logger  *slog.Logger
	poll    time.Duration
	workers int

	// Notify, if non-nil, receives every appended activity row.
	Notify func(models.WatchActivity)

	mu       sync.Mutex
	seen     map[string]map[string]seenEntry // folder id → path → state
	inflight map[string]struct{}             // paths mid organize
}

// NewManager creates a watch manager. pollEvery <= 0 selects the default
// interval; workers <= 0 polls folders sequentially.
func NewManager(stores Stores, engine *classify.Engine, exec *organizer.Executor, logger *slog.Logger, pollEvery time.Duration, workers int) *Manager {
	if pollEvery <= 0 {
		pollEvery = defaultPollEvery
	}
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		stores:   stores,
		engine:   engine,
		exec:     exec,
		logger:   logger,
		poll:     pollEvery,
		workers:  workers,
		seen:     make(map[string]map[string]seenEntry),
		inflight: make(map[string]struct{}),
	}
}

// Run watches all active folders until ctx is cancelled. The folder list
// is re-read on every poll tick, so folders added or toggled at runtime
// are picked up without a restart.
func (m *Manager) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]struct{})
	syncPaths := func(folders []models.WatchedFolder) {
		for _, f := range folders {
			if _, ok := watched[f.Path]; ok {
				continue
			}
			if addErr := w.Add(f.Path); addErr != nil {
				m.logger.Warn("watch: add path failed",
					slog.String("path", f.Path),
					slog.String("error", addErr.Error()))
				continue
			}
			watched[f.Path] = struct{}{}
		}
	}

	folders, err := m.activeFolders()
	if err != nil {
		return err
	}
	syncPaths(folders)
	m.runAll(ctx, folders)

	m.logger.Info("watch: started",
		slog.Int("folders", len(folders)),
		slog.Duration("poll", m.poll))

	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	// debounce batches bursts of fsnotify events into one cycle pass.
	var debounce *time.Timer
	var debounceCh <-chan time.Time
	scheduleCycle := func() {
		if debounce == nil {
			debounce = time.NewTimer(debounceDelay)
			debounceCh = debounce.C
		} else {
			debounce.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			m.logger.Info("watch: stopped")
			return nil

		case <-ticker.C:
			folders, err := m.activeFolders()
			if err != nil {
				m.logger.Warn("watch: list folders failed", slog.String("error", err.Error()))
				continue
			}
			syncPaths(folders)
			m.runAll(ctx, folders)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleCycle()
			}

		case <-debounceCh:
			folders, err := m.activeFolders()
			if err != nil {
				continue
			}
			m.runAll(ctx, folders)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (m *Manager) activeFolders() ([]models.WatchedFolder, error) {
	return m.stores.ListWatchedFolders(true)
}

// runAll runs one cycle per folder through a bounded worker pool. A
// folder's failure never stops the others.
func (m *Manager) runAll(ctx context.Context, folders []models.WatchedFolder) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range folders {
		folder := folders[i]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return nil
			}
			m.RunCycle(gCtx, &folder)
			return nil
		})
	}
	_ = g.Wait()
}

// markSeen records that a path state has been considered for a folder.
func (m *Manager) markSeen(folderID, path string, e seenEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm, ok := m.seen[folderID]
	if !ok {
		fm = make(map[string]seenEntry)
		m.seen[folderID] = fm
	}
	fm[path] = e
}

func (m *Manager) isSeen(folderID, path string, e seenEntry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm, ok := m.seen[folderID]
	if !ok {
		return false
	}
	prev, ok := fm[path]
	return ok && prev == e
}

// claimPath serializes the check-classify-execute-ledger sequence per
// path so the same file is never organized twice concurrently.
func (m *Manager) claimPath(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[path]; busy {
		return false
	}
	m.inflight[path] = struct{}{}
	return true
}

func (m *Manager) releasePath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, path)
}
