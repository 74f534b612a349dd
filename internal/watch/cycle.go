package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/scan"
	"github.com/halvard/ordna/internal/store"
)

// CycleStats summarizes one detection cycle over one folder.
type CycleStats struct {
	Detected  int
	Organized int
	Queued    int
	Errors    int
}

// RunCycle performs one detection pass over a folder: list files, skip
// what earlier cycles already considered, classify the rest, and either
// auto-organize or queue each detection. Every file is handled in
// isolation; a broken file logs an error activity and the cycle moves on.
func (m *Manager) RunCycle(ctx context.Context, folder *models.WatchedFolder) CycleStats {
	var stats CycleStats

	paths, err := m.listFolder(folder)
	if err != nil {
		m.logger.Warn("watch: list folder failed",
			slog.String("folder_id", folder.ID),
			slog.String("path", folder.Path),
			slog.String("error", err.Error()))
		return stats
	}

	rules, err := m.stores.ListRules(store.RuleFilter{})
	if err != nil {
		m.logger.Warn("watch: list rules failed", slog.String("error", err.Error()))
		return stats
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		entry := seenEntry{modUnixNano: fi.ModTime().UnixNano(), size: fi.Size()}
		if m.isSeen(folder.ID, path, entry) {
			continue
		}
		if !m.claimPath(path) {
			continue
		}
		action := m.processFile(ctx, folder, path, fi.Size(), rules)
		m.releasePath(path)
		m.markSeen(folder.ID, path, entry)

		switch action {
		case models.ActivityAutoOrganized:
			stats.Detected++
			stats.Organized++
		case models.ActivityQueued:
			stats.Detected++
			stats.Queued++
		case models.ActivityError:
			stats.Detected++
			stats.Errors++
		}
	}

	// Counters advance by detections; the call also stamps last_checked_at
	// for quiet cycles.
	if err := m.stores.BumpFolderCounters(folder.ID, int64(stats.Detected), int64(stats.Organized)); err != nil {
		m.logger.Warn("watch: bump counters failed",
			slog.String("folder_id", folder.ID),
			slog.String("error", err.Error()))
	}
	if stats.Detected > 0 {
		m.logger.Info("watch: cycle",
			slog.String("folder_id", folder.ID),
			slog.Int("detected", stats.Detected),
			slog.Int("organized", stats.Organized),
			slog.Int("queued", stats.Queued),
			slog.Int("errors", stats.Errors))
	}
	return stats
}

// processFile handles a single new or changed file and returns the
// terminal action recorded for it. Files already present in the ledger
// return an empty action and are not counted as detections.
func (m *Manager) processFile(ctx context.Context, folder *models.WatchedFolder, path string, size int64, rules []models.Rule) models.ActivityAction {
	// A file the ledger already knows about was organized by a previous
	// cycle or by hand; re-detecting it would double-process.
	if prior, err := m.stores.FindByOriginalPath(path); err == nil && prior != nil {
		return ""
	}

	name := filepath.Base(path)
	m.appendActivity(models.WatchActivity{
		FolderID: folder.ID,
		Filename: name,
		Path:     path,
		Action:   models.ActivityDetected,
	}, true)

	desc, err := scan.Describe(path)
	if err != nil {
		m.appendActivity(models.WatchActivity{
			FolderID:     folder.ID,
			Filename:     name,
			Path:         path,
			Action:       models.ActivityError,
			ErrorMessage: err.Error(),
		}, true)
		return models.ActivityError
	}

	suggestion := m.engine.Classify(desc, rules)

	if folder.AutoOrganize && suggestion.Matched() && suggestion.Confidence.AtLeast(folder.ConfidenceThreshold) {
		return m.autoOrganize(ctx, folder, path, name, suggestion)
	}
	return m.queue(folder, path, name, desc, size, suggestion)
}

// autoOrganize moves the file straight through the executor. Conflict
// policy and move timeout come from the executor's configured defaults.
// The folder's notify flag gates publication of the organize event; the
// activity row is persisted either way.
func (m *Manager) autoOrganize(ctx context.Context, folder *models.WatchedFolder, path, name string, s models.Suggestion) models.ActivityAction {
	results := m.exec.Apply(ctx, []organizer.Item{{
		SourcePath: path,
		Target:     models.TargetRef{Type: s.TargetType, ID: s.TargetID},
		RuleID:     s.RuleID,
	}}, organizer.Options{})

	r := results[0]
	if r.Outcome != organizer.OutcomeSuccess {
		m.appendActivity(models.WatchActivity{
			FolderID:      folder.ID,
			Filename:      name,
			Path:          path,
			Action:        models.ActivityError,
			MatchedRuleID: s.RuleID,
			ErrorMessage:  r.Reason,
		}, true)
		return models.ActivityError
	}

	m.appendActivity(models.WatchActivity{
		FolderID:      folder.ID,
		Filename:      name,
		Path:          path,
		Action:        models.ActivityAutoOrganized,
		MatchedRuleID: s.RuleID,
		TargetFolder:  r.TargetFolder,
	}, folder.NotifyOnOrganize)
	return models.ActivityAutoOrganized
}

// queue parks the file in the folder's working set for manual review.
// The queued activity row is written first so the working-set row can
// point back at it; resolving the decision later advances that same row
// in place instead of appending a duplicate.
func (m *Manager) queue(folder *models.WatchedFolder, path, name string, desc models.FileDescriptor, size int64, s models.Suggestion) models.ActivityAction {
	act := m.appendActivity(models.WatchActivity{
		FolderID:      folder.ID,
		Filename:      name,
		Path:          path,
		Action:        models.ActivityQueued,
		MatchedRuleID: s.RuleID,
	}, true)

	draft := store.ScannedDraft{
		SessionID:  watchSessionID(folder.ID),
		Path:       path,
		Name:       name,
		Extension:  desc.Extension,
		Size:       size,
		ModifiedAt: desc.ModTime,
		FileType:   classify.FileCategory(desc.Extension),
		Suggestion: s,
	}
	if act != nil {
		draft.WatchActivityID = act.ID
	}
	if _, err := m.stores.AddScanned(draft); err != nil {
		if act != nil {
			if rerr := m.stores.ResolveQueuedActivity(act.ID, models.ActivityError, s.RuleID, "", err.Error()); rerr != nil {
				m.logger.Warn("watch: queued activity update failed",
					slog.String("activity_id", act.ID),
					slog.String("error", rerr.Error()))
			}
		} else {
			m.appendActivity(models.WatchActivity{
				FolderID:     folder.ID,
				Filename:     name,
				Path:         path,
				Action:       models.ActivityError,
				ErrorMessage: err.Error(),
			}, true)
		}
		return models.ActivityError
	}
	return models.ActivityQueued
}

// appendActivity persists one activity row and, when notify is set,
// publishes it. It returns nil when the write failed.
func (m *Manager) appendActivity(a models.WatchActivity, notify bool) *models.WatchActivity {
	row, err := m.stores.AppendActivity(a)
	if err != nil {
		m.logger.Warn("watch: append activity failed",
			slog.String("path", a.Path),
			slog.String("error", err.Error()))
		return nil
	}
	if notify && m.Notify != nil {
		m.Notify(*row)
	}
	return row
}

// WatchSessionID returns the stable working-set session a folder's
// queued files land in.
func WatchSessionID(folderID string) string { return watchSessionID(folderID) }

func watchSessionID(folderID string) string { return "watch-" + folderID }

// listFolder returns candidate file paths under a folder, honoring the
// include-subdirs flag and the filename glob filter.
func (m *Manager) listFolder(folder *models.WatchedFolder) ([]string, error) {
	globs, err := compileFilter(folder.FileTypeFilter)
	if err != nil {
		return nil, err
	}

	var out []string
	collect := func(path string, d fs.DirEntry) {
		if strings.HasPrefix(d.Name(), ".") {
			return
		}
		if !matchesFilter(globs, d.Name()) {
			return
		}
		out = append(out, path)
	}

	if !folder.IncludeSubdirs {
		entries, err := os.ReadDir(folder.Path)
		if err != nil {
			return nil, err
		}
		for _, d := range entries {
			if d.IsDir() {
				continue
			}
			collect(filepath.Join(folder.Path, d.Name()), d)
		}
		return out, nil
	}

	walkErr := filepath.WalkDir(folder.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != folder.Path {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != folder.Path && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		collect(p, d)
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
		return nil, walkErr
	}
	return out, nil
}

// compileFilter turns filter entries into globs. A bare extension like
// "pdf" is treated as "*.pdf"; anything with a meta character is used
// as written.
func compileFilter(filter []string) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, f := range filter {
		f = strings.TrimSpace(strings.ToLower(f))
		if f == "" {
			continue
		}
		if !strings.ContainsAny(f, "*?[{") {
			f = "*." + strings.TrimPrefix(f, ".")
		}
		g, err := glob.Compile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func matchesFilter(globs []glob.Glob, name string) bool {
	if len(globs) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, g := range globs {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
