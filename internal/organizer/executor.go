// Package organizer turns classifier suggestions and user decisions into
// actual file moves, conflict resolution, and history ledger writes.
package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/jdindex"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/store"
)

// Item is one unit of work for Apply.
type Item struct {
	SourcePath string           `json:"source_path"`
	Target     models.TargetRef `json:"target"`
	// RuleID, when set, is the rule credited with the match; its
	// match_count is bumped on a successful move.
	RuleID string `json:"rule_id,omitempty"`
	// TrackOnly registers the file in the ledger without relocating it.
	TrackOnly bool `json:"track_only,omitempty"`
}

// Options configures one Apply batch.
type Options struct {
	ConflictPolicy ConflictPolicy `json:"conflict_policy"`
	DryRun         bool           `json:"dry_run"`
	// MoveTimeout bounds each physical move; zero disables the bound.
	MoveTimeout time.Duration `json:"-"`
}

// OutcomeKind labels a per-item result.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailure OutcomeKind = "failure"
)

// Result is one per-item outcome. Failures carry a reason; successes
// carry the destination and, outside dry runs, the ledger row id.
// TargetFolder is the resolved folder relative to the library root, the
// same representation the ledger stores.
type Result struct {
	Item         Item        `json:"item"`
	Outcome      OutcomeKind `json:"outcome"`
	DestPath     string      `json:"dest_path,omitempty"`
	TargetFolder string      `json:"target_folder,omitempty"`
	OrganizedID  string      `json:"organized_id,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// UndoOutcome reports an undo call.
type UndoOutcome struct {
	OrganizedID  string                 `json:"organized_id"`
	Undone       bool                   `json:"undone"`
	Status       models.OrganizedStatus `json:"status"`
	RestoredPath string                 `json:"restored_path,omitempty"`
}

// Executor applies organize batches against the library root.
type Executor struct {
	library  string
	resolver jdindex.Resolver
	ledger   store.Ledger
	rules    store.RuleStore
	logger   *slog.Logger

	// Notify, if non-nil, is called after each committed ledger write.
	Notify func(models.OrganizedFile)
	// UndoNotify, if non-nil, is called after each completed undo.
	UndoNotify func(organizedID, restoredPath string)

	// DefaultConflictPolicy applies when a batch's options carry no
	// policy; unset, batches fall back to rename.
	DefaultConflictPolicy ConflictPolicy
	// DefaultMoveTimeout bounds each physical move when the batch's
	// options leave MoveTimeout zero.
	DefaultMoveTimeout time.Duration
}

// New creates an executor rooted at the library directory.
func New(library string, resolver jdindex.Resolver, ledger store.Ledger, rules store.RuleStore, logger *slog.Logger) *Executor {
	return &Executor{
		library:  library,
		resolver: resolver,
		ledger:   ledger,
		rules:    rules,
		logger:   logger,
	}
}

// Apply processes items sequentially so a mid-batch crash leaves a
// resumable state: ledger rows exist only for moves that completed.
// Failures are per-item; one failing file never discards successes
// already committed for other files.
func (e *Executor) Apply(ctx context.Context, items []Item, opts Options) []Result {
	if !opts.ConflictPolicy.Valid() {
		opts.ConflictPolicy = e.DefaultConflictPolicy
		if !opts.ConflictPolicy.Valid() {
			opts.ConflictPolicy = ConflictRename
		}
	}
	if opts.MoveTimeout <= 0 {
		opts.MoveTimeout = e.DefaultMoveTimeout
	}

	out := make([]Result, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			out = append(out, Result{Item: item, Outcome: OutcomeFailure, Reason: "cancelled"})
			continue
		}
		out = append(out, e.applyOne(ctx, item, opts))
	}
	return out
}

func (e *Executor) applyOne(ctx context.Context, item Item, opts Options) Result {
	fail := func(format string, args ...any) Result {
		reason := fmt.Sprintf(format, args...)
		e.logger.Warn("organize failed",
			slog.String("source", item.SourcePath),
			slog.String("reason", reason))
		return Result{Item: item, Outcome: OutcomeFailure, Reason: reason}
	}

	if item.SourcePath == "" {
		return fail("source path is required")
	}
	srcInfo, err := os.Stat(item.SourcePath)
	if err != nil {
		return fail("stat source: %v", err)
	}

	relDir, err := e.resolver.Resolve(item.Target.Type, item.Target.ID)
	if err != nil {
		return fail("resolve target %s/%s: %v", item.Target.Type, item.Target.ID, err)
	}
	destDir := filepath.Join(e.library, relDir)
	name := filepath.Base(item.SourcePath)
	ext := models.NormalizeExtension(filepath.Ext(name))

	if item.TrackOnly {
		if opts.DryRun {
			return Result{Item: item, Outcome: OutcomeSuccess,
				DestPath: item.SourcePath, TargetFolder: relDir}
		}
		return e.commit(item, store.OrganizedDraft{
			Filename:      name,
			OriginalPath:  item.SourcePath,
			CurrentPath:   item.SourcePath,
			TargetFolder:  relDir,
			MatchedRuleID: item.RuleID,
			Status:        models.StatusTracked,
			Size:          srcInfo.Size(),
			FileType:      classify.FileCategory(ext),
		}, item.SourcePath)
	}

	dst := filepath.Join(destDir, name)
	dst, skip, err := resolveCollision(dst, opts.ConflictPolicy)
	if err != nil {
		return fail("resolve collision: %v", err)
	}
	if skip {
		return Result{Item: item, Outcome: OutcomeSkipped, Reason: "destination exists"}
	}

	if opts.DryRun {
		// Every step except the physical move and the ledger write.
		return Result{Item: item, Outcome: OutcomeSuccess, DestPath: dst, TargetFolder: relDir}
	}

	if err := moveFile(ctx, item.SourcePath, dst, opts.MoveTimeout); err != nil {
		return fail("move: %v", err)
	}

	return e.commit(item, store.OrganizedDraft{
		Filename:      name,
		OriginalPath:  item.SourcePath,
		CurrentPath:   dst,
		TargetFolder:  relDir,
		MatchedRuleID: item.RuleID,
		Status:        models.StatusMoved,
		Size:          srcInfo.Size(),
		FileType:      classify.FileCategory(ext),
	}, dst)
}

// commit writes the ledger row and credits the matched rule.
func (e *Executor) commit(item Item, draft store.OrganizedDraft, dst string) Result {
	row, err := e.ledger.InsertOrganized(draft)
	if err != nil {
		// The file has already moved; surface the ledger failure rather
		// than attempting a blind rollback of the filesystem.
		return Result{Item: item, Outcome: OutcomeFailure, DestPath: dst,
			Reason: fmt.Sprintf("ledger write: %v", err)}
	}
	if item.RuleID != "" {
		if err := e.rules.IncrementMatchCount(item.RuleID); err != nil {
			e.logger.Warn("match count increment failed",
				slog.String("rule_id", item.RuleID),
				slog.String("error", err.Error()))
		}
	}
	e.logger.Info("organized",
		slog.String("source", draft.OriginalPath),
		slog.String("dest", draft.CurrentPath),
		slog.String("status", string(draft.Status)))
	if e.Notify != nil {
		e.Notify(*row)
	}
	return Result{Item: item, Outcome: OutcomeSuccess, DestPath: dst,
		TargetFolder: draft.TargetFolder, OrganizedID: row.ID}
}

// Undo reverses a moved ledger row: the file is moved back from
// current_path to original_path with the same move primitive, then the
// row flips to undone. Undo of an already-undone, tracked, or deleted
// row is a reported no-op, not an error.
func (e *Executor) Undo(ctx context.Context, organizedID string) (*UndoOutcome, error) {
	row, err := e.ledger.GetOrganized(organizedID)
	if err != nil {
		return nil, err
	}
	if row.Status != models.StatusMoved {
		return &UndoOutcome{OrganizedID: organizedID, Undone: false, Status: row.Status}, nil
	}

	if err := moveFile(ctx, row.CurrentPath, row.OriginalPath, 0); err != nil {
		return nil, fmt.Errorf("organizer: undo move: %w", err)
	}

	note := fmt.Sprintf("undone at %s", time.Now().UTC().Format(time.RFC3339))
	changed, err := e.ledger.MarkUndone(organizedID, note)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Lost a race with another undo; the file is back home either way.
		return &UndoOutcome{OrganizedID: organizedID, Undone: false, Status: models.StatusUndone}, nil
	}
	e.logger.Info("undo",
		slog.String("organized_id", organizedID),
		slog.String("restored", row.OriginalPath))
	if e.UndoNotify != nil {
		e.UndoNotify(organizedID, row.OriginalPath)
	}
	return &UndoOutcome{
		OrganizedID:  organizedID,
		Undone:       true,
		Status:       models.StatusUndone,
		RestoredPath: row.OriginalPath,
	}, nil
}
