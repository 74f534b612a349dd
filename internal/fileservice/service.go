// Package fileservice coordinates the scanner, classifier, executor, and
// stores into the scan → review → organize workflow.
package fileservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/jdindex"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/scan"
	"github.com/halvard/ordna/internal/store"
)

// CategoryLister is the slice of the index the fallback builder needs.
type CategoryLister interface {
	ListCategories() ([]jdindex.Category, error)
}

// Service coordinates store and filesystem operations.
type Service struct {
	rules   store.RuleStore
	session store.SessionStore
	ledger  store.Ledger
	watch   store.WatchStore
	jd      CategoryLister
	engine  *classify.Engine
	exec    *organizer.Executor
	logger  *slog.Logger
}

// NewService creates the orchestration service.
func NewService(db *store.DB, jd CategoryLister, engine *classify.Engine, exec *organizer.Executor, logger *slog.Logger) *Service {
	return &Service{
		rules:   db,
		session: db,
		ledger:  db,
		watch:   db,
		jd:      jd,
		engine:  engine,
		exec:    exec,
		logger:  logger,
	}
}

// RefreshFallback rebuilds the classifier's heuristic bucket from index
// categories whose names speak for a file-type category ("11 Documents"
// serves the document bucket). Missing matches simply leave a bucket
// empty; the fallback is best-effort by design.
func (s *Service) RefreshFallback() error {
	cats, err := s.jd.ListCategories()
	if err != nil {
		return err
	}
	fallback := make(map[string]models.TargetRef)
	for _, c := range cats {
		name := strings.ToLower(c.Name)
		for _, label := range []string{
			classify.CategoryDocument, classify.CategorySpreadsheet,
			classify.CategoryPresentation, classify.CategoryImage,
			classify.CategoryVideo, classify.CategoryAudio,
			classify.CategoryArchive, classify.CategoryCode,
		} {
			if _, taken := fallback[label]; taken {
				continue
			}
			if strings.Contains(name, label) || (label == classify.CategoryImage && strings.Contains(name, "photo")) {
				fallback[label] = models.TargetRef{Type: models.TargetCategory, ID: c.ID}
			}
		}
	}
	s.engine.SetFallback(fallback)
	return nil
}

// ScanSummary reports one scan run.
type ScanSummary struct {
	SessionID string `json:"scan_session_id"`
	Scanned   int    `json:"scanned"`
	Added     int    `json:"added"`
	Skipped   int    `json:"skipped"`
	Suggested int    `json:"suggested"`
	Cancelled bool   `json:"cancelled"`
}

// ScanDirectory walks root, classifies every discovered file against the
// active rules, and loads the results into a fresh session working set.
// Cancellation mid-walk keeps the rows collected so far.
func (s *Service) ScanDirectory(ctx context.Context, root string, maxDepth int) (*ScanSummary, error) {
	res, err := scan.Walk(ctx, root, scan.Options{MaxDepth: maxDepth})
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListRules(store.RuleFilter{})
	if err != nil {
		return nil, err
	}

	files := make([]models.FileDescriptor, len(res.Drafts))
	for i, d := range res.Drafts {
		files[i] = models.FileDescriptor{
			Name:      d.Name,
			Extension: d.Extension,
			Path:      d.Path,
			ModTime:   d.ModifiedAt,
		}
	}
	suggestions := s.engine.ClassifyBatch(files, rules)

	suggested := 0
	for i := range res.Drafts {
		res.Drafts[i].Suggestion = suggestions[i]
		if suggestions[i].Matched() {
			suggested++
		}
	}

	batch, err := s.session.AddScannedBatch(res.Drafts)
	if err != nil {
		return nil, err
	}

	s.logger.Info("scan complete",
		slog.String("session_id", res.SessionID),
		slog.String("root", root),
		slog.Int("scanned", len(res.Drafts)),
		slog.Int("suggested", suggested),
		slog.Bool("cancelled", res.Cancelled))

	return &ScanSummary{
		SessionID: res.SessionID,
		Scanned:   len(res.Drafts),
		Added:     batch.Added,
		Skipped:   batch.Skipped,
		Suggested: suggested,
		Cancelled: res.Cancelled,
	}, nil
}

// Classify runs the engine over one descriptor with the current active
// rules. Pure apart from the rule listing.
func (s *Service) Classify(f models.FileDescriptor) (models.Suggestion, error) {
	rules, err := s.rules.ListRules(store.RuleFilter{})
	if err != nil {
		return models.Suggestion{}, err
	}
	return s.engine.Classify(f, rules), nil
}

// OrganizeSession applies every ready row of a session. The matched rule
// is credited only when the user accepted the classifier's suggestion; a
// changed decision means the rule's verdict was overridden.
func (s *Service) OrganizeSession(ctx context.Context, sessionID string, opts organizer.Options) ([]organizer.Result, error) {
	ready, err := s.session.ReadyToOrganize(sessionID)
	if err != nil {
		return nil, err
	}

	items := make([]organizer.Item, 0, len(ready))
	for i := range ready {
		row := &ready[i]
		target, ok := row.FinalTarget()
		if !ok {
			continue
		}
		item := organizer.Item{SourcePath: row.Path, Target: target}
		if row.Decision == models.DecisionAccepted {
			item.RuleID = row.SuggestedRuleID
		}
		items = append(items, item)
	}

	results := s.exec.Apply(ctx, items, opts)

	if !opts.DryRun {
		byPath := make(map[string]*models.ScannedFile, len(ready))
		for i := range ready {
			byPath[ready[i].Path] = &ready[i]
		}
		for _, r := range results {
			row, ok := byPath[r.Item.SourcePath]
			if !ok {
				continue
			}
			// Watcher-queued rows carry their queued activity entry;
			// the outcome advances that entry in place.
			if row.WatchActivityID != "" {
				switch r.Outcome {
				case organizer.OutcomeSuccess:
					s.resolveQueued(row.WatchActivityID, models.ActivityAutoOrganized, r.Item.RuleID, r.TargetFolder, "")
				case organizer.OutcomeSkipped:
					s.resolveQueued(row.WatchActivityID, models.ActivitySkipped, r.Item.RuleID, "", r.Reason)
				case organizer.OutcomeFailure:
					s.resolveQueued(row.WatchActivityID, models.ActivityError, r.Item.RuleID, "", r.Reason)
				}
			}
			// Rows that organized successfully leave the working set.
			if r.Outcome != organizer.OutcomeSuccess {
				continue
			}
			if err := s.session.DeleteScanned(row.ID); err != nil {
				s.logger.Warn("working set cleanup failed",
					slog.String("id", row.ID),
					slog.String("error", err.Error()))
			}
		}
	}
	return results, nil
}

// Decide records the user's verdict on a working-set row. Skipping a
// watcher-queued row also resolves its queued activity entry; accepted
// and changed rows resolve later, when the session is organized.
func (s *Service) Decide(id string, decision models.Decision, targetFolder string) (*models.ScannedFile, error) {
	row, err := s.session.SetDecision(id, decision, targetFolder)
	if err != nil {
		return nil, err
	}
	if decision == models.DecisionSkipped && row.WatchActivityID != "" {
		s.resolveQueued(row.WatchActivityID, models.ActivitySkipped, row.SuggestedRuleID, "", "")
	}
	return row, nil
}

// resolveQueued advances a queued activity row, tolerating rows already
// resolved by a concurrent path.
func (s *Service) resolveQueued(activityID string, action models.ActivityAction, ruleID, targetFolder, errMsg string) {
	err := s.watch.ResolveQueuedActivity(activityID, action, ruleID, targetFolder, errMsg)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("queued activity update failed",
			slog.String("activity_id", activityID),
			slog.String("error", err.Error()))
	}
}

// OrganizeItems applies explicit items outside any session.
func (s *Service) OrganizeItems(ctx context.Context, items []organizer.Item, opts organizer.Options) []organizer.Result {
	return s.exec.Apply(ctx, items, opts)
}

// Undo delegates to the executor's undo primitive.
func (s *Service) Undo(ctx context.Context, organizedID string) (*organizer.UndoOutcome, error) {
	return s.exec.Undo(ctx, organizedID)
}
