package store

import "github.com/halvard/ordna/internal/models"

// RuleStore is the rule persistence surface consumed by the classifier's
// callers. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with fakes.
type RuleStore interface {
	CreateRule(d RuleDraft) (*models.Rule, error)
	UpdateRule(id string, d RuleDraft) (*models.Rule, error)
	DeleteRule(id string) error
	GetRule(id string) (*models.Rule, error)
	ListRules(f RuleFilter) ([]models.Rule, error)
	RulesByTarget(targetType models.TargetType, targetID string) ([]models.Rule, error)
	ToggleRule(id string) (bool, error)
	IncrementMatchCount(id string) error
	ResetMatchCount(id string) error
}

// SessionStore is the session working-set surface.
type SessionStore interface {
	AddScanned(d ScannedDraft) (*models.ScannedFile, error)
	AddScannedBatch(drafts []ScannedDraft) (BatchResult, error)
	GetScanned(id string) (*models.ScannedFile, error)
	ListScanned(sessionID string, f ScannedFilter) ([]models.ScannedFile, error)
	SetDecision(id string, decision models.Decision, targetFolder string) (*models.ScannedFile, error)
	UpdateSuggestion(id string, s models.Suggestion) error
	DeleteScanned(id string) error
	ClearSession(sessionID string) (int64, error)
	ReadyToOrganize(sessionID string) ([]models.ScannedFile, error)
	Stats(sessionID string) (*SessionStats, error)
}

// Ledger is the history ledger surface.
type Ledger interface {
	InsertOrganized(d OrganizedDraft) (*models.OrganizedFile, error)
	GetOrganized(id string) (*models.OrganizedFile, error)
	FindByOriginalPath(path string) (*models.OrganizedFile, error)
	ListOrganized(f OrganizedFilter) ([]models.OrganizedFile, error)
	CountOrganized(f OrganizedFilter) (int64, error)
	RecentMoved(limit int) ([]models.OrganizedFile, error)
	LedgerStats() (*models.LedgerStats, error)
	MarkUndone(id, note string) (bool, error)
	MarkDeleted(id string) error
	PurgeOlderThan(days int) (int64, error)
	SearchHistory(query string, limit int) ([]HistoryHit, error)
}

// WatchStore is the watched-folder and activity-log surface.
type WatchStore interface {
	CreateWatchedFolder(d WatchedFolderDraft) (*models.WatchedFolder, error)
	UpdateWatchedFolder(id string, d WatchedFolderDraft) (*models.WatchedFolder, error)
	DeleteWatchedFolder(id string) error
	GetWatchedFolder(id string) (*models.WatchedFolder, error)
	ListWatchedFolders(activeOnly bool) ([]models.WatchedFolder, error)
	BumpFolderCounters(id string, processed, organized int64) error
	AppendActivity(a models.WatchActivity) (*models.WatchActivity, error)
	ResolveQueuedActivity(id string, action models.ActivityAction, ruleID, targetFolder, errMsg string) error
	ListActivity(folderID string, limit int) ([]models.WatchActivity, error)
}

// Verify *DB satisfies every store surface at compile time.
var (
	_ RuleStore    = (*DB)(nil)
	_ SessionStore = (*DB)(nil)
	_ Ledger       = (*DB)(nil)
	_ WatchStore   = (*DB)(nil)
)
