package models

import "time"

// OrganizedStatus is the ledger row status.
type OrganizedStatus string

// Statuses. The only forward transition is moved → undone; tracked and
// deleted are terminal.
const (
	StatusMoved   OrganizedStatus = "moved"
	StatusTracked OrganizedStatus = "tracked"
	StatusUndone  OrganizedStatus = "undone"
	StatusDeleted OrganizedStatus = "deleted"
)

// Valid reports whether s is a known status.
func (s OrganizedStatus) Valid() bool {
	switch s {
	case StatusMoved, StatusTracked, StatusUndone, StatusDeleted:
		return true
	}
	return false
}

// OrganizedFile is a durable history ledger row.
type OrganizedFile struct {
	ID            string          `json:"id"`
	Filename      string          `json:"filename"`
	OriginalPath  string          `json:"original_path"`
	CurrentPath   string          `json:"current_path"`
	TargetFolder  string          `json:"target_folder"`
	MatchedRuleID string          `json:"matched_rule_id,omitempty"`
	Status        OrganizedStatus `json:"status"`
	Size          int64           `json:"size"`
	FileType      string          `json:"file_type"`
	Notes         string          `json:"notes,omitempty"`
	OrganizedAt   time.Time       `json:"organized_at"`
}

// LedgerStats aggregates the history ledger.
type LedgerStats struct {
	ByStatus     map[OrganizedStatus]int64 `json:"by_status"`
	MovedBytes   int64                     `json:"moved_bytes"`
	ByFileType   map[string]int64          `json:"by_file_type"`
	TopFolders   []FolderCount             `json:"top_folders"`
	Total        int64                     `json:"total"`
}

// FolderCount is one entry of the top-target-folders breakdown.
type FolderCount struct {
	Folder string `json:"folder"`
	Count  int64  `json:"count"`
}
