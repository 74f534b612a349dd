package models

import "time"

// WatchedFolder is a folder monitored for unattended organization.
// NotifyOnOrganize controls whether the folder's auto-organize results
// are published to event subscribers; the activity log records them
// regardless.
type WatchedFolder struct {
	ID                  string     `json:"id"`
	Path                string     `json:"path"`
	IsActive            bool       `json:"is_active"`
	AutoOrganize        bool       `json:"auto_organize"`
	ConfidenceThreshold Confidence `json:"confidence_threshold"`
	IncludeSubdirs      bool       `json:"include_subdirs"`
	FileTypeFilter      []string   `json:"file_type_filter,omitempty"`
	NotifyOnOrganize    bool       `json:"notify_on_organize"`
	FilesProcessed      int64      `json:"files_processed"`
	FilesOrganized      int64      `json:"files_organized"`
	LastCheckedAt       time.Time  `json:"last_checked_at,omitzero"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ActivityAction is the kind of a watch activity row.
type ActivityAction string

// Activity actions. A queued row may be advanced in place to
// auto_organized, skipped, or error when the queued decision resolves.
const (
	ActivityDetected      ActivityAction = "detected"
	ActivityQueued        ActivityAction = "queued"
	ActivityAutoOrganized ActivityAction = "auto_organized"
	ActivitySkipped       ActivityAction = "skipped"
	ActivityError         ActivityAction = "error"
)

// Valid reports whether a is a known activity action.
func (a ActivityAction) Valid() bool {
	switch a {
	case ActivityDetected, ActivityQueued, ActivityAutoOrganized, ActivitySkipped, ActivityError:
		return true
	}
	return false
}

// WatchActivity is one append-only activity log row.
type WatchActivity struct {
	ID            string         `json:"id"`
	FolderID      string         `json:"watched_folder_id"`
	Filename      string         `json:"filename"`
	Path          string         `json:"path"`
	Action        ActivityAction `json:"action"`
	MatchedRuleID string         `json:"matched_rule_id,omitempty"`
	TargetFolder  string         `json:"target_folder,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
