package models

import (
	"path/filepath"
	"strings"
	"time"
)

// FileDescriptor is the metadata slice of a file the classifier sees.
// Extension carries no leading dot and is lower-cased.
type FileDescriptor struct {
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	Path      string    `json:"path"`
	ParentDir string    `json:"parent_dir"`
	ModTime   time.Time `json:"mod_time"`
}

// NewFileDescriptor builds a descriptor from a full path and mod time.
func NewFileDescriptor(path string, modTime time.Time) FileDescriptor {
	name := filepath.Base(path)
	return FileDescriptor{
		Name:      name,
		Extension: NormalizeExtension(filepath.Ext(name)),
		Path:      path,
		ParentDir: filepath.Base(filepath.Dir(path)),
		ModTime:   modTime,
	}
}

// NormalizeExtension strips a leading dot and lower-cases ext.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Decision is the user's verdict on a scanned file's suggestion.
type Decision string

// Decisions. Pending is the initial state; the others are terminal
// within one session (re-scanning creates a fresh row).
const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionChanged  Decision = "changed"
	DecisionSkipped  Decision = "skipped"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	switch d {
	case DecisionPending, DecisionAccepted, DecisionChanged, DecisionSkipped:
		return true
	}
	return false
}

// ScannedFile is one session-scoped row of the working set.
type ScannedFile struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"scan_session_id"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Extension  string    `json:"extension"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	FileType   string    `json:"file_type"`

	SuggestedTargetType TargetType `json:"suggested_target_type,omitempty"`
	SuggestedTargetID   string     `json:"suggested_target_id,omitempty"`
	SuggestedRuleID     string     `json:"suggested_rule_id,omitempty"`
	Confidence          Confidence `json:"suggestion_confidence"`

	Decision   Decision  `json:"user_decision"`
	UserTarget string    `json:"user_target,omitempty"`

	// WatchActivityID links a watcher-queued row back to its queued
	// activity log entry, so resolving the row advances that entry.
	WatchActivityID string `json:"watch_activity_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FinalTarget resolves the effective target: the user override when the
// decision is changed, otherwise the classifier suggestion. The second
// return is false when neither yields a target.
func (f *ScannedFile) FinalTarget() (TargetRef, bool) {
	if f.UserTarget != "" {
		return TargetRef{Type: TargetFolder, ID: f.UserTarget}, true
	}
	if f.SuggestedTargetID != "" {
		return TargetRef{Type: f.SuggestedTargetType, ID: f.SuggestedTargetID}, true
	}
	return TargetRef{}, false
}
