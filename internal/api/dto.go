package api

import (
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
)

// RuleRequest is the request body for creating or updating a rule.
type RuleRequest struct {
	Name           string            `json:"name" validate:"required"`
	Type           models.RuleType   `json:"rule_type" validate:"required"`
	Pattern        string            `json:"pattern" validate:"required"`
	ExcludePattern string            `json:"exclude_pattern,omitempty"`
	TargetType     models.TargetType `json:"target_type" validate:"required"`
	TargetID       string            `json:"target_id" validate:"required"`
	Priority       *int              `json:"priority,omitempty"`
	IsActive       *bool             `json:"is_active,omitempty"`
	Notes          string            `json:"notes,omitempty"`
}

// RuleListResponse wraps a rule listing.
type RuleListResponse struct {
	Rules []models.Rule `json:"rules" validate:"required"`
	Total int           `json:"total" validate:"required"`
}

// ScanRequest is the request body for starting a scan.
type ScanRequest struct {
	Root     string `json:"root" validate:"required"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

// ClassifyRequest describes one file to classify without scanning.
type ClassifyRequest struct {
	Path string `json:"path" validate:"required"`
}

// DecisionRequest records the user's verdict on a scanned file.
type DecisionRequest struct {
	Decision     models.Decision `json:"decision" validate:"required"`
	TargetFolder string          `json:"target_folder,omitempty"`
}

// OrganizeRequest applies a session's ready files.
type OrganizeRequest struct {
	SessionID      string                   `json:"scan_session_id" validate:"required"`
	ConflictPolicy organizer.ConflictPolicy `json:"conflict_policy,omitempty"`
	DryRun         bool                     `json:"dry_run,omitempty"`
}

// OrganizeResponse reports the per-item outcomes of one batch.
type OrganizeResponse struct {
	Results []organizer.Result `json:"results" validate:"required"`
	Success int                `json:"success"`
	Skipped int                `json:"skipped"`
	Failed  int                `json:"failed"`
}

// PurgeRequest removes history older than a cutoff.
type PurgeRequest struct {
	Days int `json:"days" validate:"required"`
}

// WatchedFolderRequest is the request body for watched folder writes.
type WatchedFolderRequest struct {
	Path                string            `json:"path" validate:"required"`
	IsActive            *bool             `json:"is_active,omitempty"`
	AutoOrganize        bool              `json:"auto_organize,omitempty"`
	ConfidenceThreshold models.Confidence `json:"confidence_threshold,omitempty"`
	IncludeSubdirs      bool              `json:"include_subdirs,omitempty"`
	FileTypeFilter      []string          `json:"file_type_filter,omitempty"`
	NotifyOnOrganize    bool              `json:"notify_on_organize,omitempty"`
}
