package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/models"
)

// WatchedFolderDraft carries caller-supplied watched-folder settings.
// A zero ConfidenceThreshold defaults to high so auto-organize is
// conservative unless explicitly loosened.
type WatchedFolderDraft struct {
	Path                string
	IsActive            *bool
	AutoOrganize        bool
	ConfidenceThreshold models.Confidence
	IncludeSubdirs      bool
	FileTypeFilter      []string
	NotifyOnOrganize    bool
}

func (d *WatchedFolderDraft) validate() error {
	if d.Path == "" {
		return fmt.Errorf("store: path is required: %w", apperr.ErrInvalid)
	}
	if d.ConfidenceThreshold != "" && !d.ConfidenceThreshold.Valid() {
		return fmt.Errorf("store: unknown confidence %q: %w", d.ConfidenceThreshold, apperr.ErrInvalid)
	}
	return nil
}

func (d *WatchedFolderDraft) threshold() models.Confidence {
	if d.ConfidenceThreshold == "" {
		return models.ConfidenceHigh
	}
	return d.ConfidenceThreshold
}

func (d *WatchedFolderDraft) active() bool {
	if d.IsActive == nil {
		return true
	}
	return *d.IsActive
}

// CreateWatchedFolder validates and inserts a watched folder.
func (db *DB) CreateWatchedFolder(d WatchedFolderDraft) (*models.WatchedFolder, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	w := &models.WatchedFolder{
		ID:                  uuid.NewString(),
		Path:                d.Path,
		IsActive:            d.active(),
		AutoOrganize:        d.AutoOrganize,
		ConfidenceThreshold: d.threshold(),
		IncludeSubdirs:      d.IncludeSubdirs,
		FileTypeFilter:      d.FileTypeFilter,
		NotifyOnOrganize:    d.NotifyOnOrganize,
		CreatedAt:           time.Now().UTC(),
	}
	_, err := db.conn.Exec(`
		INSERT INTO watched_folders (id, path, is_active, auto_organize,
			confidence_threshold, include_subdirs, file_type_filter,
			notify_on_organize, files_processed, files_organized, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)
	`, w.ID, w.Path, w.IsActive, w.AutoOrganize, w.ConfidenceThreshold,
		w.IncludeSubdirs, strings.Join(w.FileTypeFilter, ","),
		w.NotifyOnOrganize, w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert watched folder: %w", err)
	}
	return w, nil
}

// UpdateWatchedFolder replaces a watched folder's settings. Counters and
// last-checked bookkeeping are preserved.
func (db *DB) UpdateWatchedFolder(id string, d WatchedFolderDraft) (*models.WatchedFolder, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE watched_folders SET path = ?, is_active = ?, auto_organize = ?,
			confidence_threshold = ?, include_subdirs = ?, file_type_filter = ?,
			notify_on_organize = ?
		WHERE id = ?
	`, d.Path, d.active(), d.AutoOrganize, d.threshold(), d.IncludeSubdirs,
		strings.Join(d.FileTypeFilter, ","), d.NotifyOnOrganize, id)
	if err != nil {
		return nil, fmt.Errorf("store: update watched folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}
	return db.GetWatchedFolder(id)
}

// DeleteWatchedFolder removes a watched folder and its activity log.
func (db *DB) DeleteWatchedFolder(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM watch_activity WHERE watched_folder_id = ?`, id)
	res, err := tx.Exec(`DELETE FROM watched_folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete watched folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

const watchedColumns = `id, path, is_active, auto_organize,
	confidence_threshold, include_subdirs, file_type_filter,
	notify_on_organize, files_processed, files_organized, last_checked_at,
	created_at`

func scanWatched(row interface{ Scan(...any) error }) (*models.WatchedFolder, error) {
	var (
		w       models.WatchedFolder
		filter  string
		checked sql.NullTime
	)
	err := row.Scan(&w.ID, &w.Path, &w.IsActive, &w.AutoOrganize,
		&w.ConfidenceThreshold, &w.IncludeSubdirs, &filter,
		&w.NotifyOnOrganize, &w.FilesProcessed, &w.FilesOrganized,
		&checked, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	if filter != "" {
		w.FileTypeFilter = strings.Split(filter, ",")
	}
	if checked.Valid {
		w.LastCheckedAt = checked.Time
	}
	return &w, nil
}

// GetWatchedFolder returns one watched folder by id.
func (db *DB) GetWatchedFolder(id string) (*models.WatchedFolder, error) {
	w, err := scanWatched(db.conn.QueryRow(
		`SELECT `+watchedColumns+` FROM watched_folders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get watched folder: %w", err)
	}
	return w, nil
}

// ListWatchedFolders returns watched folders, optionally active only.
func (db *DB) ListWatchedFolders(activeOnly bool) ([]models.WatchedFolder, error) {
	q := `SELECT ` + watchedColumns + ` FROM watched_folders`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY created_at ASC`

	rows, err := db.conn.Query(q)
	if err != nil {
		return nil, fmt.Errorf("store: list watched folders: %w", err)
	}
	defer rows.Close()

	var out []models.WatchedFolder
	for rows.Next() {
		w, err := scanWatched(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// BumpFolderCounters adds to a folder's processed/organized counters and
// stamps last_checked_at.
func (db *DB) BumpFolderCounters(id string, processed, organized int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		UPDATE watched_folders
		SET files_processed = files_processed + ?,
		    files_organized = files_organized + ?,
		    last_checked_at = ?
		WHERE id = ?
	`, processed, organized, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: bump folder counters: %w", err)
	}
	return nil
}

// AppendActivity appends one watch activity row.
func (db *DB) AppendActivity(a models.WatchActivity) (*models.WatchActivity, error) {
	if a.FolderID == "" || !a.Action.Valid() {
		return nil, fmt.Errorf("store: folder id and a valid action are required: %w", apperr.ErrInvalid)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO watch_activity (id, watched_folder_id, filename, path,
			action, matched_rule_id, target_folder, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.FolderID, a.Filename, a.Path, a.Action, a.MatchedRuleID,
		a.TargetFolder, a.ErrorMessage, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: append activity: %w", err)
	}
	return &a, nil
}

// ResolveQueuedActivity advances a queued activity row in place when its
// decision is later resolved, instead of appending a duplicate row.
func (db *DB) ResolveQueuedActivity(id string, action models.ActivityAction, ruleID, targetFolder, errMsg string) error {
	switch action {
	case models.ActivityAutoOrganized, models.ActivitySkipped, models.ActivityError:
	default:
		return fmt.Errorf("store: queued activity cannot advance to %q: %w", action, apperr.ErrInvalid)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE watch_activity
		SET action = ?, matched_rule_id = ?, target_folder = ?, error_message = ?
		WHERE id = ? AND action = 'queued'
	`, action, ruleID, targetFolder, errMsg, id)
	if err != nil {
		return fmt.Errorf("store: resolve queued activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListActivity returns a folder's newest activity rows, bounded by limit.
func (db *DB) ListActivity(folderID string, limit int) ([]models.WatchActivity, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, watched_folder_id, filename, path, action, matched_rule_id,
			target_folder, error_message, created_at
		FROM watch_activity WHERE watched_folder_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, folderID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list activity: %w", err)
	}
	defer rows.Close()

	var out []models.WatchActivity
	for rows.Next() {
		var a models.WatchActivity
		if err := rows.Scan(&a.ID, &a.FolderID, &a.Filename, &a.Path,
			&a.Action, &a.MatchedRuleID, &a.TargetFolder, &a.ErrorMessage,
			&a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
