package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/models"
)

// OrganizedDraft carries the executor-supplied fields for a ledger row.
type OrganizedDraft struct {
	Filename      string
	OriginalPath  string
	CurrentPath   string
	TargetFolder  string
	MatchedRuleID string
	Status        models.OrganizedStatus
	Size          int64
	FileType      string
	Notes         string
}

// InsertOrganized appends a ledger row. A re-organize of a previously
// undone path always creates a new row; the old one is never resurrected.
func (db *DB) InsertOrganized(d OrganizedDraft) (*models.OrganizedFile, error) {
	if d.Filename == "" || d.OriginalPath == "" {
		return nil, fmt.Errorf("store: filename and original_path are required: %w", apperr.ErrInvalid)
	}
	if d.Status == "" {
		d.Status = models.StatusMoved
	}
	if !d.Status.Valid() {
		return nil, fmt.Errorf("store: unknown status %q: %w", d.Status, apperr.ErrInvalid)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	f := &models.OrganizedFile{
		ID:            uuid.NewString(),
		Filename:      d.Filename,
		OriginalPath:  d.OriginalPath,
		CurrentPath:   d.CurrentPath,
		TargetFolder:  d.TargetFolder,
		MatchedRuleID: d.MatchedRuleID,
		Status:        d.Status,
		Size:          d.Size,
		FileType:      d.FileType,
		Notes:         d.Notes,
		OrganizedAt:   time.Now().UTC(),
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO organized_files (id, filename, original_path, current_path,
			target_folder, matched_rule_id, status, size, file_type, notes,
			organized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.Filename, f.OriginalPath, f.CurrentPath, f.TargetFolder,
		f.MatchedRuleID, f.Status, f.Size, f.FileType, f.Notes, f.OrganizedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert organized file: %w", err)
	}
	if err := ftsUpsert(tx, f.ID, f.Filename, f.OriginalPath); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit organized file: %w", err)
	}
	return f, nil
}

// HistoryHit is one history search result.
type HistoryHit struct {
	ID           string                 `json:"id"`
	Filename     string                 `json:"filename"`
	OriginalPath string                 `json:"original_path"`
	CurrentPath  string                 `json:"current_path"`
	Status       models.OrganizedStatus `json:"status"`
}

const organizedColumns = `id, filename, original_path, current_path,
	target_folder, matched_rule_id, status, size, file_type, notes,
	organized_at`

func scanOrganized(row interface{ Scan(...any) error }) (*models.OrganizedFile, error) {
	var f models.OrganizedFile
	err := row.Scan(&f.ID, &f.Filename, &f.OriginalPath, &f.CurrentPath,
		&f.TargetFolder, &f.MatchedRuleID, &f.Status, &f.Size, &f.FileType,
		&f.Notes, &f.OrganizedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetOrganized returns one ledger row by id.
func (db *DB) GetOrganized(id string) (*models.OrganizedFile, error) {
	f, err := scanOrganized(db.conn.QueryRow(
		`SELECT `+organizedColumns+` FROM organized_files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get organized file: %w", err)
	}
	return f, nil
}

// FindByOriginalPath returns the most recent non-undone row for a path,
// or nil when the path counts as not organized. Undone rows are excluded
// so the same original path can be organized again.
func (db *DB) FindByOriginalPath(path string) (*models.OrganizedFile, error) {
	f, err := scanOrganized(db.conn.QueryRow(`
		SELECT `+organizedColumns+` FROM organized_files
		WHERE original_path = ? AND status != 'undone'
		ORDER BY organized_at DESC LIMIT 1
	`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find by original path: %w", err)
	}
	return f, nil
}

// OrganizedFilter narrows ListOrganized and CountOrganized.
type OrganizedFilter struct {
	Status       models.OrganizedStatus
	TargetFolder string
	FileType     string
	Limit        int
	Offset       int
}

func (f OrganizedFilter) where() (string, []any) {
	q := ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.TargetFolder != "" {
		q += ` AND target_folder = ?`
		args = append(args, f.TargetFolder)
	}
	if f.FileType != "" {
		q += ` AND file_type = ?`
		args = append(args, f.FileType)
	}
	return q, args
}

// ListOrganized returns ledger rows, newest first.
func (db *DB) ListOrganized(f OrganizedFilter) ([]models.OrganizedFile, error) {
	where, args := f.where()
	q := `SELECT ` + organizedColumns + ` FROM organized_files` + where +
		` ORDER BY organized_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list organized files: %w", err)
	}
	defer rows.Close()

	var out []models.OrganizedFile
	for rows.Next() {
		of, err := scanOrganized(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *of)
	}
	return out, rows.Err()
}

// CountOrganized counts ledger rows matching the filter.
func (db *DB) CountOrganized(f OrganizedFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := db.conn.QueryRow(`SELECT count(*) FROM organized_files`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count organized files: %w", err)
	}
	return n, nil
}

// RecentMoved returns the latest moved rows, bounded by limit.
func (db *DB) RecentMoved(limit int) ([]models.OrganizedFile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return db.ListOrganized(OrganizedFilter{Status: models.StatusMoved, Limit: limit})
}

// LedgerStats aggregates the ledger: totals by status, bytes moved,
// file-type breakdown, and the most-used target folders.
func (db *DB) LedgerStats() (*models.LedgerStats, error) {
	st := &models.LedgerStats{
		ByStatus:   make(map[models.OrganizedStatus]int64),
		ByFileType: make(map[string]int64),
	}

	rows, err := db.conn.Query(`
		SELECT status, file_type, count(*), coalesce(sum(size), 0)
		FROM organized_files GROUP BY status, file_type
	`)
	if err != nil {
		return nil, fmt.Errorf("store: ledger stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status models.OrganizedStatus
			ft     string
			n      int64
			bytes  int64
		)
		if err := rows.Scan(&status, &ft, &n, &bytes); err != nil {
			return nil, err
		}
		st.ByStatus[status] += n
		st.ByFileType[ft] += n
		st.Total += n
		if status == models.StatusMoved {
			st.MovedBytes += bytes
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	folderRows, err := db.conn.Query(`
		SELECT target_folder, count(*) AS n FROM organized_files
		WHERE target_folder != '' GROUP BY target_folder
		ORDER BY n DESC, target_folder ASC LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("store: ledger stats folders: %w", err)
	}
	defer folderRows.Close()
	for folderRows.Next() {
		var fc models.FolderCount
		if err := folderRows.Scan(&fc.Folder, &fc.Count); err != nil {
			return nil, err
		}
		st.TopFolders = append(st.TopFolders, fc)
	}
	return st, folderRows.Err()
}

// MarkUndone flips a moved row to undone, recording note. The flip is the
// only forward transition the ledger allows; when the row is already
// undone, deleted, or tracked the call reports changed=false and is not
// an error (undo stays idempotent).
func (db *DB) MarkUndone(id, note string) (changed bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE organized_files SET status = 'undone', notes = ?
		WHERE id = ? AND status = 'moved'
	`, note, id)
	if err != nil {
		return false, fmt.Errorf("store: mark undone: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := db.GetOrganized(id); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

// MarkDeleted records that the organized file was later removed from disk.
// Undone rows keep their status.
func (db *DB) MarkDeleted(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE organized_files SET status = 'deleted'
		WHERE id = ? AND status IN ('moved', 'tracked')
	`, id)
	if err != nil {
		return fmt.Errorf("store: mark deleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := db.GetOrganized(id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// PurgeOlderThan deletes ledger rows older than the given number of days,
// regardless of status. days is floored at 1 so a purge can never empty
// the ledger of today's activity.
func (db *DB) PurgeOlderThan(days int) (int64, error) {
	if days < 1 {
		days = 1
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteOlderThan(tx, cutoff)
	res, err := tx.Exec(`DELETE FROM organized_files WHERE organized_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge ledger: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit purge: %w", err)
	}
	return n, nil
}
