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

// ScannedDraft is a scanner-produced row before it enters the working set.
type ScannedDraft struct {
	SessionID  string
	Path       string
	Name       string
	Extension  string
	Size       int64
	ModifiedAt time.Time
	FileType   string
	Suggestion models.Suggestion
	// WatchActivityID, when set, points at the queued activity row this
	// draft was parked by.
	WatchActivityID string
}

func (d *ScannedDraft) validate() error {
	if d.SessionID == "" || d.Path == "" || d.Name == "" {
		return fmt.Errorf("store: scan_session_id, path and name are required: %w", apperr.ErrInvalid)
	}
	return nil
}

// AddScanned validates and inserts one working-set row.
func (db *DB) AddScanned(d ScannedDraft) (*models.ScannedFile, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertScanned(d)
}

func (db *DB) insertScanned(d ScannedDraft) (*models.ScannedFile, error) {
	f := &models.ScannedFile{
		ID:                  uuid.NewString(),
		SessionID:           d.SessionID,
		Path:                d.Path,
		Name:                d.Name,
		Extension:           d.Extension,
		Size:                d.Size,
		ModifiedAt:          d.ModifiedAt,
		FileType:            d.FileType,
		SuggestedTargetType: d.Suggestion.TargetType,
		SuggestedTargetID:   d.Suggestion.TargetID,
		SuggestedRuleID:     d.Suggestion.RuleID,
		Confidence:          d.Suggestion.Confidence,
		Decision:            models.DecisionPending,
		WatchActivityID:     d.WatchActivityID,
		CreatedAt:           time.Now().UTC(),
	}
	if f.Confidence == "" {
		f.Confidence = models.ConfidenceNone
	}
	_, err := db.conn.Exec(`
		INSERT INTO scanned_files (id, scan_session_id, path, name, extension,
			size, modified_at, file_type, suggested_target_type,
			suggested_target_id, suggested_rule_id, confidence, user_decision,
			user_target, watch_activity_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
	`, f.ID, f.SessionID, f.Path, f.Name, f.Extension, f.Size, f.ModifiedAt,
		f.FileType, f.SuggestedTargetType, f.SuggestedTargetID,
		f.SuggestedRuleID, f.Confidence, f.Decision, f.WatchActivityID,
		f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert scanned file: %w", err)
	}
	return f, nil
}

// BatchResult reports a best-effort batch insert.
type BatchResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// AddScannedBatch inserts drafts best-effort: invalid rows are skipped and
// counted, never aborting the batch.
func (db *DB) AddScannedBatch(drafts []ScannedDraft) (BatchResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var res BatchResult
	for _, d := range drafts {
		if err := d.validate(); err != nil {
			res.Skipped++
			continue
		}
		if _, err := db.insertScanned(d); err != nil {
			res.Skipped++
			continue
		}
		res.Added++
	}
	return res, nil
}

const scannedColumns = `id, scan_session_id, path, name, extension, size,
	modified_at, file_type, suggested_target_type, suggested_target_id,
	suggested_rule_id, confidence, user_decision, user_target,
	watch_activity_id, created_at`

func scanScanned(row interface{ Scan(...any) error }) (*models.ScannedFile, error) {
	var f models.ScannedFile
	err := row.Scan(&f.ID, &f.SessionID, &f.Path, &f.Name, &f.Extension,
		&f.Size, &f.ModifiedAt, &f.FileType, &f.SuggestedTargetType,
		&f.SuggestedTargetID, &f.SuggestedRuleID, &f.Confidence,
		&f.Decision, &f.UserTarget, &f.WatchActivityID, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetScanned returns one working-set row by id.
func (db *DB) GetScanned(id string) (*models.ScannedFile, error) {
	f, err := scanScanned(db.conn.QueryRow(
		`SELECT `+scannedColumns+` FROM scanned_files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get scanned file: %w", err)
	}
	return f, nil
}

// ScannedFilter narrows ListScanned.
type ScannedFilter struct {
	Decision      models.Decision
	FileType      string
	HasSuggestion *bool
}

// ListScanned returns a session's working-set rows, oldest first.
func (db *DB) ListScanned(sessionID string, f ScannedFilter) ([]models.ScannedFile, error) {
	q := `SELECT ` + scannedColumns + ` FROM scanned_files WHERE scan_session_id = ?`
	args := []any{sessionID}
	if f.Decision != "" {
		q += ` AND user_decision = ?`
		args = append(args, f.Decision)
	}
	if f.FileType != "" {
		q += ` AND file_type = ?`
		args = append(args, f.FileType)
	}
	if f.HasSuggestion != nil {
		if *f.HasSuggestion {
			q += ` AND suggested_target_id != ''`
		} else {
			q += ` AND suggested_target_id = ''`
		}
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list scanned files: %w", err)
	}
	defer rows.Close()

	var out []models.ScannedFile
	for rows.Next() {
		sf, err := scanScanned(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sf)
	}
	return out, rows.Err()
}

// SetDecision records the user's verdict on a row. A changed decision
// requires targetFolder; the other decisions must not carry one.
// Transitions are only defined out of pending.
func (db *DB) SetDecision(id string, decision models.Decision, targetFolder string) (*models.ScannedFile, error) {
	if !decision.Valid() || decision == models.DecisionPending {
		return nil, fmt.Errorf("store: invalid decision %q: %w", decision, apperr.ErrInvalid)
	}
	if decision == models.DecisionChanged && targetFolder == "" {
		return nil, fmt.Errorf("store: changed decision requires a target folder: %w", apperr.ErrInvalid)
	}
	if decision != models.DecisionChanged && targetFolder != "" {
		return nil, fmt.Errorf("store: target folder only applies to a changed decision: %w", apperr.ErrInvalid)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE scanned_files SET user_decision = ?, user_target = ?
		WHERE id = ? AND user_decision = 'pending'
	`, decision, targetFolder, id)
	if err != nil {
		return nil, fmt.Errorf("store: set decision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish a missing row from an already-decided one.
		if _, getErr := db.GetScanned(id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("store: decision already recorded: %w", apperr.ErrConflict)
	}
	return db.GetScanned(id)
}

// UpdateSuggestion overwrites a row's classifier suggestion.
func (db *DB) UpdateSuggestion(id string, s models.Suggestion) error {
	if s.Confidence != "" && !s.Confidence.Valid() {
		return fmt.Errorf("store: invalid confidence %q: %w", s.Confidence, apperr.ErrInvalid)
	}
	if s.Confidence == "" {
		s.Confidence = models.ConfidenceNone
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`
		UPDATE scanned_files SET suggested_target_type = ?,
			suggested_target_id = ?, suggested_rule_id = ?, confidence = ?
		WHERE id = ?
	`, s.TargetType, s.TargetID, s.RuleID, s.Confidence, id)
	if err != nil {
		return fmt.Errorf("store: update suggestion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteScanned removes one working-set row.
func (db *DB) DeleteScanned(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec(`DELETE FROM scanned_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete scanned file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ClearSession removes all rows of one session, or of every session when
// sessionID is empty.
func (db *DB) ClearSession(sessionID string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if sessionID == "" {
		res, err = db.conn.Exec(`DELETE FROM scanned_files`)
	} else {
		res, err = db.conn.Exec(`DELETE FROM scanned_files WHERE scan_session_id = ?`, sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("store: clear session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ReadyToOrganize returns rows whose decision is accepted or changed and
// whose final target resolves. Pending and skipped rows are excluded.
func (db *DB) ReadyToOrganize(sessionID string) ([]models.ScannedFile, error) {
	rows, err := db.conn.Query(`
		SELECT `+scannedColumns+` FROM scanned_files
		WHERE scan_session_id = ? AND user_decision IN ('accepted', 'changed')
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: ready to organize: %w", err)
	}
	defer rows.Close()

	var out []models.ScannedFile
	for rows.Next() {
		sf, err := scanScanned(rows)
		if err != nil {
			return nil, err
		}
		if _, ok := sf.FinalTarget(); !ok {
			continue
		}
		out = append(out, *sf)
	}
	return out, rows.Err()
}

// SessionStats aggregates one session's working set.
type SessionStats struct {
	Total      int64                     `json:"total"`
	TotalBytes int64                     `json:"total_bytes"`
	ByDecision map[models.Decision]int64 `json:"by_decision"`
	ByFileType map[string]int64          `json:"by_file_type"`
}

// Stats returns counts by decision and file type plus the total size.
func (db *DB) Stats(sessionID string) (*SessionStats, error) {
	st := &SessionStats{
		ByDecision: make(map[models.Decision]int64),
		ByFileType: make(map[string]int64),
	}

	rows, err := db.conn.Query(`
		SELECT user_decision, file_type, count(*), coalesce(sum(size), 0)
		FROM scanned_files WHERE scan_session_id = ?
		GROUP BY user_decision, file_type
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: session stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dec   models.Decision
			ft    string
			n     int64
			bytes int64
		)
		if err := rows.Scan(&dec, &ft, &n, &bytes); err != nil {
			return nil, err
		}
		st.ByDecision[dec] += n
		st.ByFileType[ft] += n
		st.Total += n
		st.TotalBytes += bytes
	}
	return st, rows.Err()
}
