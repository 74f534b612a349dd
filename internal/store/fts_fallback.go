//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"time"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; history search uses a LIKE fallback on the
	// organized_files table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	// Filename and path are already stored in organized_files.
	return nil
}

func ftsDeleteOlderThan(_ *sql.Tx, _ time.Time) {}

// SearchHistory performs a LIKE-based search (fallback when FTS5 is not
// compiled in).
func (db *DB) SearchHistory(query string, limit int) ([]HistoryHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, filename, original_path, current_path, status
		FROM organized_files
		WHERE filename LIKE ? OR original_path LIKE ?
		ORDER BY organized_at DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search history: %w", err)
	}
	defer rows.Close()

	var out []HistoryHit
	for rows.Next() {
		var h HistoryHit
		if err := rows.Scan(&h.ID, &h.Filename, &h.OriginalPath, &h.CurrentPath, &h.Status); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
