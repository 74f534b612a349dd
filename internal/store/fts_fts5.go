//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
	"time"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS history_fts USING fts5(
			id UNINDEXED,
			filename,
			original_path,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, filename, originalPath string) error {
	_, _ = tx.Exec(`DELETE FROM history_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO history_fts (id, filename, original_path) VALUES (?, ?, ?)`,
		id, filename, originalPath)
	if err != nil {
		return fmt.Errorf("store: upsert history fts: %w", err)
	}
	return nil
}

func ftsDeleteOlderThan(tx *sql.Tx, cutoff time.Time) {
	_, _ = tx.Exec(`
		DELETE FROM history_fts WHERE id IN
			(SELECT id FROM organized_files WHERE organized_at < ?)
	`, cutoff)
}

// SearchHistory performs an FTS5 search over ledger filenames and paths.
func (db *DB) SearchHistory(query string, limit int) ([]HistoryHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.id, f.filename, f.original_path, f.current_path, f.status
		FROM history_fts h
		JOIN organized_files f ON f.id = h.id
		WHERE history_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
