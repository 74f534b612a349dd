// Package jdindex implements the hierarchical area/category/folder index
// the organizer files into, and resolves rule targets to destination
// directories under the library root.
package jdindex

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jd_areas (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS jd_categories (
	id         TEXT PRIMARY KEY,
	area_id    TEXT NOT NULL REFERENCES jd_areas(id) ON DELETE CASCADE,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS jd_folders (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL REFERENCES jd_categories(id) ON DELETE CASCADE,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Area is a top-level index node, e.g. "10-19 Admin".
type Area struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Category is a second-level node, e.g. "11 Finance".
type Category struct {
	ID        string    `json:"id"`
	AreaID    string    `json:"area_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Folder is a leaf node files are organized into, e.g. "11.02 Invoices".
type Folder struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resolver maps a rule target to a destination directory relative to the
// library root. Implementations report apperr.ErrNotFound for unknown
// targets.
type Resolver interface {
	Resolve(targetType models.TargetType, targetID string) (string, error)
}

// DB is the SQLite-backed index.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Resolver at compile time.
var _ Resolver = (*DB)(nil)

// Open opens (or creates) the index tables in the given SQLite database.
// The index may share a database file with the main store; WAL and the
// busy timeout arbitrate between the two connections.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("jdindex: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jdindex: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jdindex: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateArea inserts a top-level area.
func (db *DB) CreateArea(code, name string) (*Area, error) {
	if code == "" || name == "" {
		return nil, fmt.Errorf("jdindex: code and name are required: %w", apperr.ErrInvalid)
	}
	a := &Area{ID: uuid.NewString(), Code: code, Name: name, CreatedAt: time.Now().UTC()}
	_, err := db.conn.Exec(
		`INSERT INTO jd_areas (id, code, name, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Code, a.Name, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("jdindex: insert area: %w", err)
	}
	return a, nil
}

// CreateCategory inserts a category under an area.
func (db *DB) CreateCategory(areaID, code, name string) (*Category, error) {
	if areaID == "" || code == "" || name == "" {
		return nil, fmt.Errorf("jdindex: area id, code and name are required: %w", apperr.ErrInvalid)
	}
	c := &Category{ID: uuid.NewString(), AreaID: areaID, Code: code, Name: name, CreatedAt: time.Now().UTC()}
	_, err := db.conn.Exec(
		`INSERT INTO jd_categories (id, area_id, code, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.AreaID, c.Code, c.Name, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("jdindex: insert category: %w", err)
	}
	return c, nil
}

// CreateFolder inserts a leaf folder under a category.
func (db *DB) CreateFolder(categoryID, code, name string) (*Folder, error) {
	if categoryID == "" || code == "" || name == "" {
		return nil, fmt.Errorf("jdindex: category id, code and name are required: %w", apperr.ErrInvalid)
	}
	f := &Folder{ID: uuid.NewString(), CategoryID: categoryID, Code: code, Name: name, CreatedAt: time.Now().UTC()}
	_, err := db.conn.Exec(
		`INSERT INTO jd_folders (id, category_id, code, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.CategoryID, f.Code, f.Name, f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("jdindex: insert folder: %w", err)
	}
	return f, nil
}

// ListCategories returns every category, code order.
func (db *DB) ListCategories() ([]Category, error) {
	rows, err := db.conn.Query(
		`SELECT id, area_id, code, name, created_at FROM jd_categories ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("jdindex: list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.AreaID, &c.Code, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListFolders returns every leaf folder, code order.
func (db *DB) ListFolders() ([]Folder, error) {
	rows, err := db.conn.Query(
		`SELECT id, category_id, code, name, created_at FROM jd_folders ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("jdindex: list folders: %w", err)
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.CategoryID, &f.Code, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func label(code, name string) string {
	return code + " " + name
}

// Resolve maps a target to a directory relative to the library root,
// joining the labels of the node and its ancestors, e.g.
// "10-19 Admin/11 Finance/11.02 Invoices". The target id may be either
// the node's id or its code; user overrides usually arrive as codes.
func (db *DB) Resolve(targetType models.TargetType, targetID string) (string, error) {
	switch targetType {
	case models.TargetArea:
		var code, name string
		err := db.conn.QueryRow(
			`SELECT code, name FROM jd_areas WHERE id = ? OR code = ?`,
			targetID, targetID).Scan(&code, &name)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("jdindex: area %q: %w", targetID, apperr.ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("jdindex: resolve area: %w", err)
		}
		return label(code, name), nil

	case models.TargetCategory:
		var aCode, aName, cCode, cName string
		err := db.conn.QueryRow(`
			SELECT a.code, a.name, c.code, c.name
			FROM jd_categories c JOIN jd_areas a ON a.id = c.area_id
			WHERE c.id = ? OR c.code = ?
		`, targetID, targetID).Scan(&aCode, &aName, &cCode, &cName)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("jdindex: category %q: %w", targetID, apperr.ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("jdindex: resolve category: %w", err)
		}
		return filepath.Join(label(aCode, aName), label(cCode, cName)), nil

	case models.TargetFolder:
		var aCode, aName, cCode, cName, fCode, fName string
		err := db.conn.QueryRow(`
			SELECT a.code, a.name, c.code, c.name, f.code, f.name
			FROM jd_folders f
			JOIN jd_categories c ON c.id = f.category_id
			JOIN jd_areas a ON a.id = c.area_id
			WHERE f.id = ? OR f.code = ?
		`, targetID, targetID).Scan(&aCode, &aName, &cCode, &cName, &fCode, &fName)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("jdindex: folder %q: %w", targetID, apperr.ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("jdindex: resolve folder: %w", err)
		}
		return filepath.Join(label(aCode, aName), label(cCode, cName), label(fCode, fName)), nil
	}
	return "", fmt.Errorf("jdindex: unknown target_type %q: %w", targetType, apperr.ErrInvalid)
}
