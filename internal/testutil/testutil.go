// Package testutil provides shared test helpers for setting up stores,
// index trees, and library directories.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/halvard/ordna/internal/jdindex"
	"github.com/halvard/ordna/internal/store"
)

// TestDB creates a temporary SQLite store that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ordna-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// IndexTree is a small seeded index for tests. Invoices is a leaf folder
// under Finance under Admin.
type IndexTree struct {
	DB         *jdindex.DB
	AdminID    string
	FinanceID  string
	InvoicesID string
}

// TestIndex creates a temporary index database seeded with one
// area/category/folder chain:
//
//	10-19 Admin / 11 Finance / 11.02 Invoices
func TestIndex(t *testing.T) *IndexTree {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ordna-index-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	jd, err := jdindex.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { jd.Close() })

	area, err := jd.CreateArea("10-19", "Admin")
	if err != nil {
		t.Fatal(err)
	}
	cat, err := jd.CreateCategory(area.ID, "11", "Finance")
	if err != nil {
		t.Fatal(err)
	}
	folder, err := jd.CreateFolder(cat.ID, "11.02", "Invoices")
	if err != nil {
		t.Fatal(err)
	}
	return &IndexTree{
		DB:         jd,
		AdminID:    area.ID,
		FinanceID:  cat.ID,
		InvoicesID: folder.ID,
	}
}

// TestLibrary creates a temporary library root directory.
func TestLibrary(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// Logger returns a logger that only surfaces errors, keeping test output
// readable.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// WriteFile drops a file with content into dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
