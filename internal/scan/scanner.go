// Package scan walks a directory tree and produces session working-set
// drafts for the classifier.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/google/uuid"

	"github.com/halvard/ordna/internal/classify"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/store"
)

// noiseDirs are well-known directories a scan never descends into.
var noiseDirs = map[string]struct{}{
	".git":                      {},
	".svn":                      {},
	"node_modules":              {},
	"__pycache__":               {},
	".cache":                    {},
	".Trash":                    {},
	"$RECYCLE.BIN":              {},
	"System Volume Information": {},
}

// Options configures a walk.
type Options struct {
	// MaxDepth limits how many directory levels below root are visited;
	// zero or negative means unlimited.
	MaxDepth int
	// Progress, if non-nil, receives a monotonically increasing count of
	// files seen. Informational only.
	Progress func(filesSeen int)
}

// Result is the outcome of one walk: a fresh scan session and its drafts.
// Cancelled walks return the drafts emitted so far; a partial scan is
// valid and is never rolled back.
type Result struct {
	SessionID string
	Drafts    []store.ScannedDraft
	Cancelled bool
}

// Walk scans root and returns drafts tagged with a new scan session id.
// Cancellation is cooperative: ctx is checked between directory entries.
func Walk(ctx context.Context, root string, opts Options) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scan: resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scan: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan: root is not a directory: %s", absRoot)
	}

	res := &Result{SessionID: uuid.NewString()}
	seen := 0

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			res.Cancelled = true
			return fs.SkipAll
		}
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p == absRoot {
				return nil
			}
			if _, noisy := noiseDirs[d.Name()]; noisy || strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			if opts.MaxDepth > 0 && depthBelow(absRoot, p) > opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		res.Drafts = append(res.Drafts, draftFor(res.SessionID, p, fi))

		seen++
		if opts.Progress != nil {
			opts.Progress(seen)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: walk: %w", err)
	}
	return res, nil
}

// Describe builds a single-file descriptor and draft pair, used by the
// watcher for files detected outside a full scan.
func Describe(path string) (models.FileDescriptor, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("scan: stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return models.FileDescriptor{}, fmt.Errorf("scan: %s is a directory", path)
	}
	return models.NewFileDescriptor(path, modTime(path, fi)), nil
}

func draftFor(sessionID, path string, fi fs.FileInfo) store.ScannedDraft {
	ext := models.NormalizeExtension(filepath.Ext(fi.Name()))
	return store.ScannedDraft{
		SessionID:  sessionID,
		Path:       path,
		Name:       fi.Name(),
		Extension:  ext,
		Size:       fi.Size(),
		ModifiedAt: modTime(path, fi),
		FileType:   classify.FileCategory(ext),
	}
}

// modTime prefers the richer timespec when the platform provides one.
func modTime(path string, fi fs.FileInfo) time.Time {
	if ts, err := times.Stat(path); err == nil {
		return ts.ModTime()
	}
	return fi.ModTime()
}

func depthBelow(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}
