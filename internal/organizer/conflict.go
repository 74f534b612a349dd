package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/halvard/ordna/internal/apperr"
)

// ConflictPolicy decides what happens when the destination name is taken.
type ConflictPolicy string

// Conflict policies. A collision is never an error path; the policy
// resolves it deterministically.
const (
	ConflictRename    ConflictPolicy = "rename"
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// Valid reports whether p is a known policy.
func (p ConflictPolicy) Valid() bool {
	switch p {
	case ConflictRename, ConflictSkip, ConflictOverwrite:
		return true
	}
	return false
}

// resolveCollision applies the policy to a proposed destination path.
// It returns the path to use, or skip=true when the policy says to leave
// the file where it is.
func resolveCollision(dst string, policy ConflictPolicy) (path string, skip bool, err error) {
	if _, statErr := os.Stat(dst); os.IsNotExist(statErr) {
		return dst, false, nil
	}

	switch policy {
	case ConflictSkip:
		return "", true, nil
	case ConflictOverwrite:
		return dst, false, nil
	case ConflictRename:
		dir := filepath.Dir(dst)
		base := filepath.Base(dst)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		for i := 1; i < 1000; i++ {
			candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
			if _, statErr := os.Stat(candidate); os.IsNotExist(statErr) {
				return candidate, false, nil
			}
		}
		return "", false, fmt.Errorf("organizer: no free name for %s after 999 attempts", dst)
	}
	return "", false, fmt.Errorf("organizer: unknown conflict policy %q: %w", policy, apperr.ErrInvalid)
}
