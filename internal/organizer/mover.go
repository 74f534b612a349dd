package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/halvard/ordna/internal/checksum"
)

const copyChunk = 1 << 20

// moveFile moves src to dst, creating dst's directory as needed. A plain
// rename is attempted first; across filesystems it falls back to
// copy+delete, verifying the copy's checksum before removing the source.
// The context bounds the whole operation; an aborted copy never leaves a
// partial file at dst.
func moveFile(ctx context.Context, src, dst string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("organizer: mkdir for move: %w", err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("organizer: rename: %w", err)
	}
	return copyAndDelete(ctx, src, dst)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

// copyAndDelete writes src's bytes to a temp file next to dst, fsyncs,
// renames it into place, verifies the checksum, and only then removes
// the source.
func copyAndDelete(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("organizer: open source: %w", err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("organizer: stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".ordna-tmp-*")
	if err != nil {
		return fmt.Errorf("organizer: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	buf := make([]byte, copyChunk)
	for {
		// Cooperative cancellation between chunks; the destination stays
		// absent on abort.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("organizer: copy aborted: %w", err)
		}
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("organizer: write temp: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("organizer: read source: %w", readErr)
		}
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("organizer: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("organizer: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("organizer: chmod: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("organizer: rename temp: %w", err)
	}
	success = true

	// The source is only removed once the copy is proven identical.
	same, err := checksumsMatch(src, dst)
	if err != nil {
		return fmt.Errorf("organizer: verify copy: %w", err)
	}
	if !same {
		_ = os.Remove(dst)
		return fmt.Errorf("organizer: copy verification failed for %s", src)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("organizer: remove source: %w", err)
	}
	return nil
}

func checksumsMatch(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return checksum.Sum(da) == checksum.Sum(db), nil
}
