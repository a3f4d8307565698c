package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidtools/internal/logging"
)

// CleanStaleResult contains the outcome of a stale entry cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes files and directories in dir whose modification time is
// older than maxAge. Entries named in skip (base names) are left alone. A
// missing directory is not an error.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, skip []string, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	skipped := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		skipped[name] = struct{}{}
	}
	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if _, ok := skipped[entry.Name()]; ok {
			continue
		}

		entryPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: err})
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(entryPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale file",
					logging.String("path", entryPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "stale_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check working directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, entryPath)
		if logger != nil {
			logger.Info("removed stale file",
				logging.String("path", entryPath),
				logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
				logging.String(logging.FieldEventType, "stale_cleanup"),
			)
		}
	}

	return result
}

// DirUsage summarizes the top-level contents of a working directory.
type DirUsage struct {
	Path   string    `json:"path"`
	Files  int       `json:"files"`
	Bytes  int64     `json:"bytes"`
	Oldest time.Time `json:"oldest,omitzero"`
}

// Usage reports how many entries dir holds and their total size. A missing
// directory reports zero usage.
func Usage(dir string) (DirUsage, error) {
	usage := DirUsage{Path: dir}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return usage, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return usage, nil
		}
		return usage, err
	}

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		usage.Files++
		if usage.Oldest.IsZero() || info.ModTime().Before(usage.Oldest) {
			usage.Oldest = info.ModTime()
		}
		if entry.IsDir() {
			size, _ := dirSize(filepath.Join(dir, entry.Name()))
			usage.Bytes += size
			continue
		}
		usage.Bytes += info.Size()
	}
	return usage, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
