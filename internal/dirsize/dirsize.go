// Package dirsize computes the on-disk size of a directory tree.
package dirsize

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Sum walks root and returns the total size in bytes of every regular
// file beneath it. Directories are recursed into; symbolic links
// contribute 0 (this avoids both cycles and double-counting a cache
// entry that a workspace merely symlinks). Entries that disappear or
// become unreadable mid-walk are logged and skipped rather than
// failing the whole walk.
func Sum(root string, logger *slog.Logger) int64 {
	var total int64

	entries, err := os.ReadDir(root)
	if err != nil {
		if logger != nil {
			logger.Warn("dirsize: read dir", "path", root, "error", err)
		}
		return 0
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		info, err := os.Lstat(path)
		if err != nil {
			if logger != nil {
				logger.Warn("dirsize: lstat", "path", path, "error", err)
			}
			continue
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			// Non-owning reference; never counted.
		case info.IsDir():
			total += Sum(path, logger)
		default:
			total += info.Size()
		}
	}

	return total
}
